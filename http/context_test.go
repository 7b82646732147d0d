// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// simple net.Conn implementation for tests
type testConn struct {
	net.Conn
}

type otherKey struct{}

func TestStashAndGetSessionContext(t *testing.T) {
	baseCtx := context.Background()
	sess := &connSession{}

	got := getSessionContext(stashSession(baseCtx, sess))
	if got != sess {
		t.Fatalf("expected session %p, got %p", sess, got)
	}

	if getSessionContext(baseCtx) != nil {
		t.Fatalf("expected nil session from base context")
	}
}

func TestGetInitiatorNameMissing(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	in, ok := GetInitiatorName(r)
	assert.False(t, ok)
	assert.Nil(t, in)
}

func TestServerWithStashConnHooks(t *testing.T) {
	assert := assert.New(t)

	var states []http.ConnState
	s := &http.Server{
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			return context.WithValue(ctx, otherKey{}, "kept")
		},
		ConnState: func(c net.Conn, state http.ConnState) {
			states = append(states, state)
		},
	}
	ServerWithStashConn(s)

	conn := &testConn{}
	ctx := s.ConnContext(context.Background(), conn)
	assert.Equal("kept", ctx.Value(otherKey{}))

	sess := getSessionContext(ctx)
	if !assert.NotNil(sess) {
		return
	}

	s.ConnState(conn, http.StateNew)
	s.ConnState(conn, http.StateClosed)
	assert.Equal([]http.ConnState{http.StateNew, http.StateClosed}, states)

	// closing twice is harmless
	s.ConnState(conn, http.StateClosed)
}

func TestNewGoIdentity(t *testing.T) {
	assert := assert.New(t)
	authTime := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	id := newGoIdentity(&acceptor.Identity{
		Principal: "HTTP/web.example.com@EXAMPLE.COM",
		Flags:     acceptor.ContextFlagMutual,
		ExpiresAt: acceptor.GssLifetime{Status: acceptor.GssLifetimeIndefinite},
	}, authTime)

	assert.Equal("HTTP/web.example.com", id.UserName())
	assert.Equal("EXAMPLE.COM", id.Domain())
	assert.False(id.Human())
	assert.True(id.Authenticated())
	assert.Equal(authTime, id.AuthTime())
	assert.False(id.Expired())
	assert.Equal(acceptor.ContextFlagMutual, id.Attributes()[AttributeContextFlags])

	expired := newGoIdentity(&acceptor.Identity{
		Principal: "bob@EXAMPLE.COM",
		ExpiresAt: acceptor.GssLifetime{Status: acceptor.GssLifetimeAvailable, ExpiresAt: time.Now().Add(-time.Minute)},
	}, authTime)
	assert.True(expired.Expired())
}

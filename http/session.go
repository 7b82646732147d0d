// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// connSession holds a negotiation that is waiting for the initiator's next token on a
// connection.  RFC 4559 ties multi-round Negotiate exchanges to the connection.
type connSession struct {
	mu      sync.Mutex
	owner   *Handler
	pending *acceptor.SecContext
	expires time.Time
}

// take removes the pending context when it belongs to h and has not expired.  A stale
// context is deleted.
func (s *connSession) take(h *Handler, now time.Time) *acceptor.SecContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil
	}

	owner, secCtx := s.owner, s.pending
	s.owner, s.pending = nil, nil

	if owner != h || now.After(s.expires) {
		owner.deleteContext(secCtx)
		return nil
	}

	return secCtx
}

// park stores secCtx until the initiator's next request, replacing any earlier context.
func (s *connSession) park(h *Handler, secCtx *acceptor.SecContext, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.owner.deleteContext(s.pending)
	}

	s.owner, s.pending, s.expires = h, secCtx, expires
}

func (s *connSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.owner.deleteContext(s.pending)
		s.owner, s.pending = nil, nil
	}
}

// ServerWithStashConn prepares s so that a [Handler] can carry a negotiation across
// requests on the same connection.  Without it every request must complete in one round.
// Existing ConnContext and ConnState hooks are preserved.
func ServerWithStashConn(s *http.Server) *http.Server {
	var sessions sync.Map

	connContext := s.ConnContext
	s.ConnContext = func(ctx context.Context, c net.Conn) context.Context {
		if connContext != nil {
			ctx = connContext(ctx, c)
		}

		sess := &connSession{}
		sessions.Store(c, sess)
		return stashSession(ctx, sess)
	}

	connState := s.ConnState
	s.ConnState = func(c net.Conn, state http.ConnState) {
		if state == http.StateClosed || state == http.StateHijacked {
			if v, ok := sessions.LoadAndDelete(c); ok {
				v.(*connSession).close()
			}
		}

		if connState != nil {
			connState(c, state)
		}
	}

	return s
}

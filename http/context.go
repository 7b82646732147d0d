// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jcmturner/goidentity/v6"
	"github.com/jcmturner/gokrb5/v8/credentials"

	"github.com/golang-auth/go-gssapi-acceptor"
)

type contextKey struct {
	name string
}

func (k *contextKey) String() string { return "gssapi-acceptor/http context value " + k.name }

var sessionContextKey = &contextKey{"session"}
var initiatorContextKey = &contextKey{"initiator"}

// Keys of the attributes set on the goidentity.Identity placed in the request context.
const (
	AttributeAuthorizationData          = "gssapi-acceptor/authorization-data"
	AttributeAuthorizationAuthenticated = "gssapi-acceptor/authorization-authenticated"
	AttributeContextFlags               = "gssapi-acceptor/context-flags"
)

// InitiatorName is the authenticated initiator of a request.
type InitiatorName struct {
	// PrincipalName is the fully qualified name of the initiator
	PrincipalName string

	// Identity holds the flags, lifetime and authorization data of the context
	Identity *acceptor.Identity
}

func stashSession(ctx context.Context, s *connSession) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

func getSessionContext(ctx context.Context) *connSession {
	s, ok := ctx.Value(sessionContextKey).(*connSession)
	if !ok {
		return nil
	}
	return s
}

func stashInitiatorName(ctx context.Context, initiatorName *InitiatorName) context.Context {
	return context.WithValue(ctx, initiatorContextKey, initiatorName)
}

// GetInitiatorName returns the initiator name from the request context if available.
// This can be used by the 'next' http handler called by [Handler.ServeHTTP].
func GetInitiatorName(r *http.Request) (*InitiatorName, bool) {
	initiatorName, ok := r.Context().Value(initiatorContextKey).(*InitiatorName)
	return initiatorName, ok
}

// setIdentity records the initiator in the request context, both as an InitiatorName and
// as a goidentity.Identity for handlers written against gokrb5's SPNEGO middleware.
func setIdentity(r *http.Request, id *acceptor.Identity, authTime time.Time) *http.Request {
	r = r.WithContext(stashInitiatorName(r.Context(), &InitiatorName{
		PrincipalName: id.Principal,
		Identity:      id,
	}))

	return goidentity.AddToHTTPRequestContext(newGoIdentity(id, authTime), r)
}

func newGoIdentity(id *acceptor.Identity, authTime time.Time) goidentity.Identity {
	user, realm := splitPrincipal(id.Principal)

	c := credentials.New(user, realm)
	c.SetDisplayName(id.Principal)
	c.SetAuthenticated(true)
	c.SetAuthTime(authTime)
	if id.ExpiresAt.Status == acceptor.GssLifetimeAvailable {
		c.SetValidUntil(id.ExpiresAt.ExpiresAt)
	}

	// service principals are not people
	c.SetHuman(!strings.Contains(user, "/"))

	c.SetAttribute(AttributeAuthorizationData, id.AuthorizationData)
	c.SetAttribute(AttributeAuthorizationAuthenticated, id.AuthorizationAuthenticated)
	c.SetAttribute(AttributeContextFlags, id.Flags)

	return c
}

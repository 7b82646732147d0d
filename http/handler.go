// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// DefaultPendingTimeout bounds how long a negotiation may wait for the initiator's next
// token on a connection.
const DefaultPendingTimeout = 30 * time.Second

// Handler is a http.Handler that performs SPNEGO authentication with the Negotiate scheme
// and passes the initiator to the next handler.
type Handler struct {
	mech           acceptor.Mechanism
	credential     acceptor.Credential
	next           http.Handler
	logger         *slog.Logger
	contextOptions []acceptor.Option
	pendingTimeout time.Duration
	now            func() time.Time
}

// HandlerOption is a function that can be used to configure the Handler
type HandlerOption func(s *Handler)

// WithLogger sets the logger used by the handler and the contexts it creates.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(s *Handler) {
		s.logger = logger
	}
}

// WithContextOptions adds options applied to every acceptor context the handler creates.
func WithContextOptions(opts ...acceptor.Option) HandlerOption {
	return func(s *Handler) {
		s.contextOptions = append(s.contextOptions, opts...)
	}
}

// WithPendingTimeout changes DefaultPendingTimeout.
func WithPendingTimeout(d time.Duration) HandlerOption {
	return func(s *Handler) {
		s.pendingTimeout = d
	}
}

// NewHandler creates a new Handler that accepts contexts with mech using the acceptor
// credential cred, then calls next.
func NewHandler(mech acceptor.Mechanism, cred acceptor.Credential, next http.Handler, options ...HandlerOption) *Handler {
	h := &Handler{
		mech:           mech,
		credential:     cred,
		next:           next,
		logger:         slog.New(slog.DiscardHandler),
		pendingTimeout: DefaultPendingTimeout,
		now:            time.Now,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// ServeHTTP authenticates the request and calls the next handler with the initiator in the
// request context.  A negotiation needing another round answers 401 with the acceptor's
// token; it can only continue if the server was prepared with [ServerWithStashConn].
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authzType, authzToken := parseAuthzHeader(&r.Header)
	if authzType != "negotiate" || authzToken == "" {
		h.challenge(w, nil, http.StatusUnauthorized)
		return
	}

	rawToken, err := base64.StdEncoding.DecodeString(authzToken)
	if err != nil {
		h.logger.Debug("undecodable negotiate token", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "malformed Negotiate token", http.StatusBadRequest)
		return
	}

	secCtx, outToken, err := h.step(r, rawToken)
	if err != nil {
		h.logger.Info("negotiation failed", "remote", r.RemoteAddr, "error", err)
		status := http.StatusUnauthorized
		if errors.Is(err, acceptor.ErrAuthorizationDataFailed) {
			status = http.StatusForbidden
		}
		h.challenge(w, nil, status)
		return
	}

	if secCtx.ContinueNeeded() {
		if sess := getSessionContext(r.Context()); sess != nil {
			sess.park(h, secCtx, h.now().Add(h.pendingTimeout))
		} else {
			h.deleteContext(secCtx)
		}
		h.challenge(w, outToken, http.StatusUnauthorized)
		return
	}

	id, _ := secCtx.Identity()
	h.deleteContext(secCtx)
	h.logger.Debug("request authenticated", "remote", r.RemoteAddr, "principal", id.Principal)

	if len(outToken) > 0 {
		w.Header().Set("WWW-Authenticate", negotiateChallenge(outToken))
	}

	h.next.ServeHTTP(w, setIdentity(r, id, h.now()))
}

// step feeds token to the connection's pending context, or to a fresh one.  A pending
// context that rejects the token is dropped and the token retried on a fresh context, as
// the initiator may have restarted the negotiation.
func (h *Handler) step(r *http.Request, token []byte) (*acceptor.SecContext, []byte, error) {
	if sess := getSessionContext(r.Context()); sess != nil {
		if secCtx := sess.take(h, h.now()); secCtx != nil {
			out, err := secCtx.Step(token)
			if err == nil {
				return secCtx, out, nil
			}

			h.logger.Debug("pending negotiation rejected token, restarting", "remote", r.RemoteAddr, "error", err)
			h.deleteContext(secCtx)
		}
	}

	secCtx := h.newContext()
	out, err := secCtx.Step(token)
	if err != nil {
		h.deleteContext(secCtx)
		return nil, nil, err
	}

	return secCtx, out, nil
}

func (h *Handler) newContext() *acceptor.SecContext {
	opts := append([]acceptor.Option{acceptor.WithLogger(h.logger)}, h.contextOptions...)
	return acceptor.New(h.mech, h.credential, opts...)
}

func (h *Handler) deleteContext(secCtx *acceptor.SecContext) {
	if err := secCtx.Delete(); err != nil {
		h.logger.Warn("context deletion failed", "error", err)
	}
}

func (h *Handler) challenge(w http.ResponseWriter, token []byte, status int) {
	w.Header().Set("WWW-Authenticate", negotiateChallenge(token))
	http.Error(w, http.StatusText(status), status)
}

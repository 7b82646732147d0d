// SPDX-License-Identifier: Apache-2.0

package acceptor

import (
	"errors"
	"log/slog"
	"time"
)

// State is the negotiation state of a SecContext.
type State int

const (
	StateFresh       State = iota // no token processed yet
	StateInProgress               // waiting for another token from the initiator
	StateEstablished              // negotiation complete, identity available
	StateFailed                   // negotiation failed; terminal
	StateDeleted                  // mechanism state released; terminal
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateInProgress:
		return "in-progress"
	case StateEstablished:
		return "established"
	case StateFailed:
		return "failed"
	case StateDeleted:
		return "deleted"
	}

	return "unknown"
}

// LogonInfoAttribute names the PAC logon information buffer as a name attribute.
const LogonInfoAttribute = "urn:mspac:logon-info"

// SecContext is the acceptor side of one SPNEGO negotiation.
//
// A SecContext is owned by a single goroutine; it has no internal locking.  Independent
// contexts may share a Mechanism and a Credential.
type SecContext struct {
	mech   Mechanism
	cred   Credential
	handle ContextHandle

	state    State
	identity *Identity

	logger    *slog.Logger
	attribute string
	paging    bool
	now       func() time.Time
}

// Option configures a SecContext.
type Option func(c *SecContext)

// WithLogger sets the logger used for negotiation events.  Contexts log nothing by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SecContext) {
		c.logger = logger
	}
}

// WithAuthorizationAttribute changes the name attribute queried for authorization data
// once the context is established.  The default is LogonInfoAttribute.
func WithAuthorizationAttribute(name string) Option {
	return func(c *SecContext) {
		c.attribute = name
	}
}

// WithAttributePaging makes the identity extractor fetch every value of the authorization
// attribute rather than only the first.
func WithAttributePaging() Option {
	return func(c *SecContext) {
		c.paging = true
	}
}

// New returns a fresh acceptor context that negotiates with mech using the acceptor
// credential cred.  The credential is borrowed and never released by the context.
func New(mech Mechanism, cred Credential, opts ...Option) *SecContext {
	c := &SecContext{
		mech:      mech,
		cred:      cred,
		logger:    slog.New(slog.DiscardHandler),
		attribute: LogonInfoAttribute,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Step processes one token from the initiator and returns the token to send back, which
// may be empty.  Once the mechanism reports completion the initiator's identity is
// extracted and the context becomes established.  Any failure leaves the context in
// StateFailed.
func (c *SecContext) Step(input []byte) ([]byte, error) {
	switch c.state {
	case StateEstablished:
		return nil, ErrContextEstablished
	case StateFailed:
		return nil, ErrContextFailed
	case StateDeleted:
		return nil, ErrContextDeleted
	}

	in := FromBytes(input)
	defer in.Release() //nolint:errcheck

	res := c.mech.AcceptSecContext(&c.handle, c.cred, in, MechSPNEGO)
	c.logger.Debug("accept step",
		"state", c.state,
		"major", res.Status.Major,
		"minor", res.Status.Minor,
		"input_len", len(input),
		"output_len", res.OutputToken.Len())

	out, releaseErr := res.OutputToken.CopyAndRelease()
	if releaseErr != nil {
		c.logger.Warn("output token release failed", "error", releaseErr)
	}

	switch {
	case res.Status.IsComplete():
		if releaseErr != nil {
			return nil, c.fail(releaseErr)
		}

		id, err := c.extractIdentity(res)
		if err != nil {
			return nil, c.fail(err)
		}

		c.identity = id
		c.state = StateEstablished
		c.logger.Debug("context established", "principal", id.Principal, "flags", id.Flags.String())

		return out, nil

	case res.Status.IsContinueNeeded():
		if releaseErr != nil {
			return nil, c.fail(releaseErr)
		}

		c.state = StateInProgress
		return out, nil
	}

	var err error = newStatusError(ErrNegotiationFailed, res.Status, MechSPNEGO)
	if releaseErr != nil {
		err = errors.Join(err, releaseErr)
	}

	return nil, c.fail(err)
}

func (c *SecContext) fail(err error) error {
	c.state = StateFailed
	c.identity = nil
	c.logger.Debug("negotiation failed", "error", err)

	return err
}

// State returns the negotiation state.
func (c *SecContext) State() State {
	return c.state
}

// IsEstablished reports whether negotiation has completed successfully.
func (c *SecContext) IsEstablished() bool {
	return c.state == StateEstablished
}

// ContinueNeeded reports whether the context is waiting for another initiator token.
func (c *SecContext) ContinueNeeded() bool {
	return c.state == StateInProgress
}

// Identity returns the authenticated initiator, or ErrContextNotEstablished.
func (c *SecContext) Identity() (*Identity, error) {
	if c.state != StateEstablished || c.identity == nil {
		return nil, ErrContextNotEstablished
	}

	return c.identity, nil
}

// Principal returns the initiator's display name, or "" before establishment.
func (c *SecContext) Principal() string {
	if id, err := c.Identity(); err == nil {
		return id.Principal
	}
	return ""
}

// Flags returns the context flags, or zero before establishment.
func (c *SecContext) Flags() ContextFlag {
	if id, err := c.Identity(); err == nil {
		return id.Flags
	}
	return 0
}

// AuthorizationData returns the raw authorization payload, or nil before establishment.
func (c *SecContext) AuthorizationData() []byte {
	if id, err := c.Identity(); err == nil {
		return id.AuthorizationData
	}
	return nil
}

// ExpiresAt returns the context lifetime reported at establishment.
func (c *SecContext) ExpiresAt() GssLifetime {
	if id, err := c.Identity(); err == nil {
		return id.ExpiresAt
	}
	return GssLifetime{Status: GssLifetimeExpired}
}

// Delete releases the mechanism state held by the context.  It may be called in any state
// but only once; later calls return ErrContextDeleted.
func (c *SecContext) Delete() error {
	if c.state == StateDeleted {
		return ErrContextDeleted
	}

	c.state = StateDeleted
	c.identity = nil

	if c.handle == nil {
		return nil
	}

	status := c.mech.DeleteSecContext(&c.handle)
	c.handle = nil

	if !status.IsComplete() {
		err := newStatusError(ErrContextDeletionFailed, status, MechSPNEGO)
		c.logger.Warn("context deletion failed", "error", err)
		return err
	}

	return nil
}

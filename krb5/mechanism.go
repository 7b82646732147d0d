// SPDX-License-Identifier: Apache-2.0

// Package krb5 is a pure Go acceptor mechanism that negotiates Kerberos V (RFC 4121)
// inside SPNEGO (RFC 4178), using a keytab as the acceptor credential.
//
// The mechanism registers itself with the acceptor package under the name "krb5":
//
//	mech := acceptor.MustNewMechanism(krb5.Name)
//	cred, err := krb5.LoadCredential("/etc/krb5.keytab")
//	ctx := acceptor.New(mech, cred)
//
// Authorization data is exposed through the name attribute interface: the attribute
// "urn:mspac:" yields the encoded PAC and "urn:mspac:logon-info" and friends yield the
// individual PAC buffers.
package krb5

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// Name is the name the mechanism registers under.
const Name = "krb5"

func init() {
	acceptor.RegisterMechanism(Name, func() (acceptor.Mechanism, error) {
		return New(), nil
	})
}

// Mechanism implements acceptor.Mechanism.  A single Mechanism serves any number of
// concurrent contexts.
type Mechanism struct {
	logger *slog.Logger
	now    func() time.Time

	allocated atomic.Int64
	released  atomic.Int64
}

var _ acceptor.Mechanism = (*Mechanism)(nil)

// Option configures a Mechanism.
type Option func(m *Mechanism)

// WithLogger sets the logger for protocol events.  The mechanism logs nothing by default.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mechanism) {
		m.logger = logger
	}
}

// New returns a Kerberos acceptor mechanism.
func New(opts ...Option) *Mechanism {
	m := &Mechanism{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// bufferHandle identifies a buffer handed to the caller.
type bufferHandle struct {
	released atomic.Bool
}

func (m *Mechanism) newBuffer(value []byte) *acceptor.Buffer {
	m.allocated.Add(1)
	return acceptor.NewMechBuffer(m, value, &bufferHandle{})
}

// ReleaseBuffer releases a buffer returned by the mechanism.
func (m *Mechanism) ReleaseBuffer(b *acceptor.Buffer) acceptor.Status {
	h, ok := b.Handle().(*bufferHandle)
	if !ok {
		return acceptor.Failed(acceptor.MajorCallInaccessibleRead, 0)
	}
	if h.released.Swap(true) {
		return acceptor.Failed(acceptor.MajorFailure, 0)
	}

	m.released.Add(1)
	return acceptor.Complete()
}

// Outstanding returns the number of buffers handed out and not yet released.
func (m *Mechanism) Outstanding() int {
	return int(m.allocated.Load() - m.released.Load())
}

// DeleteSecContext discards the negotiation state.
func (m *Mechanism) DeleteSecContext(ctx *acceptor.ContextHandle) acceptor.Status {
	if ctx == nil {
		return acceptor.Failed(acceptor.MajorCallInaccessibleRead, 0)
	}

	if _, ok := (*ctx).(*secContext); !ok && *ctx != nil {
		return acceptor.Failed(acceptor.MajorNoContext, 0)
	}

	*ctx = nil
	return acceptor.Complete()
}

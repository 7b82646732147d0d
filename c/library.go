// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package gssapi

/*
#cgo LDFLAGS: -lgssapi_krb5
#include <gssapi/gssapi.h>
*/
import "C"

import (
	"log/slog"
	"sync/atomic"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// Name is the name the mechanism registers under.
const Name = "gssapi-c"

func init() {
	acceptor.RegisterMechanism(Name, func() (acceptor.Mechanism, error) {
		return New(), nil
	})
}

// Mechanism implements acceptor.Mechanism over the C bindings.
type Mechanism struct {
	logger *slog.Logger

	allocated atomic.Int64
	released  atomic.Int64
}

var _ acceptor.Mechanism = (*Mechanism)(nil)

// Option configures a Mechanism.
type Option func(m *Mechanism)

// WithLogger sets the logger used to report library errors.  Nothing is logged by default.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mechanism) {
		m.logger = logger
	}
}

// New returns a mechanism bound to the system GSSAPI library.
func New(opts ...Option) *Mechanism {
	m := &Mechanism{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Outstanding returns the number of library buffers handed out and not yet released.
func (m *Mechanism) Outstanding() int {
	return int(m.allocated.Load() - m.released.Load())
}

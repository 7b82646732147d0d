// SPDX-License-Identifier: Apache-2.0

package acceptor

import "time"

// GssLifetimeStatus defines the possible states of a GssLifetime
// instance
type GssLifetimeStatus int

const (
	// Indicates that the lifetime ExpiresAt value is valid
	GssLifetimeAvailable GssLifetimeStatus = iota

	// Indicates that the lifetime has expired and the ExpiresAt value is not valid
	GssLifetimeExpired

	// Indicates that the lifetime is indefinite;  the ExpiresAt value is not valid
	GssLifetimeIndefinite
)

// indefiniteTimeRec is GSS_C_INDEFINITE (RFC 2744 § 3.9.3)
const indefiniteTimeRec = 0xffffffff

// GssLifetime represents the lifetime of an accepted context.  The status is kept separate
// from the expiry time rather than overloading the time value as RFC 2743/2744 do.
type GssLifetime struct {
	Status    GssLifetimeStatus
	ExpiresAt time.Time
}

// MakeGssLifetime converts a mechanism time_rec value (seconds) relative to now.
func MakeGssLifetime(now time.Time, timeRec uint32) GssLifetime {
	switch timeRec {
	case 0:
		return GssLifetime{Status: GssLifetimeExpired}
	case indefiniteTimeRec:
		return GssLifetime{Status: GssLifetimeIndefinite}
	}

	return GssLifetime{
		Status:    GssLifetimeAvailable,
		ExpiresAt: now.Add(time.Duration(timeRec) * time.Second),
	}
}

// SPDX-License-Identifier: Apache-2.0

package acceptor

import (
	"errors"
	"fmt"
)

// Failure kinds reported by the acceptor.  Each failure carries the mechanism status in a
// *StatusError that unwraps to one of these kinds and to the decoded RFC 2743 status.
var (
	ErrNegotiationFailed       = errors.New("security context negotiation failed")
	ErrDisplayNameFailed       = errors.New("could not obtain the initiator's display name")
	ErrAuthorizationDataFailed = errors.New("could not obtain the authorization data attribute")
	ErrBufferReleaseFailed     = errors.New("mechanism buffer release failed")
	ErrContextDeletionFailed   = errors.New("security context deletion failed")
)

// Errors reporting a call that is not valid in the context's current state.
var (
	ErrContextNotEstablished = errors.New("security context is not established")
	ErrContextEstablished    = errors.New("security context is already established")
	ErrContextFailed         = errors.New("security context negotiation has already failed")
	ErrContextDeleted        = errors.New("security context has been deleted")
)

// StatusError describes a failed mechanism call.
type StatusError struct {
	Kind   error  // one of the Err...Failed kinds
	Status Status // major and minor codes reported by the mechanism
	Mech   Oid    // mechanism in use, if known
}

func newStatusError(kind error, status Status, mech Oid) *StatusError {
	return &StatusError{Kind: kind, Status: status, Mech: mech}
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Kind, e.Status)
	if len(e.Mech) > 0 {
		msg += " mech " + e.Mech.String()
	}
	if detail := e.Status.Err(); detail != nil {
		msg += ": " + detail.Error()
	}

	return msg
}

func (e *StatusError) Unwrap() []error {
	ret := []error{e.Kind}
	if detail := e.Status.Err(); detail != nil {
		ret = append(ret, detail)
	}

	return ret
}

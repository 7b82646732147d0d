// SPDX-License-Identifier: Apache-2.0

package acceptor

// ContextHandle is the mechanism's per-negotiation state.  It starts out nil and is
// updated in place by Mechanism.AcceptSecContext.
type ContextHandle any

// NameHandle is a mechanism name, typically the initiator's name returned on completion.
type NameHandle any

// Credential is an acceptor credential obtained outside this package.  The acceptor only
// ever borrows it.
type Credential any

// AcceptResult holds the outputs of a single accept step.
type AcceptResult struct {
	Status      Status
	OutputToken *Buffer     // token for the initiator, possibly empty; owned by the mechanism
	SourceName  NameHandle  // initiator name, set once the step completes
	Flags       ContextFlag // services available on the context
	TimeRec     uint32      // seconds the context remains valid, 0xffffffff when indefinite
}

// NameAttribute is one value of a named attribute of a mechanism name (RFC 6680 § 7.5).
type NameAttribute struct {
	Authenticated bool    // the value was integrity protected end to end
	Complete      bool    // all values of the attribute were returned
	Value         *Buffer // raw value, owned by the mechanism
	DisplayValue  *Buffer // printable value, owned by the mechanism; may be nil
}

// Mechanism is the acceptor-side binding to a GSS-API implementation.  Implementations
// must be safe for concurrent use by independent contexts; a single ContextHandle is
// only ever used by one goroutine at a time.
type Mechanism interface {
	BufferReleaser

	// AcceptSecContext processes one token from the initiator.  Channel bindings are
	// never supplied.  mech is the mechanism to negotiate, normally MechSPNEGO.
	AcceptSecContext(ctx *ContextHandle, cred Credential, input *Buffer, mech Oid) AcceptResult

	// DisplayName returns the printable form of name.
	DisplayName(name NameHandle) (Status, *Buffer)

	// GetNameAttribute queries one value of the attribute named by attr.  more is the
	// iteration cursor: -1 on the first call, updated by the mechanism to a positive
	// value while further values remain and to 0 after the last.
	GetNameAttribute(name NameHandle, attr *Buffer, more *int) (NameAttribute, Status)

	// DeleteSecContext releases the mechanism state held by ctx and sets it to nil.
	DeleteSecContext(ctx *ContextHandle) Status
}

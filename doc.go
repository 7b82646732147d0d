// SPDX-License-Identifier: Apache-2.0

/*
Package acceptor implements the accepting side of SPNEGO security context
negotiation over a GSS-API mechanism.

A [SecContext] consumes tokens from an initiator, returns the tokens to send back
and, once negotiation completes, exposes the initiator's principal name, the
negotiated context flags and the raw authorization data (by default the
Microsoft PAC logon information buffer, attribute "urn:mspac:logon-info").

The acceptor talks to the mechanism only through the [Mechanism] interface.  Two
implementations are provided:

  - [github.com/golang-auth/go-gssapi-acceptor/krb5], a pure Go Kerberos V
    mechanism using a keytab
  - [github.com/golang-auth/go-gssapi-acceptor/c], bindings to the system
    MIT Kerberos GSS-API library (requires cgo)

Typical use:

	mech := krb5.New()
	cred, err := krb5.NewCredential(kt)
	...
	secCtx := acceptor.New(mech, cred)
	defer secCtx.Delete() //nolint:errcheck

	out, err := secCtx.Step(token)
	...
	if secCtx.IsEstablished() {
		fmt.Println(secCtx.Principal())
	}

Memory handed out by a mechanism is wrapped in an owned [Buffer] and is always
released exactly once through the mechanism, including on failure paths.
*/
package acceptor

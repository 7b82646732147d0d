// SPDX-License-Identifier: Apache-2.0

// Package gssapi is an acceptor mechanism backed by the system GSSAPI library (MIT
// libgssapi_krb5) through cgo.  SPNEGO negotiation, ticket verification and PAC handling
// are performed by the library.
//
// The mechanism registers itself with the acceptor package under the name "gssapi-c"
// when the package is built with cgo:
//
//	import _ "github.com/golang-auth/go-gssapi-acceptor/c"
//
//	mech := acceptor.MustNewMechanism("gssapi-c")
//	cred, err := gssapi.AcquireKeytabCredential("/etc/krb5.keytab")
//	ctx := acceptor.New(mech, cred)
//
// A nil credential makes the library use its default acceptor credential, normally the
// keytab named by KRB5_KTNAME.  Name attributes are looked up with gss_get_name_attribute
// (RFC 6680) so the attribute names are those understood by the library, for example
// "urn:mspac:logon-info".
package gssapi

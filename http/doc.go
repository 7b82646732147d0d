// SPDX-License-Identifier: Apache-2.0

/*
Package http provides a SPNEGO (Negotiate) authenticating [http.Handler]
supporting the server side of RFC 4559.

	import (
		"net/http"

		"github.com/golang-auth/go-gssapi-acceptor/krb5"
		ghttp "github.com/golang-auth/go-gssapi-acceptor/http"
	)

	cred, err := krb5.LoadCredential("/etc/krb5.keytab")
	...

	h := ghttp.NewHandler(krb5.New(), cred, appHandler)
	log.Fatal(http.ListenAndServe(":8080", h))

# Authentication

A request without a Negotiate Authorization header is answered with 401 and a
bare "WWW-Authenticate: Negotiate" challenge.  A request carrying a token is
fed to a fresh acceptor context.  Once the context is established the reply
token, if any, is returned in a WWW-Authenticate header alongside the next
handler's response, and the initiator is available to the next handler:

	func appHandler(w http.ResponseWriter, r *http.Request) {
		in, ok := ghttp.GetInitiatorName(r)
		...
		fmt.Fprintf(w, "Hello, %s", in.PrincipalName)
	}

The initiator is also stored as a goidentity.Identity, so handlers written for
the gokrb5 SPNEGO middleware can use goidentity.FromHTTPRequestContext.  The
authorization data (the PAC logon information for Kerberos) is attached as the
AttributeAuthorizationData attribute.

Failed negotiations are answered with 401, except when the initiator was
authenticated but its authorization data could not be retrieved, which is
answered with 403.

# Multi-round negotiation

A negotiation that needs another token from the initiator is answered with 401
and the acceptor's token.  RFC 4559 requires the initiator to send its next
token on the same connection.  Prepare the server with [ServerWithStashConn] to
keep the pending context with the connection:

	server := ghttp.ServerWithStashConn(&http.Server{
		Addr:    ":8080",
		Handler: h,
	})
	log.Fatal(server.ListenAndServe())

Pending contexts are deleted when the connection closes or after
[DefaultPendingTimeout].  Without ServerWithStashConn every negotiation must
complete in a single round, which is the case for Kerberos clients that send
an optimistic mechanism token.
*/
package http

// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const negotiateScheme = "Negotiate"

// parseAuthzHeader splits the Authorization header into a lower-cased scheme and its
// credentials.
func parseAuthzHeader(headers *http.Header) (string, string) {
	header := headers.Get("Authorization")
	if header == "" {
		return "", ""
	}
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 {
		return strings.ToLower(parts[0]), ""
	}
	return strings.ToLower(parts[0]), strings.TrimSpace(parts[1])
}

// negotiateChallenge formats a WWW-Authenticate value, with the token when there is one.
func negotiateChallenge(token []byte) string {
	if len(token) == 0 {
		return negotiateScheme
	}
	return negotiateScheme + " " + base64.StdEncoding.EncodeToString(token)
}

// splitPrincipal separates "user@REALM" at the last '@'.
func splitPrincipal(principal string) (string, string) {
	idx := strings.LastIndex(principal, "@")
	if idx < 0 {
		return principal, ""
	}
	return principal[:idx], principal[idx+1:]
}

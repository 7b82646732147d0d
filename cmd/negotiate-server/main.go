// SPDX-License-Identifier: Apache-2.0

// Command negotiate-server is an HTTP server that authenticates clients with SPNEGO.
package main

import (
	"fmt"
	"os"

	"github.com/golang-auth/go-gssapi-acceptor/cmd/negotiate-server/commands"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.Version = version
	commands.Commit = commit

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

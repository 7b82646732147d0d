// SPDX-License-Identifier: Apache-2.0

// Package commands implements the negotiate-server command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/golang-auth/go-gssapi-acceptor/internal/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	cfgFile string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "negotiate-server",
		Short: "HTTP server with SPNEGO (Negotiate) authentication",
		Long: `negotiate-server accepts Kerberos authenticated HTTP requests using the
Negotiate scheme (RFC 4559) and echoes the authenticated principal.

Configuration is read from the file given with --config, then NEGOTIATE_*
environment variables, then command line flags.  For example:

  NEGOTIATE_KERBEROS_KEYTAB=/srv/http.keytab negotiate-server serve --listen :8443`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	serve := newServeCmd()
	config.RegisterFlags(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newVersionCmd())
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

// Execute runs the command line.  This is called by main.main().
func Execute() error {
	return newRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("negotiate-server %s (%s)\n", Version, Commit)
		},
	}
}

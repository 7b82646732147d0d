// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package commands

import (
	"log/slog"

	"github.com/golang-auth/go-gssapi-acceptor"
	gssapi "github.com/golang-auth/go-gssapi-acceptor/c"
	"github.com/golang-auth/go-gssapi-acceptor/internal/config"
)

func init() {
	backends[gssapi.Name] = nativeBackend
}

// nativeBackend uses the system GSSAPI library.  Principal and clock skew are left to the
// library's own configuration.
func nativeBackend(cfg *config.Config, logger *slog.Logger) (acceptor.Mechanism, acceptor.Credential, func() error, error) {
	cred, err := gssapi.AcquireKeytabCredential(cfg.Kerberos.Keytab)
	if err != nil {
		return nil, nil, nil, err
	}

	mech := gssapi.New(gssapi.WithLogger(logger.With("mech", gssapi.Name)))
	return mech, cred, cred.Release, nil
}

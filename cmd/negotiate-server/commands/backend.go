// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/golang-auth/go-gssapi-acceptor"
	"github.com/golang-auth/go-gssapi-acceptor/internal/config"
	"github.com/golang-auth/go-gssapi-acceptor/krb5"
)

// backend builds a mechanism and its acceptor credential.  The returned function releases
// the credential.
type backend func(cfg *config.Config, logger *slog.Logger) (acceptor.Mechanism, acceptor.Credential, func() error, error)

var backends = map[string]backend{
	krb5.Name: krb5Backend,
}

func krb5Backend(cfg *config.Config, logger *slog.Logger) (acceptor.Mechanism, acceptor.Credential, func() error, error) {
	opts := []krb5.CredentialOption{}
	if cfg.Kerberos.Principal != "" {
		opts = append(opts, krb5.WithKeytabPrincipal(cfg.Kerberos.Principal))
	}
	if cfg.Kerberos.MaxClockSkew > 0 {
		opts = append(opts, krb5.WithMaxClockSkew(cfg.Kerberos.MaxClockSkew))
	}

	cred, err := krb5.LoadCredential(cfg.Kerberos.Keytab, opts...)
	if err != nil {
		return nil, nil, nil, err
	}

	mech := krb5.New(krb5.WithLogger(logger.With("mech", krb5.Name)))
	return mech, cred, func() error { return nil }, nil
}

func newBackend(cfg *config.Config, logger *slog.Logger) (acceptor.Mechanism, acceptor.Credential, func() error, error) {
	b, ok := backends[cfg.Mechanism]
	if !ok {
		return nil, nil, nil, fmt.Errorf("unknown mechanism %q (available: %s)", cfg.Mechanism, strings.Join(backendNames(), ", "))
	}

	return b(cfg, logger)
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"errors"
	"fmt"
	"time"

	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/service"
	"github.com/jcmturner/gokrb5/v8/types"
)

// DefaultMaxClockSkew is the clock skew tolerated between initiator and acceptor.
const DefaultMaxClockSkew = 5 * time.Minute

var ErrEmptyKeytab = errors.New("keytab has no entries")

// Credential is an acceptor credential: the service keys held in a keytab.  It is
// read only once built and may be shared by any number of contexts.
type Credential struct {
	keytab       *keytab.Keytab
	principal    string
	maxClockSkew time.Duration
}

// CredentialOption configures a Credential.
type CredentialOption func(c *Credential)

// WithKeytabPrincipal makes the acceptor look up its key under principal, such as
// "HTTP/www.example.com", rather than the service name in each ticket.
func WithKeytabPrincipal(principal string) CredentialOption {
	return func(c *Credential) {
		c.principal = principal
	}
}

// WithMaxClockSkew sets the tolerated clock skew.
func WithMaxClockSkew(d time.Duration) CredentialOption {
	return func(c *Credential) {
		c.maxClockSkew = d
	}
}

// NewCredential wraps a keytab as an acceptor credential.
func NewCredential(kt *keytab.Keytab, opts ...CredentialOption) (*Credential, error) {
	if kt == nil || len(kt.Entries) == 0 {
		return nil, ErrEmptyKeytab
	}

	c := &Credential{
		keytab:       kt,
		maxClockSkew: DefaultMaxClockSkew,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// LoadCredential reads a keytab file and wraps it as an acceptor credential.
func LoadCredential(path string, opts ...CredentialOption) (*Credential, error) {
	kt, err := keytab.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading keytab %s: %w", path, err)
	}

	return NewCredential(kt, opts...)
}

// settings builds the gokrb5 service settings used to verify an AP-REQ.  PAC decoding
// is left to the name attribute interface.
func (c *Credential) settings() *service.Settings {
	opts := []func(*service.Settings){
		service.MaxClockSkew(c.maxClockSkew),
		service.DecodePAC(false),
	}
	if c.principal != "" {
		opts = append(opts, service.KeytabPrincipal(c.principal))
	}

	return service.NewSettings(c.keytab, opts...)
}

// serviceKey finds the key that sealed tkt.
func (c *Credential) serviceKey(sname types.PrincipalName, realm string, kvno int, etype int32) (types.EncryptionKey, error) {
	if c.principal != "" {
		sname, _ = types.ParseSPNString(c.principal)
	}

	key, _, err := c.keytab.GetEncryptionKey(sname, realm, kvno, etype)
	return key, err
}

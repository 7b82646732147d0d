// SPDX-License-Identifier: Apache-2.0

package krb5

/*
 * Derived from github.com/jcmturner/gokrb5/v8/spnego/krb5Token.go
 *
 * The modified version accepts the legacy Microsoft mechanism OID and marshals
 * AP-REP and KRB-ERROR tokens for the acceptor; verification is moved out.
 */

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/asn1tools"
	"github.com/jcmturner/gokrb5/v8/messages"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// GSSAPI KRB5 mech token IDs, RFC 4121 § 4.1
var (
	tokIDAPReq    = []byte{0x01, 0x00}
	tokIDAPRep    = []byte{0x02, 0x00}
	tokIDKRBError = []byte{0x03, 0x00}
)

var (
	oidKRB5   = mustObjectIdentifier(acceptor.MechKRB5)
	oidMSKRB5 = mustObjectIdentifier(acceptor.MechMSKRB5)
)

func mustObjectIdentifier(o acceptor.Oid) asn1.ObjectIdentifier {
	id, err := o.ObjectIdentifier()
	if err != nil {
		panic(err)
	}

	return id
}

// isKRB5 reports whether id names Kerberos V, under either OID.
func isKRB5(id asn1.ObjectIdentifier) bool {
	return id.Equal(oidKRB5) || id.Equal(oidMSKRB5)
}

// mechToken is the krb5 inner context token carried in a SPNEGO mechToken.
type mechToken struct {
	OID      asn1.ObjectIdentifier
	tokID    []byte
	APReq    *messages.APReq
	APRep    *apRep
	KRBError *messages.KRBError
}

var errShortToken = errors.New("krb5 token too short")

// marshal a mechToken into a slice of bytes.
func (m *mechToken) marshal() ([]byte, error) {
	b, err := asn1.Marshal(m.OID)
	if err != nil {
		return nil, fmt.Errorf("marshalling krb5 token OID: %w", err)
	}
	b = append(b, m.tokID...)

	var tb []byte
	switch {
	case bytes.Equal(m.tokID, tokIDAPReq) && m.APReq != nil:
		tb, err = m.APReq.Marshal()
	case bytes.Equal(m.tokID, tokIDAPRep) && m.APRep != nil:
		tb, err = m.APRep.marshal()
	case bytes.Equal(m.tokID, tokIDKRBError) && m.KRBError != nil:
		tb, err = m.KRBError.Marshal()
	default:
		err = fmt.Errorf("no message for token ID %x", m.tokID)
	}
	if err != nil {
		return nil, fmt.Errorf("marshalling krb5 token: %w", err)
	}
	b = append(b, tb...)

	return asn1tools.AddASNAppTag(b, 0), nil
}

// unmarshal a mechToken.
func (m *mechToken) unmarshal(b []byte) error {
	m.APReq = nil
	m.APRep = nil
	m.KRBError = nil

	var oid asn1.ObjectIdentifier
	r, err := asn1.UnmarshalWithParams(b, &oid, "application,explicit,tag:0")
	if err != nil {
		return fmt.Errorf("unmarshalling krb5 token OID: %w", err)
	}
	if !isKRB5(oid) {
		return fmt.Errorf("krb5 token OID is %s, not %s", oid.String(), oidKRB5.String())
	}
	m.OID = oid

	if len(r) < 2 {
		return errShortToken
	}
	m.tokID = r[0:2]

	switch {
	case bytes.Equal(m.tokID, tokIDAPReq):
		var a messages.APReq
		if err = a.Unmarshal(r[2:]); err != nil {
			return fmt.Errorf("unmarshalling krb5 token AP-REQ: %w", err)
		}
		m.APReq = &a
	case bytes.Equal(m.tokID, tokIDAPRep):
		var a apRep
		if err = a.unmarshal(r[2:]); err != nil {
			return fmt.Errorf("unmarshalling krb5 token AP-REP: %w", err)
		}
		m.APRep = &a
	case bytes.Equal(m.tokID, tokIDKRBError):
		var a messages.KRBError
		if err = a.Unmarshal(r[2:]); err != nil {
			return fmt.Errorf("unmarshalling krb5 token KRB-ERROR: %w", err)
		}
		m.KRBError = &a
	default:
		return fmt.Errorf("unknown krb5 token ID %x", m.tokID)
	}

	return nil
}

// Length of the authenticator checksum up to and including the context flags.
const gssChecksumLen = 24

// checksumFlags returns the context flags the initiator requested in a GSSAPI checksum.
func checksumFlags(cksum []byte) (acceptor.ContextFlag, error) {
	if len(cksum) < gssChecksumLen {
		return 0, fmt.Errorf("authenticator checksum is %d bytes, need %d", len(cksum), gssChecksumLen)
	}

	return acceptor.ContextFlag(binary.LittleEndian.Uint32(cksum[20:24])), nil
}

// SPDX-License-Identifier: Apache-2.0

package acceptor

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jcmturner/gofork/encoding/asn1"
)

// Oid represents an Object Identifier as used throughout GSSAPI. Elements of the byte slice
// represent the DER encoding of the object identifier, excluding the ASN.1 header (two bytes:
// tag value 0x06 and length) as per the Microsoft documentation on object identifiers.
type Oid []byte

var (
	// MechSPNEGO is the negotiation pseudo-mechanism (RFC 4178), 1.3.6.1.5.5.2
	MechSPNEGO = Oid{0x2b, 0x06, 0x01, 0x05, 0x05, 0x02}

	// MechKRB5 is the Kerberos V mechanism (RFC 4121), 1.2.840.113554.1.2.2
	MechKRB5 = Oid{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x12, 0x01, 0x02, 0x02}

	// MechMSKRB5 is the OID older Microsoft clients use for Kerberos V, 1.2.840.48018.1.2.2
	MechMSKRB5 = Oid{0x2a, 0x86, 0x48, 0x82, 0xf7, 0x12, 0x01, 0x02, 0x02}
)

// OidFromObjectIdentifier converts a parsed ASN.1 object identifier into its Oid form.
func OidFromObjectIdentifier(id asn1.ObjectIdentifier) (Oid, error) {
	der, err := asn1.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("encoding object identifier %s: %w", id, err)
	}

	// strip the tag and the (short form) length
	if len(der) < 2 || der[1] > 0x7f {
		return nil, fmt.Errorf("object identifier %s too long", id)
	}

	return Oid(der[2:]), nil
}

// OidFromString parses a dotted decimal object identifier such as "1.2.840.113554.1.2.2".
func OidFromString(s string) (Oid, error) {
	parts := strings.Split(s, ".")
	id := make(asn1.ObjectIdentifier, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad object identifier %q: %w", s, err)
		}
		id[i] = n
	}

	return OidFromObjectIdentifier(id)
}

// ObjectIdentifier decodes the OID into its arc form.
func (o Oid) ObjectIdentifier() (asn1.ObjectIdentifier, error) {
	der := make([]byte, 0, len(o)+2)
	der = append(der, 0x06, byte(len(o)))
	der = append(der, o...)

	var id asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(der, &id); err != nil {
		return nil, err
	}

	return id, nil
}

// Equal reports whether two OIDs have the same encoding.
func (o Oid) Equal(other Oid) bool {
	return bytes.Equal(o, other)
}

func (o Oid) String() string {
	id, err := o.ObjectIdentifier()
	if err != nil || len(o) > 0x7f {
		return fmt.Sprintf("%x", []byte(o))
	}

	return id.String()
}

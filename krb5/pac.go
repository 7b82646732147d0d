// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana/adtype"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/pac"
	"github.com/jcmturner/gokrb5/v8/types"
	"github.com/jcmturner/rpc/v2/mstypes"
)

// PACAttributePrefix names the PAC, or one of its buffers, as a name attribute.
const PACAttributePrefix = "urn:mspac:"

// PAC info buffer types, MS-PAC § 2.4
const (
	pacLogonInfo         uint32 = 1
	pacCredentialsInfo   uint32 = 2
	pacServerChecksum    uint32 = 6
	pacPrivSvrChecksum   uint32 = 7
	pacClientInfo        uint32 = 10
	pacDelegationInfo    uint32 = 11
	pacUPNDNSInfo        uint32 = 12
	pacClientClaimsInfo  uint32 = 13
	pacDeviceInfo        uint32 = 14
	pacDeviceClaimsInfo  uint32 = 15
	pacTicketChecksum    uint32 = 16
	pacAttributesInfo    uint32 = 17
	pacRequestorInfo     uint32 = 18
	pacHeaderLen                = 8
	pacInfoBufferLen            = 16
)

var pacAttributeTypes = map[string]uint32{
	"logon-info":         pacLogonInfo,
	"credentials-info":   pacCredentialsInfo,
	"server-checksum":    pacServerChecksum,
	"privsvr-checksum":   pacPrivSvrChecksum,
	"client-info":        pacClientInfo,
	"delegation-info":    pacDelegationInfo,
	"upn-dns-info":       pacUPNDNSInfo,
	"client-claims-info": pacClientClaimsInfo,
	"device-info":        pacDeviceInfo,
	"device-claims-info": pacDeviceClaimsInfo,
	"ticket-checksum":    pacTicketChecksum,
	"attributes-info":    pacAttributesInfo,
	"requestor-info":     pacRequestorInfo,
}

var (
	errNoPAC        = errors.New("ticket carries no PAC")
	errNoAttribute  = errors.New("no such name attribute")
	errBadPACHeader = errors.New("malformed PAC header")
)

// findPAC returns the encoded PAC from a ticket's authorization data.  The PAC is only
// honoured inside AD-IF-RELEVANT.
func findPAC(ad types.AuthorizationData, nested bool) ([]byte, bool) {
	for _, e := range ad {
		switch {
		case e.ADType == adtype.ADWin2KPAC && nested:
			return e.ADData, true
		case e.ADType == adtype.ADIfRelevant:
			var inner types.AuthorizationData
			if err := inner.Unmarshal(e.ADData); err != nil {
				continue
			}
			if b, ok := findPAC(inner, true); ok {
				return b, true
			}
		}
	}

	return nil, false
}

// pacBuffers is the buffer table of a PAC.  Buffer contents are not decoded.
type pacBuffers struct {
	data    []byte
	buffers []pac.InfoBuffer
}

func parsePAC(b []byte) (*pacBuffers, error) {
	if len(b) < pacHeaderLen {
		return nil, errBadPACHeader
	}

	// gokrb5 sizes the table from the untrusted count
	n, err := mstypes.NewReader(bytes.NewReader(b)).Uint32()
	if err != nil {
		return nil, errBadPACHeader
	}
	if uint64(n) > uint64(len(b)-pacHeaderLen)/pacInfoBufferLen {
		return nil, fmt.Errorf("%w: %d buffers in %d bytes", errBadPACHeader, n, len(b))
	}

	var p pac.PACType
	if err := p.Unmarshal(b); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPACHeader, err)
	}

	for _, ib := range p.Buffers {
		if ib.Offset > uint64(len(b)) || uint64(ib.CBBufferSize) > uint64(len(b))-ib.Offset {
			return nil, fmt.Errorf("%w: buffer type %d out of range", errBadPACHeader, ib.ULType)
		}
	}

	return &pacBuffers{data: b, buffers: p.Buffers}, nil
}

func (p *pacBuffers) buffer(ib pac.InfoBuffer) []byte {
	return p.data[ib.Offset : ib.Offset+uint64(ib.CBBufferSize)]
}

// values returns the values of a PAC name attribute: the whole PAC for the bare
// prefix, otherwise every buffer of the named type.
func (p *pacBuffers) values(attr string) ([][]byte, error) {
	name, ok := strings.CutPrefix(attr, PACAttributePrefix)
	if !ok {
		return nil, errNoAttribute
	}
	if name == "" {
		return [][]byte{p.data}, nil
	}

	typ, ok := pacAttributeTypes[name]
	if !ok {
		return nil, errNoAttribute
	}

	var values [][]byte
	for _, ib := range p.buffers {
		if ib.ULType == typ {
			values = append(values, p.buffer(ib))
		}
	}
	if len(values) == 0 {
		return nil, errNoAttribute
	}

	return values, nil
}

// verifyServerChecksum checks the PAC server signature (MS-PAC § 2.8.1) with the key
// that sealed the ticket.
func (p *pacBuffers) verifyServerChecksum(key types.EncryptionKey) bool {
	zeroed := append([]byte{}, p.data...)

	var server *pac.SignatureData
	for _, ib := range p.buffers {
		if ib.ULType != pacServerChecksum && ib.ULType != pacPrivSvrChecksum {
			continue
		}

		var sd pac.SignatureData
		zb, err := sd.Unmarshal(p.buffer(ib))
		if err != nil {
			return false
		}
		copy(zeroed[ib.Offset:], zb)

		if ib.ULType == pacServerChecksum && server == nil {
			server = &sd
		}
	}
	if server == nil || len(server.Signature) == 0 {
		return false
	}

	et, err := crypto.GetChksumEtype(int32(server.SignatureType))
	if err != nil {
		return false
	}

	return et.VerifyChecksum(key.KeyValue, zeroed, server.Signature, keyusage.KERB_NON_KERB_CKSUM_SALT)
}

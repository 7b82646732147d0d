// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/asn1tools"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana"
	"github.com/jcmturner/gokrb5/v8/iana/adtype"
	"github.com/jcmturner/gokrb5/v8/iana/asnAppTag"
	"github.com/jcmturner/gokrb5/v8/iana/chksumtype"
	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/jcmturner/gokrb5/v8/iana/flags"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/iana/nametype"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/jcmturner/gokrb5/v8/types"

	"github.com/golang-auth/go-gssapi-acceptor"
	"github.com/golang-auth/go-gssapi-acceptor/test"
)

const (
	testRealm    = "EXAMPLE.COM"
	testService  = "HTTP/www.example.com"
	testKVNO     = 2
	testEtype    = etypeID.AES256_CTS_HMAC_SHA1_96
	testPassword = "correct horse battery staple"
)

var oidNTLM = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 2, 10}

// authenticators must differ in client time to stay clear of the process wide
// replay cache
var testCusec atomic.Int64

func newTestKeytab(t *testing.T, service, password string) *keytab.Keytab {
	assert := test.NewAssert(t)

	kt := keytab.New()
	assert.NoErrorFatal(kt.AddEntry(service, testRealm, password, time.Now(), testKVNO, testEtype))

	return kt
}

func newTestCredential(t *testing.T, opts ...CredentialOption) (*Credential, *keytab.Keytab) {
	assert := test.NewAssert(t)

	kt := newTestKeytab(t, testService, testPassword)
	cred, err := NewCredential(kt, opts...)
	assert.NoErrorFatal(err)

	return cred, kt
}

func serviceKey(t *testing.T, kt *keytab.Keytab) types.EncryptionKey {
	assert := test.NewAssert(t)

	sname, _ := types.ParseSPNString(testService)
	key, _, err := kt.GetEncryptionKey(sname, testRealm, testKVNO, testEtype)
	assert.NoErrorFatal(err)

	return key
}

// ticketSpec describes a service ticket as a KDC would issue it.
type ticketSpec struct {
	client   string
	service  string
	endTime  time.Time
	authData types.AuthorizationData
}

// sealTicket issues a ticket encrypted under the service key found in kt.
func sealTicket(t *testing.T, kt *keytab.Keytab, spec ticketSpec) (messages.Ticket, types.EncryptionKey) {
	assert := test.NewAssert(t)

	if spec.service == "" {
		spec.service = testService
	}
	if spec.endTime.IsZero() {
		spec.endTime = time.Now().UTC().Add(10 * time.Hour)
	}

	et, err := crypto.GetEtype(testEtype)
	assert.NoErrorFatal(err)
	sessionKey, err := types.GenerateEncryptionKey(et)
	assert.NoErrorFatal(err)

	now := time.Now().UTC()
	sname, _ := types.ParseSPNString(spec.service)
	etp := messages.EncTicketPart{
		Flags:             types.NewKrbFlags(),
		Key:               sessionKey,
		CRealm:            testRealm,
		CName:             types.NewPrincipalName(nametype.KRB_NT_PRINCIPAL, spec.client),
		AuthTime:          now,
		StartTime:         now,
		EndTime:           spec.endTime,
		AuthorizationData: spec.authData,
	}

	b, err := asn1.Marshal(etp)
	assert.NoErrorFatal(err)
	b = asn1tools.AddASNAppTag(b, asnAppTag.EncTicketPart)

	skey, _, err := kt.GetEncryptionKey(sname, testRealm, testKVNO, testEtype)
	assert.NoErrorFatal(err)
	ed, err := crypto.GetEncryptedData(b, skey, keyusage.KDC_REP_TICKET, testKVNO)
	assert.NoErrorFatal(err)

	return messages.Ticket{
		TktVNO:  iana.PVNO,
		Realm:   testRealm,
		SName:   sname,
		EncPart: ed,
	}, sessionKey
}

// apReqSpec describes the initiator's side of an AP exchange.
type apReqSpec struct {
	flags     acceptor.ContextFlag
	mutual    bool
	oid       asn1.ObjectIdentifier
	cksumType int32
}

// newAuthenticatorChksum builds the 0x8003 authenticator checksum an initiator sends to
// carry its context flags (RFC 4121 § 4.1.1).  The channel binding hash is left zero.
func newAuthenticatorChksum(flags acceptor.ContextFlag) []byte {
	a := make([]byte, gssChecksumLen)
	binary.LittleEndian.PutUint32(a[:4], 16)
	binary.LittleEndian.PutUint32(a[20:24], uint32(flags))

	return a
}

// apReqToken builds the krb5 mech token an initiator sends for tkt.
func apReqToken(t *testing.T, tkt messages.Ticket, sessionKey types.EncryptionKey, client string, spec apReqSpec) []byte {
	assert := test.NewAssert(t)

	if spec.oid == nil {
		spec.oid = oidKRB5
	}
	if spec.cksumType == 0 {
		spec.cksumType = chksumtype.GSSAPI
	}

	auth, err := types.NewAuthenticator(testRealm, types.NewPrincipalName(nametype.KRB_NT_PRINCIPAL, client))
	assert.NoErrorFatal(err)
	auth.CTime = time.Now().UTC().Truncate(time.Second)
	auth.Cusec = int(testCusec.Add(1) % 1000000)
	auth.Cksum = types.Checksum{
		CksumType: spec.cksumType,
		Checksum:  newAuthenticatorChksum(spec.flags),
	}

	apreq, err := messages.NewAPReq(tkt, sessionKey, auth)
	assert.NoErrorFatal(err)
	if spec.mutual {
		types.SetFlag(&apreq.APOptions, flags.APOptionMutualRequired)
	}

	mt := mechToken{OID: spec.oid, tokID: tokIDAPReq, APReq: &apreq}
	b, err := mt.marshal()
	assert.NoErrorFatal(err)

	return b
}

func negTokenInit(t *testing.T, mechs []asn1.ObjectIdentifier, mechToken []byte) []byte {
	assert := test.NewAssert(t)

	tok := spnego.SPNEGOToken{
		Init: true,
		NegTokenInit: spnego.NegTokenInit{
			MechTypes:      mechs,
			MechTokenBytes: mechToken,
		},
	}
	b, err := tok.Marshal()
	assert.NoErrorFatal(err)

	return b
}

func negTokenResp(t *testing.T, mechToken []byte) []byte {
	assert := test.NewAssert(t)

	resp := spnego.NegTokenResp{
		NegState:      asn1.Enumerated(spnego.NegStateAcceptIncomplete),
		ResponseToken: mechToken,
	}
	b, err := resp.Marshal()
	assert.NoErrorFatal(err)

	return b
}

// parseResp decodes the acceptor's answer.
func parseResp(t *testing.T, b []byte) spnego.NegTokenResp {
	assert := test.NewAssert(t)

	var tok spnego.SPNEGOToken
	assert.NoErrorFatal(tok.Unmarshal(b))
	assert.True(tok.Resp)

	return tok.NegTokenResp
}

type pacEntry struct {
	typ  uint32
	data []byte
}

// buildPAC lays out a PAC holding entries followed by server and KDC signatures, and
// signs it with key.
func buildPAC(t *testing.T, key types.EncryptionKey, entries ...pacEntry) []byte {
	assert := test.NewAssert(t)

	sig := make([]byte, 16)
	binary.LittleEndian.PutUint32(sig, uint32(chksumtype.HMAC_SHA1_96_AES256))
	entries = append(entries,
		pacEntry{pacServerChecksum, sig},
		pacEntry{pacPrivSvrChecksum, append([]byte{}, sig...)})

	offset := pacHeaderLen + pacInfoBufferLen*len(entries)
	header := make([]byte, offset)
	binary.LittleEndian.PutUint32(header[0:], uint32(len(entries)))

	var body []byte
	serverSig := 0
	for i, e := range entries {
		pos := offset + len(body)
		h := header[pacHeaderLen+i*pacInfoBufferLen:]
		binary.LittleEndian.PutUint32(h[0:], e.typ)
		binary.LittleEndian.PutUint32(h[4:], uint32(len(e.data)))
		binary.LittleEndian.PutUint64(h[8:], uint64(pos))
		if e.typ == pacServerChecksum {
			serverSig = pos + 4
		}

		body = append(body, e.data...)
		for len(body)%8 != 0 {
			body = append(body, 0)
		}
	}
	data := append(header, body...)

	et, err := crypto.GetChksumEtype(chksumtype.HMAC_SHA1_96_AES256)
	assert.NoErrorFatal(err)
	cksum, err := et.GetChecksumHash(key.KeyValue, data, keyusage.KERB_NON_KERB_CKSUM_SALT)
	assert.NoErrorFatal(err)
	copy(data[serverSig:], cksum)

	return data
}

// pacAuthData wraps a PAC the way a KDC places it in a ticket.
func pacAuthData(t *testing.T, pacData []byte) types.AuthorizationData {
	assert := test.NewAssert(t)

	inner := types.AuthorizationData{{ADType: adtype.ADWin2KPAC, ADData: pacData}}
	b, err := asn1.Marshal(inner)
	assert.NoErrorFatal(err)

	return types.AuthorizationData{{ADType: adtype.ADIfRelevant, ADData: b}}
}

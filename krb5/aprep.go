// SPDX-License-Identifier: Apache-2.0

package krb5

/*
 * Derived from github.com/jcmturner/gokrb5/v8/messages/APRep.go
 *
 * The modified version adds marshalling so the acceptor can answer a request for
 * mutual authentication.
 */

import (
	"fmt"
	"time"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/asn1tools"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana"
	"github.com/jcmturner/gokrb5/v8/iana/asnAppTag"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/iana/msgtype"
	"github.com/jcmturner/gokrb5/v8/krberror"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

// apRep implements RFC 4120 KRB_AP_REP: https://tools.ietf.org/html/rfc4120#section-5.5.2.
type apRep struct {
	PVNO    int                 `asn1:"explicit,tag:0"`
	MsgType int                 `asn1:"explicit,tag:1"`
	EncPart types.EncryptedData `asn1:"explicit,tag:2"`
}

// encAPRepPart is the encrypted part of KRB_AP_REP.
type encAPRepPart struct {
	CTime          time.Time           `asn1:"generalized,explicit,tag:0"`
	Cusec          int                 `asn1:"explicit,tag:1"`
	Subkey         types.EncryptionKey `asn1:"optional,explicit,tag:2"`
	SequenceNumber int64               `asn1:"optional,explicit,tag:3"`
}

// newAPRep seals encPart under the ticket session key.
func newAPRep(tkt messages.Ticket, sessionKey types.EncryptionKey, encPart encAPRepPart) (apRep, error) {
	m, err := encPart.marshal()
	if err != nil {
		return apRep{}, krberror.Errorf(err, krberror.EncodingError, "marshaling error of AP-REP enc-part")
	}

	ed, err := crypto.GetEncryptedData(m, sessionKey, uint32(keyusage.AP_REP_ENCPART), tkt.EncPart.KVNO)
	if err != nil {
		return apRep{}, krberror.Errorf(err, krberror.EncryptingError, "error encrypting AP-REP enc-part")
	}

	return apRep{
		PVNO:    iana.PVNO,
		MsgType: msgtype.KRB_AP_REP,
		EncPart: ed,
	}, nil
}

func (a *apRep) unmarshal(b []byte) error {
	_, err := asn1.UnmarshalWithParams(b, a, fmt.Sprintf("application,explicit,tag:%v", asnAppTag.APREP))
	if err != nil {
		return krberror.Errorf(err, krberror.EncodingError, "AP-REP unmarshal error")
	}
	if a.MsgType != msgtype.KRB_AP_REP {
		return krberror.NewErrorf(krberror.KRBMsgError, "message ID does not indicate a KRB_AP_REP. Expected: %v; Actual: %v", msgtype.KRB_AP_REP, a.MsgType)
	}

	return nil
}

func (a *apRep) marshal() ([]byte, error) {
	b, err := asn1.Marshal(*a)
	if err != nil {
		return nil, err
	}

	return asn1tools.AddASNAppTag(b, asnAppTag.APREP), nil
}

func (a *apRep) decryptEncPart(sessionKey types.EncryptionKey) (encAPRepPart, error) {
	var encpart encAPRepPart

	decrypted, err := crypto.DecryptEncPart(a.EncPart, sessionKey, uint32(keyusage.AP_REP_ENCPART))
	if err != nil {
		return encpart, krberror.Errorf(err, krberror.DecryptingError, "error decrypting AP-REP enc-part")
	}

	if err = encpart.unmarshal(decrypted); err != nil {
		return encpart, krberror.Errorf(err, krberror.EncodingError, "error unmarshalling decrypted AP-REP enc-part")
	}

	return encpart, nil
}

func (a *encAPRepPart) unmarshal(b []byte) error {
	_, err := asn1.UnmarshalWithParams(b, a, fmt.Sprintf("application,explicit,tag:%v", asnAppTag.EncAPRepPart))
	if err != nil {
		return krberror.Errorf(err, krberror.EncodingError, "AP-REP enc-part unmarshal error")
	}

	return nil
}

func (a *encAPRepPart) marshal() ([]byte, error) {
	b, err := asn1.Marshal(*a)
	if err != nil {
		return nil, err
	}

	return asn1tools.AddASNAppTag(b, asnAppTag.EncAPRepPart), nil
}

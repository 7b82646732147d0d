// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/iana/chksumtype"
	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/iana/flags"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/service"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/jcmturner/gokrb5/v8/types"

	"github.com/golang-auth/go-gssapi-acceptor"
)

type contextState int

const (
	stateInitial      contextState = iota // expecting a NegTokenInit
	stateAwaitingResp                     // sent accept-incomplete, expecting a NegTokenResp
	stateComplete
	stateFailed
)

// secContext is the per-negotiation state kept in an acceptor.ContextHandle.
type secContext struct {
	state contextState
	mech  asn1.ObjectIdentifier // Kerberos OID as offered by the initiator
}

// Context flags the acceptor will honour when the initiator asks for them.  Delegation
// and DCE style need support the acceptor does not have.
const supportedFlags = acceptor.ContextFlagMutual | acceptor.ContextFlagReplay |
	acceptor.ContextFlagSequence | acceptor.ContextFlagConf | acceptor.ContextFlagInteg |
	acceptor.ContextFlagIdentify | acceptor.ContextFlagExtendedError

var (
	errUnexpectedToken = errors.New("unexpected negotiation token")
	errNoKRB5          = errors.New("initiator did not offer Kerberos")
	errNoMechToken     = errors.New("negotiation token carries no Kerberos token")
	errNotAPReq        = errors.New("Kerberos token is not an AP-REQ")
)

// AcceptSecContext processes one SPNEGO token.  Kerberos is selected whenever the
// initiator offers it.  If the initiator's optimistic token is for another mechanism
// the acceptor asks for Kerberos and completes on the following token.
func (m *Mechanism) AcceptSecContext(ctx *acceptor.ContextHandle, cred acceptor.Credential, input *acceptor.Buffer, mech acceptor.Oid) acceptor.AcceptResult {
	if ctx == nil {
		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorCallInaccessibleWrite, 0)}
	}
	if !mech.Equal(acceptor.MechSPNEGO) {
		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorBadMech, 0)}
	}

	c, ok := cred.(*Credential)
	if !ok || c == nil {
		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorNoCred, 0)}
	}

	sc, ok := (*ctx).(*secContext)
	switch {
	case *ctx == nil:
		sc = &secContext{}
		*ctx = sc
	case !ok:
		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorNoContext, 0)}
	}

	var tok spnego.SPNEGOToken
	if err := tok.Unmarshal(input.Bytes()); err != nil {
		return m.fail(sc, acceptor.Failed(acceptor.MajorDefectiveToken, 0), err)
	}

	switch {
	case tok.Init && sc.state == stateInitial:
		return m.acceptInit(sc, c, &tok.NegTokenInit)
	case tok.Resp && sc.state == stateAwaitingResp:
		return m.acceptResp(sc, c, &tok.NegTokenResp)
	}

	return m.fail(sc, acceptor.Failed(acceptor.MajorDefectiveToken, 0), errUnexpectedToken)
}

func (m *Mechanism) acceptInit(sc *secContext, cred *Credential, init *spnego.NegTokenInit) acceptor.AcceptResult {
	idx := slices.IndexFunc(init.MechTypes, isKRB5)
	if idx < 0 {
		return m.reject(sc, acceptor.Failed(acceptor.MajorBadMech, 0), nil, errNoKRB5)
	}
	sc.mech = init.MechTypes[idx]

	if idx > 0 || len(init.MechTokenBytes) == 0 {
		sc.state = stateAwaitingResp
		m.logger.Debug("requesting Kerberos token", "offered", len(init.MechTypes), "position", idx)

		return m.respond(spnego.NegTokenResp{
			NegState:      asn1.Enumerated(spnego.NegStateAcceptIncomplete),
			SupportedMech: sc.mech,
		}, acceptor.AcceptResult{Status: acceptor.ContinueNeeded()})
	}

	return m.acceptMechToken(sc, cred, init.MechTokenBytes, true)
}

func (m *Mechanism) acceptResp(sc *secContext, cred *Credential, resp *spnego.NegTokenResp) acceptor.AcceptResult {
	if len(resp.ResponseToken) == 0 {
		return m.reject(sc, acceptor.Failed(acceptor.MajorDefectiveToken, 0), nil, errNoMechToken)
	}

	return m.acceptMechToken(sc, cred, resp.ResponseToken, false)
}

// acceptMechToken verifies the initiator's AP-REQ and completes the context.
func (m *Mechanism) acceptMechToken(sc *secContext, cred *Credential, b []byte, first bool) acceptor.AcceptResult {
	var mt mechToken
	if err := mt.unmarshal(b); err != nil {
		return m.reject(sc, acceptor.Failed(acceptor.MajorDefectiveToken, 0), nil, err)
	}
	if mt.APReq == nil {
		return m.reject(sc, acceptor.Failed(acceptor.MajorDefectiveToken, 0), nil, errNotAPReq)
	}

	name, reqFlags, err := m.verify(cred, mt.APReq)
	if err != nil {
		ae := classify(err)
		krbErr := messages.NewKRBError(mt.APReq.Ticket.SName, mt.APReq.Ticket.Realm, ae.code, ae.Error())
		return m.reject(sc, ae.status(), &krbErr, err)
	}

	res := acceptor.AcceptResult{
		Status:     acceptor.Complete(),
		SourceName: name,
		Flags:      acceptor.ContextFlagTrans | acceptor.ContextFlagProtReady | reqFlags&supportedFlags,
		TimeRec:    m.timeRec(mt.APReq.Ticket.DecryptedEncPart),
	}
	if mutualRequired(mt.APReq.APOptions) {
		res.Flags |= acceptor.ContextFlagMutual
	}

	resp := spnego.NegTokenResp{NegState: asn1.Enumerated(spnego.NegStateAcceptCompleted)}
	if first {
		resp.SupportedMech = sc.mech
	}

	if res.Flags&acceptor.ContextFlagMutual != 0 {
		rep, err := m.mutualToken(sc, mt.APReq)
		if err != nil {
			return m.reject(sc, acceptor.Failed(acceptor.MajorFailure, MinorForKRBError(errorcode.KRB_ERR_GENERIC)), nil, err)
		}
		resp.ResponseToken = rep
	}

	sc.state = stateComplete
	m.logger.Debug("Kerberos context established",
		"principal", name.String(),
		"flags", res.Flags.String(),
		"mutual", len(resp.ResponseToken) > 0,
		"pac", name.pac != nil)

	return m.respond(resp, res)
}

// verify checks the AP-REQ against the credential and returns the initiator's name and
// the context flags it asked for.
func (m *Mechanism) verify(cred *Credential, apreq *messages.APReq) (*peerName, acceptor.ContextFlag, error) {
	tkt := &apreq.Ticket

	// gokrb5 hides a missing key behind its decrypting error
	key, err := cred.serviceKey(tkt.SName, tkt.Realm, tkt.EncPart.KVNO, tkt.EncPart.EType)
	if err != nil {
		return nil, 0, &apError{major: acceptor.MajorFailure, code: errorcode.KRB_AP_ERR_NOKEY, err: err}
	}

	ok, _, err := service.VerifyAPREQ(apreq, cred.settings())
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, &apError{major: acceptor.MajorFailure, code: errorcode.KRB_ERR_GENERIC, err: errors.New("AP-REQ not valid")}
	}

	cksum := apreq.Authenticator.Cksum
	if cksum.CksumType != chksumtype.GSSAPI {
		return nil, 0, &apError{
			major: acceptor.MajorDefectiveToken,
			code:  errorcode.KRB_AP_ERR_INAPP_CKSUM,
			err:   fmt.Errorf("authenticator checksum type %d is not GSSAPI", cksum.CksumType),
		}
	}
	reqFlags, err := checksumFlags(cksum.Checksum)
	if err != nil {
		return nil, 0, &apError{major: acceptor.MajorDefectiveToken, code: errorcode.KRB_AP_ERR_INAPP_CKSUM, err: err}
	}

	name := &peerName{
		cname: tkt.DecryptedEncPart.CName,
		realm: tkt.DecryptedEncPart.CRealm,
	}
	if b, found := findPAC(tkt.DecryptedEncPart.AuthorizationData, false); found {
		p, err := parsePAC(b)
		if err != nil {
			m.logger.Warn("ignoring malformed PAC", "principal", name.String(), "error", err)
		} else {
			name.pac = p
			name.pacVerified = p.verifyServerChecksum(key)
		}
	}

	return name, reqFlags, nil
}

// mutualToken builds the AP-REP token answering a request for mutual authentication.
func (m *Mechanism) mutualToken(sc *secContext, apreq *messages.APReq) ([]byte, error) {
	enc := encAPRepPart{
		CTime:          apreq.Authenticator.CTime,
		Cusec:          apreq.Authenticator.Cusec,
		SequenceNumber: rand.Int64N(math.MaxUint32),
	}

	rep, err := newAPRep(apreq.Ticket, apreq.Ticket.DecryptedEncPart.Key, enc)
	if err != nil {
		return nil, err
	}

	mt := mechToken{OID: sc.mech, tokID: tokIDAPRep, APRep: &rep}
	return mt.marshal()
}

func mutualRequired(opts asn1.BitString) bool {
	return len(opts.Bytes) > flags.APOptionMutualRequired/8 && types.IsFlagSet(&opts, flags.APOptionMutualRequired)
}

func (m *Mechanism) timeRec(etp messages.EncTicketPart) uint32 {
	d := etp.EndTime.Sub(m.now())
	if d <= 0 {
		return 0
	}

	secs := int64(d.Seconds())
	if secs >= math.MaxUint32 {
		return math.MaxUint32 - 1
	}

	return uint32(secs)
}

// reject fails the context and answers with a reject token, carrying a KRB-ERROR when
// there is one.
func (m *Mechanism) reject(sc *secContext, status acceptor.Status, krbErr *messages.KRBError, err error) acceptor.AcceptResult {
	resp := spnego.NegTokenResp{NegState: asn1.Enumerated(spnego.NegStateReject)}

	if krbErr != nil {
		mt := mechToken{OID: sc.mech, tokID: tokIDKRBError, KRBError: krbErr}
		if b, merr := mt.marshal(); merr == nil {
			resp.ResponseToken = b
		}
	}

	res := m.fail(sc, status, err)
	return m.respond(resp, res)
}

func (m *Mechanism) fail(sc *secContext, status acceptor.Status, err error) acceptor.AcceptResult {
	sc.state = stateFailed
	m.logger.Debug("Kerberos negotiation failed", "major", status.Major, "minor", status.Minor, "error", err)

	return acceptor.AcceptResult{Status: status}
}

// respond attaches resp to res as its output token.
func (m *Mechanism) respond(resp spnego.NegTokenResp, res acceptor.AcceptResult) acceptor.AcceptResult {
	b, err := resp.Marshal()
	if err != nil {
		m.logger.Warn("marshalling negotiation response", "error", err)
		if res.Status.IsError() {
			return res
		}

		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorFailure, 0)}
	}

	res.OutputToken = m.newBuffer(b)
	return res
}

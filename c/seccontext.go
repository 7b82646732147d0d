// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package gssapi

/*
#include <gssapi/gssapi.h>
*/
import "C"

import (
	"bytes"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// secContext is the ContextHandle of a native negotiation.
type secContext struct {
	id      C.gss_ctx_id_t
	srcName *GssName // released with the context
}

// AcceptSecContext calls gss_accept_sec_context.  Only SPNEGO may be requested; the
// library picks the underlying mechanism from the token and the credential.
func (m *Mechanism) AcceptSecContext(ctx *acceptor.ContextHandle, cred acceptor.Credential, input *acceptor.Buffer, mech acceptor.Oid) acceptor.AcceptResult {
	if ctx == nil {
		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorCallInaccessibleWrite, 0)}
	}
	if !bytes.Equal(mech, acceptor.MechSPNEGO) {
		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorBadMech, 0)}
	}

	var cGssCred C.gss_cred_id_t = C.GSS_C_NO_CREDENTIAL
	if cred != nil {
		lCred, ok := cred.(*Credential)
		if !ok || lCred.id == nil {
			return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorNoCred, 0)}
		}
		cGssCred = lCred.id
	}

	sc, ok := (*ctx).(*secContext)
	switch {
	case *ctx == nil:
		sc = &secContext{}
	case !ok:
		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorNoContext, 0)}
	}

	var minor C.OM_uint32
	var cSrcName C.gss_name_t       // allocated by GSSAPI; released by DeleteSecContext
	var cOutToken C.gss_buffer_desc // cOutToken.value allocated by GSSAPI; released by ReleaseBuffer
	var cFlags, cTimeRec C.OM_uint32
	cInputToken, pinner := bytesToCBuffer(input.Bytes())
	defer pinner.Unpin()

	major := C.gss_accept_sec_context(&minor, &sc.id, cGssCred, &cInputToken, nil, &cSrcName, nil, &cOutToken, &cFlags, &cTimeRec, nil)
	*ctx = sc

	if cSrcName != nil {
		sc.srcName.release()
		sc.srcName = &GssName{name: cSrcName}
	}

	res := acceptor.AcceptResult{
		Status:      makeStatus(major, minor),
		OutputToken: m.newBuffer(cOutToken),
	}

	switch {
	case res.Status.IsComplete():
		res.SourceName = sc.srcName
		res.Flags = acceptor.ContextFlag(cFlags)
		res.TimeRec = uint32(cTimeRec)
	case res.Status.IsError():
		m.logger.Debug("gss_accept_sec_context failed",
			"major", res.Status.Major,
			"minor", res.Status.Minor,
			"messages", minorMessages(minor, acceptor.MechKRB5))
	}

	return res
}

// DeleteSecContext calls gss_delete_sec_context and releases the initiator name.
func (m *Mechanism) DeleteSecContext(ctx *acceptor.ContextHandle) acceptor.Status {
	if ctx == nil {
		return acceptor.Failed(acceptor.MajorCallInaccessibleRead, 0)
	}
	if *ctx == nil {
		return acceptor.Complete()
	}

	sc, ok := (*ctx).(*secContext)
	if !ok {
		return acceptor.Failed(acceptor.MajorNoContext, 0)
	}
	*ctx = nil

	nameStatus := sc.srcName.release()
	sc.srcName = nil

	if sc.id == nil {
		return nameStatus
	}

	var minor C.OM_uint32
	major := C.gss_delete_sec_context(&minor, &sc.id, nil)
	sc.id = nil

	if major != 0 {
		return makeStatus(major, minor)
	}
	return nameStatus
}

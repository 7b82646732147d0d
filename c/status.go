// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package gssapi

/*
#include <gssapi/gssapi.h>

OM_uint32 display_status(OM_uint32 status, int status_type, _GoString_ mechOid, OM_uint32 *minor, OM_uint32 *msgCtx, gss_buffer_desc *status_string) {
	size_t l = _GoStringLen(mechOid);
	gss_OID_desc oid = {l, (void*)_GoStringPtr(mechOid)};

	return gss_display_status(minor, status, status_type, l > 0 ? &oid : GSS_C_NO_OID, msgCtx, status_string);
}
*/
import "C"

import (
	"fmt"

	"github.com/golang-auth/go-gssapi-acceptor"
)

func makeStatus(major, minor C.OM_uint32) acceptor.Status {
	return acceptor.Status{Major: uint32(major), Minor: uint32(minor)}
}

// minorMessages asks the library for the text of a mechanism specific minor status.
func minorMessages(minor C.OM_uint32, mech acceptor.Oid) []string {
	var lMinor, msgCtx C.OM_uint32
	var statusString C.gss_buffer_desc

	ret := []string{}
	if minor == 0 {
		return ret
	}

	for {
		major := C.display_status(minor, C.GSS_C_MECH_CODE, string(mech), &lMinor, &msgCtx, &statusString)
		if major != 0 {
			// specifically do not call makeStatus here - we might end up in a loop..
			ret = append(ret, fmt.Sprintf("got GSS error %d/%d while finding string for minor code %d", major, lMinor, minor))
			break
		}

		ret = append(ret, C.GoStringN((*C.char)(statusString.value), C.int(statusString.length)))
		C.gss_release_buffer(&lMinor, &statusString)

		// all done when the message context is set to zero by gss_display_status
		if msgCtx == 0 {
			break
		}
	}

	return ret
}

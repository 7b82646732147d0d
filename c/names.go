// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package gssapi

/*
#include <gssapi/gssapi.h>
#include <gssapi/gssapi_ext.h>
*/
import "C"

import (
	"github.com/golang-auth/go-gssapi-acceptor"
)

// GssName is a mechanism name allocated by the library.
type GssName struct {
	name C.gss_name_t
}

func (n *GssName) release() acceptor.Status {
	if n == nil || n.name == nil {
		return acceptor.Complete()
	}

	var minor C.OM_uint32
	major := C.gss_release_name(&minor, &n.name)
	n.name = nil

	return makeStatus(major, minor)
}

func nameFromHandle(name acceptor.NameHandle) (*GssName, bool) {
	n, ok := name.(*GssName)
	return n, ok && n != nil && n.name != nil
}

// DisplayName calls gss_display_name.
func (m *Mechanism) DisplayName(name acceptor.NameHandle) (acceptor.Status, *acceptor.Buffer) {
	n, ok := nameFromHandle(name)
	if !ok {
		return acceptor.Failed(acceptor.MajorBadName, 0), nil
	}

	var minor C.OM_uint32
	var cOutputBuf C.gss_buffer_desc // cOutputBuf.value allocated by GSSAPI; released by ReleaseBuffer
	major := C.gss_display_name(&minor, n.name, &cOutputBuf, nil)
	if major != 0 {
		return makeStatus(major, minor), nil
	}

	return acceptor.Complete(), m.newBuffer(cOutputBuf)
}

// GetNameAttribute calls gss_get_name_attribute (RFC 6680 § 7.5).
func (m *Mechanism) GetNameAttribute(name acceptor.NameHandle, attr *acceptor.Buffer, more *int) (acceptor.NameAttribute, acceptor.Status) {
	if more == nil {
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorCallInaccessibleWrite, 0)
	}

	n, ok := nameFromHandle(name)
	if !ok {
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorBadName, 0)
	}

	cAttr, pinner := bytesToCBuffer(attr.Bytes())
	defer pinner.Unpin()

	var minor C.OM_uint32
	var cAuthenticated, cComplete C.int
	var cValue, cDisplayValue C.gss_buffer_desc // allocated by GSSAPI; released by ReleaseBuffer
	cMore := C.int(*more)
	major := C.gss_get_name_attribute(&minor, n.name, &cAttr, &cAuthenticated, &cComplete, &cValue, &cDisplayValue, &cMore)
	*more = int(cMore)

	if major != 0 {
		return acceptor.NameAttribute{}, makeStatus(major, minor)
	}

	return acceptor.NameAttribute{
		Authenticated: cAuthenticated != 0,
		Complete:      cComplete != 0,
		Value:         m.newBuffer(cValue),
		DisplayValue:  m.newBuffer(cDisplayValue),
	}, acceptor.Complete()
}

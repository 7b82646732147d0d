// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package gssapi

/*
#include <gssapi/gssapi.h>
*/
import "C"

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// bytesToCBuffer describes b to the library without copying.  The memory stays pinned
// until the returned pinner is unpinned.
func bytesToCBuffer(b []byte) (C.gss_buffer_desc, *runtime.Pinner) {
	pinner := &runtime.Pinner{}
	if len(b) == 0 {
		return C.gss_buffer_desc{}, pinner
	}

	pinner.Pin(&b[0])
	return C.gss_buffer_desc{
		length: C.size_t(len(b)),
		value:  unsafe.Pointer(&b[0]),
	}, pinner
}

// bufferHandle owns a buffer allocated by the library.
type bufferHandle struct {
	desc     C.gss_buffer_desc
	released atomic.Bool
}

// newBuffer hands desc to the caller as a mechanism buffer.  The value is a view over
// library memory and is valid until the buffer is released.
func (m *Mechanism) newBuffer(desc C.gss_buffer_desc) *acceptor.Buffer {
	m.allocated.Add(1)

	var value []byte
	if desc.length > 0 {
		value = unsafe.Slice((*byte)(desc.value), int(desc.length))
	}

	return acceptor.NewMechBuffer(m, value, &bufferHandle{desc: desc})
}

// ReleaseBuffer returns a buffer to the library.
func (m *Mechanism) ReleaseBuffer(b *acceptor.Buffer) acceptor.Status {
	h, ok := b.Handle().(*bufferHandle)
	if !ok {
		return acceptor.Failed(acceptor.MajorCallInaccessibleRead, 0)
	}
	if h.released.Swap(true) {
		return acceptor.Failed(acceptor.MajorFailure, 0)
	}

	var minor C.OM_uint32
	major := C.gss_release_buffer(&minor, &h.desc)
	m.released.Add(1)

	return makeStatus(major, minor)
}

// SPDX-License-Identifier: Apache-2.0

package acceptor

// BufferReleaser is implemented by mechanisms that hand out memory they own.
type BufferReleaser interface {
	ReleaseBuffer(b *Buffer) Status
}

// Buffer is a length-delimited byte region exchanged with a mechanism.
//
// A borrowed buffer is a view over caller memory: the mechanism may read it for the
// duration of a call and releasing it does nothing.  An owned buffer holds memory
// allocated by the mechanism; it must be released exactly once through the mechanism
// that produced it.  Bytes are always read using the reported length, never by
// searching for a terminator.
type Buffer struct {
	value    []byte
	owner    BufferReleaser
	handle   any
	released bool
}

// FromBytes returns a borrowed buffer over data.  No copy is made.
func FromBytes(data []byte) *Buffer {
	return &Buffer{value: data}
}

// FromText returns a borrowed buffer over the UTF-8 bytes of text, without a terminator.
func FromText(text string) *Buffer {
	return &Buffer{value: []byte(text)}
}

// NewMechBuffer returns a buffer owned by the mechanism owner.  handle is an optional
// mechanism reference (for example a native buffer descriptor) passed back on release.
func NewMechBuffer(owner BufferReleaser, value []byte, handle any) *Buffer {
	return &Buffer{value: value, owner: owner, handle: handle}
}

// Len returns the reported length of the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.value)
}

// Bytes returns a view of the buffer.  For owned buffers the view is only valid until
// Release.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.released {
		return nil
	}
	return b.value
}

// Owned reports whether the buffer holds mechanism memory.
func (b *Buffer) Owned() bool {
	return b != nil && b.owner != nil
}

// Released reports whether an owned buffer has been handed back to the mechanism.
func (b *Buffer) Released() bool {
	return b != nil && b.released
}

// Handle returns the mechanism reference supplied to NewMechBuffer.
func (b *Buffer) Handle() any {
	if b == nil {
		return nil
	}
	return b.handle
}

// Copy returns an independent copy of exactly Len bytes.  An empty buffer yields an
// empty, non-nil slice.
func (b *Buffer) Copy() []byte {
	data := b.Bytes()
	ret := make([]byte, len(data))
	copy(ret, data)

	return ret
}

// Release hands an owned buffer back to its mechanism.  It is a no-op for borrowed
// buffers and for buffers already released.
func (b *Buffer) Release() error {
	if b == nil || b.owner == nil || b.released {
		return nil
	}

	b.released = true
	status := b.owner.ReleaseBuffer(b)
	b.value = nil
	b.handle = nil

	if !status.IsComplete() {
		return newStatusError(ErrBufferReleaseFailed, status, nil)
	}

	return nil
}

// CopyAndRelease copies the buffer and then releases it.  The copy is returned even when
// the release fails.
func (b *Buffer) CopyAndRelease() ([]byte, error) {
	data := b.Copy()
	return data, b.Release()
}

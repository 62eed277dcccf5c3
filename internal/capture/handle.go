package capture

import (
	"sync/atomic"
	"unsafe"
)

// objectWords is the storage footprint of one runtime object. Every
// intercepted class is a single shared-pointer pimpl, two pointers wide.
const objectWords = 2

// Handle is the correlation identity of one instrumented object. It owns
// the opaque storage the real constructor builds the object into; the
// correlation key is the implementation pointer the constructor writes
// there, so records on both sides of the interception agree on it.
//
// Copies of an object share the Handle. The destruction trace belongs to
// the copy that drops the last reference.
type Handle struct {
	storage *[objectWords]uintptr
	refs    atomic.Int32
}

func newHandle() *Handle {
	h := &Handle{storage: new([objectWords]uintptr)}
	h.refs.Store(1)
	return h
}

// This returns the address the runtime receives as the object pointer.
func (h *Handle) This() uintptr {
	return uintptr(unsafe.Pointer(h.storage))
}

// Key returns the correlation key. The real constructor populates the
// storage, so the key is zero until the constructor has run.
func (h *Handle) Key() uintptr {
	return h.storage[0]
}

// Valid reports whether the constructor produced a live implementation.
func (h *Handle) Valid() bool {
	return h != nil && h.storage[0] != 0
}

// Retain adds a reference for a copy of the object.
func (h *Handle) Retain() *Handle {
	h.refs.Add(1)
	return h
}

// Release drops one reference and reports whether it was the last.
func (h *Handle) Release() bool {
	return h.refs.Add(-1) == 0
}

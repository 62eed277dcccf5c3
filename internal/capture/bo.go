package capture

import (
	"github.com/rajiv448/XRT/internal/dispatch"
)

// BO wraps one runtime buffer object.
type BO struct {
	s *Session
	h *Handle
}

// NewBO allocates a buffer object of size bytes on dev with the runtime's
// flag word and memory-bank group.
func (s *Session) NewBO(dev *Device, size, flags uint64, grp uint32) *BO {
	sig := dispatch.SigBOCtor
	h := newHandle()
	if fn := s.table.BO.Ctor; fn != nil {
		fn(h.This(), dev.h.This(), size, flags, grp)
	} else {
		slotError(sig)
	}
	s.entry(h, sig, arg(dev.Key()), arg(size), arg(flags), arg(grp))
	s.exit(h, sig)
	return &BO{s: s, h: h}
}

// NewExtBO allocates a host-visible buffer object through the extension
// entry point.
func (s *Session) NewExtBO(dev *Device, size uint64) *BO {
	sig := dispatch.SigExtBOCtor
	h := newHandle()
	if fn := s.table.Ext.BOCtor; fn != nil {
		fn(h.This(), dev.h.This(), size)
	} else {
		slotError(sig)
	}
	s.entry(h, sig, arg(dev.Key()), arg(size))
	s.exit(h, sig)
	return &BO{s: s, h: h}
}

// Write copies src into the buffer at byte offset seek. The payload is
// preserved in the blob file and referenced from the trace.
func (b *BO) Write(src []byte, seek uint64) {
	sig := dispatch.SigBOWrite
	ref := b.s.writer.WriteBlob(src)
	b.s.entry(b.h, sig, ref, arg(uint64(len(src))), arg(seek))
	if fn := b.s.table.BO.Write; fn != nil {
		var p *byte
		if len(src) > 0 {
			p = &src[0]
		}
		fn(b.h.This(), p, uint64(len(src)), seek)
	} else {
		slotError(sig)
	}
	b.s.exit(b.h, sig)
}

// Read copies len(dst) bytes out of the buffer starting at byte offset
// skip. The bytes read back are preserved in the blob file.
func (b *BO) Read(dst []byte, skip uint64) {
	sig := dispatch.SigBORead
	b.s.entry(b.h, sig, arg(uint64(len(dst))), arg(skip))
	if fn := b.s.table.BO.Read; fn != nil {
		var p *byte
		if len(dst) > 0 {
			p = &dst[0]
		}
		fn(b.h.This(), p, uint64(len(dst)), skip)
	} else {
		slotError(sig)
	}
	ref := b.s.writer.WriteBlob(dst)
	b.s.exit(b.h, sig, named("dst", ref))
}

// Sync flushes or invalidates size bytes at offset between host and device
// in the given direction.
func (b *BO) Sync(dir int32, size, offset uint64) {
	sig := dispatch.SigBOSync
	b.s.entry(b.h, sig, arg(dir), arg(size), arg(offset))
	if fn := b.s.table.BO.Sync; fn != nil {
		fn(b.h.This(), dir, size, offset)
	} else {
		slotError(sig)
	}
	b.s.exit(b.h, sig)
}

// Map returns the host mapping address of the buffer.
func (b *BO) Map() uintptr {
	sig := dispatch.SigBOMap
	b.s.entry(b.h, sig)

	var addr uintptr
	if fn := b.s.table.BO.Map; fn != nil {
		addr = fn(b.h.This())
	} else {
		slotError(sig)
	}

	b.s.exitRet(b.h, sig, arg(addr))
	return addr
}

// Key returns the correlation key of the underlying object.
func (b *BO) Key() uintptr {
	return b.h.Key()
}

// Clone returns a copy sharing the underlying object.
func (b *BO) Clone() *BO {
	return &BO{s: b.s, h: b.h.Retain()}
}

// Close drops this reference; the last one records the destruction.
func (b *BO) Close() {
	b.s.destroy(b.h, sigBODtor, nil)
}

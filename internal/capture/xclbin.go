package capture

import (
	"github.com/rajiv448/XRT/internal/dispatch"
)

// Xclbin wraps one runtime xclbin object.
type Xclbin struct {
	s *Session
	h *Handle
}

// NewXclbin constructs an xclbin from the image file at fnm.
func (s *Session) NewXclbin(fnm string) *Xclbin {
	h := newHandle()
	if fn := s.table.Xclbin.CtorFnm; fn != nil {
		fn(h.This(), fnm)
	} else {
		slotError(dispatch.SigXclbinCtorFnm)
	}
	s.entry(h, dispatch.SigXclbinCtorFnm, fnm)
	s.exit(h, dispatch.SigXclbinCtorFnm)
	return &Xclbin{s: s, h: h}
}

// NewXclbinFromData constructs an xclbin from an in-memory image. The bytes
// are preserved in the blob file and referenced from the trace.
func (s *Session) NewXclbinFromData(data []byte) *Xclbin {
	h := newHandle()
	if fn := s.table.Xclbin.CtorRaw; fn != nil {
		var p *byte
		if len(data) > 0 {
			p = &data[0]
		}
		fn(h.This(), p, uint64(len(data)))
	} else {
		slotError(dispatch.SigXclbinCtorRaw)
	}
	ref := s.writer.WriteBlob(data)
	s.entry(h, dispatch.SigXclbinCtorRaw, ref)
	s.exit(h, dispatch.SigXclbinCtorRaw)
	return &Xclbin{s: s, h: h}
}

// NewXclbinFromAxlf constructs an xclbin from a raw axlf header pointer.
// The pointer stays opaque; only its value is recorded.
func (s *Session) NewXclbinFromAxlf(axlf uintptr) *Xclbin {
	h := newHandle()
	if fn := s.table.Xclbin.CtorAxlf; fn != nil {
		fn(h.This(), axlf)
	} else {
		slotError(dispatch.SigXclbinCtorAxlf)
	}
	s.entry(h, dispatch.SigXclbinCtorAxlf, arg(axlf))
	s.exit(h, dispatch.SigXclbinCtorAxlf)
	return &Xclbin{s: s, h: h}
}

// Key returns the correlation key of the underlying object.
func (x *Xclbin) Key() uintptr {
	return x.h.Key()
}

// Clone returns a copy sharing the underlying object.
func (x *Xclbin) Clone() *Xclbin {
	return &Xclbin{s: x.s, h: x.h.Retain()}
}

// Close drops this reference; the last one records the destruction.
func (x *Xclbin) Close() {
	x.s.destroy(x.h, sigXclbinDtor, nil)
}

package capture

import (
	"github.com/rajiv448/XRT/internal/dispatch"
)

// Run wraps one runtime run object, a single execution of a kernel.
type Run struct {
	s *Session
	h *Handle
}

// NewRun opens a run object on k.
func (s *Session) NewRun(k *Kernel) *Run {
	sig := dispatch.SigRunCtor
	h := newHandle()
	if fn := s.table.Run.Ctor; fn != nil {
		fn(h.This(), k.h.This())
	} else {
		slotError(sig)
	}
	s.entry(h, sig, arg(k.Key()))
	s.exit(h, sig)
	return &Run{s: s, h: h}
}

// Start launches the run asynchronously.
func (r *Run) Start() {
	sig := dispatch.SigRunStart
	r.s.entry(r.h, sig)
	if fn := r.s.table.Run.Start; fn != nil {
		fn(r.h.This())
	} else {
		slotError(sig)
	}
	r.s.exit(r.h, sig)
}

// Wait blocks until the run completes.
func (r *Run) Wait() {
	sig := dispatch.SigRunWait
	r.s.entry(r.h, sig)
	if fn := r.s.table.Run.Wait; fn != nil {
		fn(r.h.This())
	} else {
		slotError(sig)
	}
	r.s.exit(r.h, sig)
}

// Key returns the correlation key of the underlying object.
func (r *Run) Key() uintptr {
	return r.h.Key()
}

// Clone returns a copy sharing the underlying object.
func (r *Run) Clone() *Run {
	return &Run{s: r.s, h: r.h.Retain()}
}

// Close drops this reference; the last one records the destruction.
func (r *Run) Close() {
	r.s.destroy(r.h, sigRunDtor, nil)
}

package capture

import (
	"github.com/rajiv448/XRT/internal/dispatch"
)

// Kernel wraps one runtime kernel object.
type Kernel struct {
	s *Session
	h *Handle
}

// NewKernel opens the named kernel within a hardware context.
func (s *Session) NewKernel(ctx *HwContext, name string) *Kernel {
	sig := dispatch.SigKernelCtor
	h := newHandle()
	if fn := s.table.Kernel.Ctor; fn != nil {
		fn(h.This(), ctx.h.This(), name)
	} else {
		slotError(sig)
	}
	s.entry(h, sig, arg(ctx.Key()), name)
	s.exit(h, sig)
	return &Kernel{s: s, h: h}
}

// GroupID returns the memory-bank group of the kernel argument at argno.
func (k *Kernel) GroupID(argno int32) int32 {
	sig := dispatch.SigKernelGroupID
	k.s.entry(k.h, sig, arg(argno))

	var ret int32
	if fn := k.s.table.Kernel.GroupID; fn != nil {
		ret = fn(k.h.This(), argno)
	} else {
		slotError(sig)
	}

	k.s.exitRet(k.h, sig, arg(ret))
	return ret
}

// Key returns the correlation key of the underlying object.
func (k *Kernel) Key() uintptr {
	return k.h.Key()
}

// Clone returns a copy sharing the underlying object.
func (k *Kernel) Clone() *Kernel {
	return &Kernel{s: k.s, h: k.h.Retain()}
}

// Close drops this reference; the last one records the destruction.
func (k *Kernel) Close() {
	k.s.destroy(k.h, sigKernelDtor, nil)
}

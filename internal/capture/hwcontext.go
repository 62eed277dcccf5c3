package capture

import (
	"github.com/google/uuid"

	"github.com/rajiv448/XRT/internal/dispatch"
)

// HwContext wraps one runtime hardware-context object.
type HwContext struct {
	s *Session
	h *Handle
}

// NewHwContext opens a hardware context on dev for the loaded image
// xclbinID with an opaque QoS configuration object. The configuration is
// the runtime's own type; only its address crosses this layer.
func (s *Session) NewHwContext(dev *Device, xclbinID uuid.UUID, cfg uintptr) *HwContext {
	sig := dispatch.SigHwContextCtorCfg
	h := newHandle()
	if fn := s.table.HwContext.CtorFromCfg; fn != nil {
		id := xclbinID
		fn(h.This(), dev.h.This(), &id[0], cfg)
	} else {
		slotError(sig)
	}
	s.entry(h, sig, arg(dev.Key()), xclbinID.String(), arg(cfg))
	s.exit(h, sig)
	return &HwContext{s: s, h: h}
}

// NewHwContextWithMode opens a hardware context with an access mode instead
// of a QoS configuration.
func (s *Session) NewHwContextWithMode(dev *Device, xclbinID uuid.UUID, mode int32) *HwContext {
	sig := dispatch.SigHwContextCtorMode
	h := newHandle()
	if fn := s.table.HwContext.CtorFromMode; fn != nil {
		id := xclbinID
		fn(h.This(), dev.h.This(), &id[0], mode)
	} else {
		slotError(sig)
	}
	s.entry(h, sig, arg(dev.Key()), xclbinID.String(), arg(mode))
	s.exit(h, sig)
	return &HwContext{s: s, h: h}
}

// UpdateQoS replaces the context's QoS configuration.
func (c *HwContext) UpdateQoS(cfg uintptr) {
	sig := dispatch.SigHwContextUpdateQoS
	c.s.entry(c.h, sig, arg(cfg))
	if fn := c.s.table.HwContext.UpdateQoS; fn != nil {
		fn(c.h.This(), cfg)
	} else {
		slotError(sig)
	}
	c.s.exit(c.h, sig)
}

// Key returns the correlation key of the underlying object.
func (c *HwContext) Key() uintptr {
	return c.h.Key()
}

// Clone returns a copy sharing the underlying object.
func (c *HwContext) Clone() *HwContext {
	return &HwContext{s: c.s, h: c.h.Retain()}
}

// Close drops this reference; the last one records the destruction.
func (c *HwContext) Close() {
	c.s.destroy(c.h, sigHwContextDtor, nil)
}

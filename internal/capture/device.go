package capture

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/rajiv448/XRT/internal/dispatch"
)

// Device wraps one runtime device object.
type Device struct {
	s *Session
	h *Handle
}

// NewDevice opens the device at index through the real constructor and
// records the construction. The forward comes first: the correlation key
// exists only once the constructor has populated the storage.
func (s *Session) NewDevice(index uint32) *Device {
	h := newHandle()
	if fn := s.table.Device.Ctor; fn != nil {
		fn(h.This(), index)
	} else {
		slotError(dispatch.SigDeviceCtor)
	}
	s.entry(h, dispatch.SigDeviceCtor, arg(index))
	s.exit(h, dispatch.SigDeviceCtor)
	return &Device{s: s, h: h}
}

// Key returns the correlation key of the underlying object.
func (d *Device) Key() uintptr {
	return d.h.Key()
}

// Clone returns a copy sharing the underlying object. The destruction
// record belongs to whichever copy is closed last.
func (d *Device) Clone() *Device {
	return &Device{s: d.s, h: d.h.Retain()}
}

// LoadXclbin loads the image file at fnm into the device and returns its
// UUID. The raw image bytes are preserved in the blob file so the trace
// carries the exact binary the device saw.
func (d *Device) LoadXclbin(fnm string) uuid.UUID {
	sig := dispatch.SigDeviceLoadXclbinFnm
	d.s.entry(d.h, sig, fnm)

	var out [16]byte
	if fn := d.s.table.Device.LoadXclbinFnm; fn != nil {
		fn(d.h.This(), fnm, &out[0])
	} else {
		slotError(sig)
	}
	id, _ := uuid.FromBytes(out[:])

	ref := "mem@unavailable"
	if data, err := os.ReadFile(fnm); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", fnm, err)
	} else {
		ref = d.s.writer.WriteBlob(data)
	}

	d.s.exitRet(d.h, sig, id.String(), named("xclbin", ref))
	return id
}

// LoadXclbinObj loads an already-constructed xclbin object into the device
// and returns its UUID.
func (d *Device) LoadXclbinObj(x *Xclbin) uuid.UUID {
	sig := dispatch.SigDeviceLoadXclbinObj
	d.s.entry(d.h, sig, arg(x.Key()))

	var out [16]byte
	if fn := d.s.table.Device.LoadXclbinObj; fn != nil {
		fn(d.h.This(), x.h.This(), &out[0])
	} else {
		slotError(sig)
	}
	id, _ := uuid.FromBytes(out[:])

	d.s.exitRet(d.h, sig, id.String())
	return id
}

// XclbinUUID returns the UUID of the image currently loaded on the device.
func (d *Device) XclbinUUID() uuid.UUID {
	sig := dispatch.SigDeviceGetXclbinUUID
	d.s.entry(d.h, sig)

	var out [16]byte
	if fn := d.s.table.Device.GetXclbinUUID; fn != nil {
		fn(d.h.This(), &out[0])
	} else {
		slotError(sig)
	}
	id, _ := uuid.FromBytes(out[:])

	d.s.exitRet(d.h, sig, id.String())
	return id
}

// Close drops this reference; the last one records the destruction.
func (d *Device) Close() {
	d.s.destroy(d.h, sigDeviceDtor, nil)
}

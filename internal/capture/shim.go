package capture

import (
	"fmt"
	"os"
)

// Destruction records have no dispatch slot behind them; the storage is
// dropped on our side once the last reference goes.
const (
	sigDeviceDtor    = "xrt::device::~device()"
	sigXclbinDtor    = "xrt::xclbin::~xclbin()"
	sigHwContextDtor = "xrt::hw_context::~hw_context()"
	sigKernelDtor    = "xrt::kernel::~kernel()"
	sigRunDtor       = "xrt::run::~run()"
	sigBODtor        = "xrt::bo::~bo()"
)

// slotError reports a call that could not be forwarded because its slot
// never resolved. One stderr line naming the signature, no trace records
// for a call that never happened.
func slotError(sig string) {
	fmt.Fprintf(os.Stderr, "%s is not bound\n", sig)
}

// handleError reports a record skipped because the object carries no
// implementation pointer to correlate on.
func handleError(sig string) {
	fmt.Fprintf(os.Stderr, "handle is null in %s\n", sig)
}

// entry records call entry for h. Skipped with a diagnostic when the handle
// has no implementation.
func (s *Session) entry(h *Handle, sig string, args ...string) {
	if !h.Valid() {
		handleError(sig)
		return
	}
	s.writer.Entry(h.Key(), sig, args...)
}

// exit records call exit for h, optionally with name=value output
// parameters. A call with no handle was already diagnosed at entry, so the
// skip here is silent: one stderr line per skipped call.
func (s *Session) exit(h *Handle, sig string, namedArgs ...string) {
	if !h.Valid() {
		return
	}
	s.writer.Exit(h.Key(), sig, namedArgs...)
}

// exitRet records call exit including the return value.
func (s *Session) exitRet(h *Handle, sig, ret string, namedArgs ...string) {
	if !h.Valid() {
		return
	}
	s.writer.ExitRet(h.Key(), sig, ret, namedArgs...)
}

// destroy drops one reference to h and, on the last one, emits the
// destruction records around fn per the session's ordering. fn is the real
// teardown and may be nil. Reports whether this release was the last.
func (s *Session) destroy(h *Handle, sig string, fn func()) bool {
	if !h.Release() {
		return false
	}

	// The key must be read before teardown can invalidate the storage.
	key := h.Key()
	emit := func() {
		if key == 0 {
			handleError(sig)
			return
		}
		s.writer.Entry(key, sig)
		s.writer.Exit(key, sig)
	}

	if s.dtorOrder == TraceThenDestroy {
		emit()
		if fn != nil {
			fn()
		}
		return true
	}
	if fn != nil {
		fn()
	}
	emit()
	return true
}

// arg renders one positional argument value the way the text trace carries
// it: pointers in hex, everything else in its natural decimal or literal
// form.
func arg(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case uintptr:
		return fmt.Sprintf("0x%x", x)
	default:
		return fmt.Sprint(v)
	}
}

// named renders a name=value output parameter.
func named(name string, v any) string {
	return name + "=" + arg(v)
}

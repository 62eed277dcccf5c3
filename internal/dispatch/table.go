// Package dispatch holds the process-wide table of resolved runtime entry
// points. The table is populated exactly once during startup, before any
// client thread can observe it, and is read lock-free afterwards.
package dispatch

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rajiv448/XRT/internal/symbols"
)

// Canonical signatures of every intercepted entry point. These are the join
// keys between the statically known call sites and the dynamically resolved
// exports; they must match what the resolver's normalization produces.
const (
	SigDeviceCtor          = "xrt::device::device(unsigned int)"
	SigDeviceLoadXclbinFnm = "xrt::device::load_xclbin(std::string const&)"
	SigDeviceLoadXclbinObj = "xrt::device::load_xclbin(xrt::xclbin const&)"
	SigDeviceGetXclbinUUID = "xrt::device::get_xclbin_uuid()"

	SigXclbinCtorFnm  = "xrt::xclbin::xclbin(std::string const&)"
	SigXclbinCtorRaw  = "xrt::xclbin::xclbin(std::vector<char, std::allocator<char> > const&)"
	SigXclbinCtorAxlf = "xrt::xclbin::xclbin(axlf const*)"

	SigHwContextCtorCfg   = "xrt::hw_context::hw_context(xrt::device const&, xrt::uuid const&, xrt::hw_context::cfg_param_type const&)"
	SigHwContextCtorMode  = "xrt::hw_context::hw_context(xrt::device const&, xrt::uuid const&, xrt::hw_context::access_mode)"
	SigHwContextUpdateQoS = "xrt::hw_context::update_qos(xrt::hw_context::cfg_param_type const&)"

	SigKernelCtor    = "xrt::kernel::kernel(xrt::hw_context const&, std::string const&)"
	SigKernelGroupID = "xrt::kernel::group_id(int)"

	SigRunCtor  = "xrt::run::run(xrt::kernel const&)"
	SigRunStart = "xrt::run::start()"
	SigRunWait  = "xrt::run::wait()"

	SigBOCtor  = "xrt::bo::bo(xrt::device const&, unsigned long, unsigned long, unsigned int)"
	SigBOWrite = "xrt::bo::write(void const*, unsigned long, unsigned long)"
	SigBORead  = "xrt::bo::read(void*, unsigned long, unsigned long)"
	SigBOSync  = "xrt::bo::sync(xclBOSyncDirection, unsigned long, unsigned long)"
	SigBOMap   = "xrt::bo::map()"

	SigExtBOCtor = "xrt::ext::bo::bo(xrt::device const&, unsigned long)"
)

// Slot signatures use opaque this/handle pointers; argument semantics stay
// with the runtime and are never reinterpreted here.

// DeviceFuncs holds the device class entry points.
type DeviceFuncs struct {
	Ctor          func(this uintptr, index uint32)
	LoadXclbinFnm func(this uintptr, fnm string, uuidOut *byte)
	LoadXclbinObj func(this uintptr, xclbin uintptr, uuidOut *byte)
	GetXclbinUUID func(this uintptr, uuidOut *byte)
}

// XclbinFuncs holds the xclbin class entry points.
type XclbinFuncs struct {
	CtorFnm  func(this uintptr, fnm string)
	CtorRaw  func(this uintptr, data *byte, size uint64)
	CtorAxlf func(this uintptr, axlf uintptr)
}

// HwContextFuncs holds the hardware-context class entry points.
type HwContextFuncs struct {
	CtorFromCfg  func(this uintptr, device uintptr, xclbinID *byte, cfg uintptr)
	CtorFromMode func(this uintptr, device uintptr, xclbinID *byte, mode int32)
	UpdateQoS    func(this uintptr, cfg uintptr)
}

// KernelFuncs holds the kernel class entry points.
type KernelFuncs struct {
	Ctor    func(this uintptr, hwctx uintptr, name string)
	GroupID func(this uintptr, arg int32) int32
}

// RunFuncs holds the run class entry points.
type RunFuncs struct {
	Ctor  func(this uintptr, kernel uintptr)
	Start func(this uintptr)
	Wait  func(this uintptr)
}

// BOFuncs holds the buffer-object class entry points.
type BOFuncs struct {
	Ctor  func(this uintptr, device uintptr, size uint64, flags uint64, grp uint32)
	Write func(this uintptr, src *byte, size uint64, seek uint64)
	Read  func(this uintptr, dst *byte, size uint64, skip uint64)
	Sync  func(this uintptr, dir int32, size uint64, offset uint64)
	Map   func(this uintptr) uintptr
}

// ExtFuncs holds the extension entry points.
type ExtFuncs struct {
	BOCtor func(this uintptr, device uintptr, size uint64)
}

// Binder turns an exported symbol name into a callable bound into a slot.
// *loader.Library satisfies it; tests substitute their own.
type Binder interface {
	Bind(fptr any, symbol string) error
}

// Table is the dispatch table: one sub-struct per intercepted class, each
// field a function-pointer cell. A nil cell is an unresolved slot; shims
// check before calling through.
type Table struct {
	Device    DeviceFuncs
	Xclbin    XclbinFuncs
	HwContext HwContextFuncs
	Kernel    KernelFuncs
	Run       RunFuncs
	BO        BOFuncs
	Ext       ExtFuncs

	bound     map[string]bool
	populated bool
}

type slotDef struct {
	sig  string
	fptr any
}

// slots is the compile-time association between canonical signatures and
// the cells they populate.
func (t *Table) slots() []slotDef {
	return []slotDef{
		{SigDeviceCtor, &t.Device.Ctor},
		{SigDeviceLoadXclbinFnm, &t.Device.LoadXclbinFnm},
		{SigDeviceLoadXclbinObj, &t.Device.LoadXclbinObj},
		{SigDeviceGetXclbinUUID, &t.Device.GetXclbinUUID},
		{SigXclbinCtorFnm, &t.Xclbin.CtorFnm},
		{SigXclbinCtorRaw, &t.Xclbin.CtorRaw},
		{SigXclbinCtorAxlf, &t.Xclbin.CtorAxlf},
		{SigHwContextCtorCfg, &t.HwContext.CtorFromCfg},
		{SigHwContextCtorMode, &t.HwContext.CtorFromMode},
		{SigHwContextUpdateQoS, &t.HwContext.UpdateQoS},
		{SigKernelCtor, &t.Kernel.Ctor},
		{SigKernelGroupID, &t.Kernel.GroupID},
		{SigRunCtor, &t.Run.Ctor},
		{SigRunStart, &t.Run.Start},
		{SigRunWait, &t.Run.Wait},
		{SigBOCtor, &t.BO.Ctor},
		{SigBOWrite, &t.BO.Write},
		{SigBORead, &t.BO.Read},
		{SigBOSync, &t.BO.Sync},
		{SigBOMap, &t.BO.Map},
		{SigExtBOCtor, &t.Ext.BOCtor},
	}
}

// Populate binds every known signature the resolver produced. A signature
// missing from the index, or one the binder cannot resolve, leaves its slot
// nil: per-symbol failures are soft, the rest of the table still works.
func (t *Table) Populate(ix *symbols.Index, b Binder, log zerolog.Logger) error {
	if t.populated {
		return fmt.Errorf("dispatch table populated twice")
	}
	t.bound = make(map[string]bool)

	for _, s := range t.slots() {
		sym, ok := ix.Lookup(s.sig)
		if !ok {
			// MSVC undecoration keeps the trailing qualifier on const
			// member functions.
			sym, ok = ix.Lookup(s.sig + " const")
		}
		if !ok {
			log.Debug().Str("signature", s.sig).Msg("signature not exported, slot left empty")
			continue
		}
		if err := b.Bind(s.fptr, sym.Mangled); err != nil {
			log.Warn().Err(err).Str("signature", s.sig).Msg("bind failed, slot left empty")
			continue
		}
		t.bound[s.sig] = true
	}

	t.populated = true
	log.Debug().Int("bound", len(t.bound)).Int("known", len(t.slots())).
		Msg("dispatch table populated")
	return nil
}

// Bound reports whether a canonical signature resolved to a callable slot.
func (t *Table) Bound(sig string) bool {
	return t.bound[sig]
}

// Known returns every canonical signature the table has a slot for, sorted.
func (t *Table) Known() []string {
	out := make([]string, 0, len(t.slots()))
	for _, s := range t.slots() {
		out = append(out, s.sig)
	}
	sort.Strings(out)
	return out
}

package dispatch

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajiv448/XRT/internal/symbols"
)

// fakeBinder satisfies Binder by installing a no-op function of the slot's
// exact type, the same shape a real foreign binding would have.
type fakeBinder struct {
	bound []string
	fail  map[string]bool
}

func (b *fakeBinder) Bind(fptr any, symbol string) error {
	if b.fail[symbol] {
		return errors.New("symbol not found")
	}
	fn := reflect.ValueOf(fptr).Elem()
	fn.Set(reflect.MakeFunc(fn.Type(), func(args []reflect.Value) []reflect.Value {
		out := make([]reflect.Value, fn.Type().NumOut())
		for i := range out {
			out[i] = reflect.Zero(fn.Type().Out(i))
		}
		return out
	}))
	b.bound = append(b.bound, symbol)
	return nil
}

func indexOf(sigs map[string]string) *symbols.Index {
	var syms []symbols.Symbol
	for canonical, mangled := range sigs {
		syms = append(syms, symbols.Symbol{Mangled: mangled, Canonical: canonical})
	}
	return symbols.NewIndex(syms)
}

func TestTable_PopulateBindsResolved(t *testing.T) {
	ix := indexOf(map[string]string{
		SigDeviceCtor: "_ZN3xrt6deviceC1Ej",
		SigRunStart:   "_ZN3xrt3run5startEv",
	})

	var tbl Table
	b := &fakeBinder{}
	require.NoError(t, tbl.Populate(ix, b, zerolog.Nop()))

	assert.NotNil(t, tbl.Device.Ctor)
	assert.NotNil(t, tbl.Run.Start)
	assert.Nil(t, tbl.Run.Wait, "unresolved slots stay empty")

	assert.True(t, tbl.Bound(SigDeviceCtor))
	assert.True(t, tbl.Bound(SigRunStart))
	assert.False(t, tbl.Bound(SigRunWait))

	assert.ElementsMatch(t, []string{"_ZN3xrt6deviceC1Ej", "_ZN3xrt3run5startEv"}, b.bound)
}

func TestTable_PopulateTwiceFails(t *testing.T) {
	var tbl Table
	require.NoError(t, tbl.Populate(indexOf(nil), &fakeBinder{}, zerolog.Nop()))
	assert.Error(t, tbl.Populate(indexOf(nil), &fakeBinder{}, zerolog.Nop()))
}

func TestTable_BindFailureIsSoft(t *testing.T) {
	ix := indexOf(map[string]string{
		SigRunStart: "_ZN3xrt3run5startEv",
		SigRunWait:  "_ZN3xrt3run4waitEv",
	})

	b := &fakeBinder{fail: map[string]bool{"_ZN3xrt3run4waitEv": true}}
	var tbl Table
	require.NoError(t, tbl.Populate(ix, b, zerolog.Nop()))

	assert.True(t, tbl.Bound(SigRunStart))
	assert.False(t, tbl.Bound(SigRunWait))
	assert.Nil(t, tbl.Run.Wait)
}

func TestTable_ConstQualifierFallback(t *testing.T) {
	// MSVC undecoration leaves the trailing const on member functions.
	ix := indexOf(map[string]string{
		SigDeviceGetXclbinUUID + " const": "?get_xclbin_uuid@device@xrt@@QEBA?AVuuid@2@XZ",
	})

	var tbl Table
	require.NoError(t, tbl.Populate(ix, &fakeBinder{}, zerolog.Nop()))

	assert.True(t, tbl.Bound(SigDeviceGetXclbinUUID))
	assert.NotNil(t, tbl.Device.GetXclbinUUID)
}

func TestTable_BoundSlotIsCallable(t *testing.T) {
	ix := indexOf(map[string]string{
		SigKernelGroupID: "_ZN3xrt6kernel8group_idEi",
	})

	var tbl Table
	require.NoError(t, tbl.Populate(ix, &fakeBinder{}, zerolog.Nop()))

	require.NotNil(t, tbl.Kernel.GroupID)
	assert.Equal(t, int32(0), tbl.Kernel.GroupID(0, 3))
}

func TestTable_KnownCoversEverySlot(t *testing.T) {
	var tbl Table
	known := tbl.Known()

	assert.Len(t, known, len(tbl.slots()))
	assert.Contains(t, known, SigBOSync)
	assert.Contains(t, known, SigExtBOCtor)
	assert.IsNonDecreasing(t, known)
}

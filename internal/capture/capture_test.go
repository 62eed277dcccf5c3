package capture

import (
	"io"
	"os"
	"strings"
	"testing"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajiv448/XRT/internal/dispatch"
	"github.com/rajiv448/XRT/internal/trace"
)

// newTestSession builds a session with a real writer in a scratch directory
// and an empty dispatch table for the test to fill with fake slots.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	w, err := trace.NewWriter(trace.Config{
		AppName: "capture-test",
		BaseDir: t.TempDir(),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() }) // nolint:errcheck

	return &Session{
		log:       zerolog.Nop(),
		writer:    w,
		table:     &dispatch.Table{},
		dtorOrder: TraceThenDestroy,
	}
}

// setImpl plays the real constructor: it writes an implementation pointer
// into the opaque object storage.
func setImpl(this uintptr, impl uintptr) {
	*(*uintptr)(unsafe.Pointer(this)) = impl
}

func parseSession(t *testing.T, s *Session) *trace.ParsedTrace {
	t.Helper()
	dir := s.writer.Dir()
	require.NoError(t, s.writer.Close())
	p, err := trace.ReadDir(dir)
	require.NoError(t, err)
	return p
}

// captureStderr runs fn with stderr redirected into a pipe and returns what
// it wrote.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return string(out)
}

func TestDeviceCtor_RecordsFollowForward(t *testing.T) {
	s := newTestSession(t)

	var sawKeyAtCall uintptr
	s.table.Device.Ctor = func(this uintptr, index uint32) {
		// Storage must be blank when the constructor runs.
		sawKeyAtCall = *(*uintptr)(unsafe.Pointer(this))
		setImpl(this, 0xd00d)
	}

	d := s.NewDevice(1)
	assert.Equal(t, uintptr(0), sawKeyAtCall)
	assert.Equal(t, uintptr(0xd00d), d.Key())

	calls := parseSession(t, s).Calls()
	require.Len(t, calls, 2)

	assert.Equal(t, trace.KindEntry, calls[0].Kind)
	assert.Equal(t, dispatch.SigDeviceCtor, calls[0].Signature)
	assert.Equal(t, "1", calls[0].Args)
	assert.Equal(t, uintptr(0xd00d), calls[0].Key)

	assert.Equal(t, trace.KindExit, calls[1].Kind)
	assert.Equal(t, calls[0].Key, calls[1].Key)
}

func TestCtorWithoutImpl_SkipsRecords(t *testing.T) {
	s := newTestSession(t)
	s.table.Device.Ctor = func(this uintptr, index uint32) {}

	stderr := captureStderr(t, func() {
		d := s.NewDevice(0)
		assert.Equal(t, uintptr(0), d.Key())
	})

	assert.Equal(t, 1, strings.Count(stderr, "handle is null"),
		"one diagnostic per skipped call")
	assert.Empty(t, parseSession(t, s).Calls())
}

func TestMethodCalls_PairInOrder(t *testing.T) {
	s := newTestSession(t)
	s.table.HwContext.CtorFromMode = func(this, device uintptr, id *byte, mode int32) {
		setImpl(this, 0xc0ffee)
	}
	s.table.Kernel.Ctor = func(this, hwctx uintptr, name string) {
		setImpl(this, 0xbeef)
	}
	s.table.Kernel.GroupID = func(this uintptr, argno int32) int32 {
		return argno + 10
	}

	dev := &Device{s: s, h: newHandle()}
	setImpl(dev.h.This(), 0xd00d)
	ctx := s.NewHwContextWithMode(dev, [16]byte{}, 1)
	k := s.NewKernel(ctx, "vadd")

	const n = 5
	for i := int32(0); i < n; i++ {
		assert.Equal(t, i+10, k.GroupID(i))
	}

	calls := parseSession(t, s).Calls()
	// Two ctors plus n method calls, each an entry/exit pair.
	require.Len(t, calls, 2*(2+n))

	groupCalls := calls[4:]
	for i := 0; i < n; i++ {
		entry := groupCalls[2*i]
		exit := groupCalls[2*i+1]

		assert.Equal(t, trace.KindEntry, entry.Kind)
		assert.Equal(t, trace.KindExit, exit.Kind)
		assert.Equal(t, dispatch.SigKernelGroupID, entry.Signature)
		assert.Equal(t, entry.Signature, exit.Signature)
		assert.Equal(t, uintptr(0xbeef), entry.Key)
		assert.Equal(t, entry.Key, exit.Key)
		assert.Equal(t, entry.PID, exit.PID)
	}
}

func TestUnresolvedSlot_OneErrorLineNoCrash(t *testing.T) {
	s := newTestSession(t)
	s.table.Run.Ctor = func(this, kernel uintptr) { setImpl(this, 0x5105) }
	k := &Kernel{s: s, h: newHandle()}
	setImpl(k.h.This(), 0xbeef)

	r := s.NewRun(k)
	stderr := captureStderr(t, func() { r.Start() })

	assert.Equal(t, 1, strings.Count(stderr, "is not bound"))
	assert.Contains(t, stderr, dispatch.SigRunStart)

	// The records still bracket the (skipped) call.
	calls := parseSession(t, s).Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, dispatch.SigRunStart, calls[2].Signature)
}

func TestDestroy_LastReferenceWins(t *testing.T) {
	for _, order := range []DtorOrder{TraceThenDestroy, DestroyThenTrace} {
		s := newTestSession(t)
		s.dtorOrder = order
		s.table.Device.Ctor = func(this uintptr, index uint32) { setImpl(this, 0xd00d) }

		d := s.NewDevice(0)
		clone := d.Clone()

		d.Close()
		clone.Close()

		calls := parseSession(t, s).Calls()
		// One ctor pair and exactly one dtor pair, regardless of ordering.
		require.Len(t, calls, 4)
		assert.Equal(t, sigDeviceDtor, calls[2].Signature)
		assert.Equal(t, sigDeviceDtor, calls[3].Signature)
		assert.Equal(t, uintptr(0xd00d), calls[2].Key)
	}
}

func TestDestroy_TraceThenDestroyOrdering(t *testing.T) {
	s := newTestSession(t)
	h := newHandle()
	setImpl(h.This(), 0xfeed)

	var recordsAtTeardown int
	teardown := func() {
		p, err := trace.ReadDir(s.writer.Dir())
		require.NoError(t, err)
		recordsAtTeardown = len(p.Calls())
	}

	require.True(t, s.destroy(h, sigBODtor, teardown))
	assert.Equal(t, 2, recordsAtTeardown, "records must precede teardown")
}

func TestDestroy_DestroyThenTraceUsesSavedKey(t *testing.T) {
	s := newTestSession(t)
	s.dtorOrder = DestroyThenTrace
	h := newHandle()
	setImpl(h.This(), 0xfeed)

	teardown := func() { setImpl(h.This(), 0) }
	require.True(t, s.destroy(h, sigBODtor, teardown))

	calls := parseSession(t, s).Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, uintptr(0xfeed), calls[0].Key)
}

func TestBOWrite_DumpsPayload(t *testing.T) {
	s := newTestSession(t)
	s.table.BO.Ctor = func(this, device uintptr, size, flags uint64, grp uint32) {
		setImpl(this, 0xb0)
	}
	var forwarded []byte
	s.table.BO.Write = func(this uintptr, src *byte, size, seek uint64) {
		forwarded = unsafe.Slice(src, size)
	}

	dev := &Device{s: s, h: newHandle()}
	setImpl(dev.h.This(), 0xd00d)

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	b := s.NewBO(dev, uint64(len(payload)), 0, 2)
	b.Write(payload, 0)
	assert.Equal(t, payload, forwarded)

	dir := s.writer.Dir()
	calls := parseSession(t, s).Calls()
	require.Len(t, calls, 4)

	entry := calls[2]
	require.Equal(t, dispatch.SigBOWrite, entry.Signature)
	ref, _, found := strings.Cut(entry.Args, ", ")
	require.True(t, found)
	require.True(t, strings.HasPrefix(ref, "mem@0x"))

	got, err := trace.ResolveBlob(dir, ref)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLoadXclbin_PreservesImage(t *testing.T) {
	s := newTestSession(t)
	s.table.Device.Ctor = func(this uintptr, index uint32) { setImpl(this, 0xd00d) }
	image := []byte("xclbin2\x00fake image payload")

	fnm := s.writer.Dir() + "/kernel.xclbin"
	require.NoError(t, os.WriteFile(fnm, image, 0644))

	wantUUID := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	s.table.Device.LoadXclbinFnm = func(this uintptr, name string, uuidOut *byte) {
		copy(unsafe.Slice(uuidOut, 16), wantUUID[:])
	}

	d := s.NewDevice(0)
	id := d.LoadXclbin(fnm)
	assert.Equal(t, wantUUID[:], id[:])

	dir := s.writer.Dir()
	calls := parseSession(t, s).Calls()
	require.Len(t, calls, 4)

	exit := calls[3]
	assert.Equal(t, id.String(), exit.Return)
	require.True(t, strings.HasPrefix(exit.Args, "xclbin=mem@0x"))

	ref := strings.TrimPrefix(exit.Args, "xclbin=")
	got, err := trace.ResolveBlob(dir, ref)
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestNilWriter_DegradesToSilence(t *testing.T) {
	s := &Session{
		log:       zerolog.Nop(),
		table:     &dispatch.Table{},
		dtorOrder: TraceThenDestroy,
	}
	s.table.Device.Ctor = func(this uintptr, index uint32) { setImpl(this, 0xd00d) }

	d := s.NewDevice(0)
	d.Close()
	assert.Equal(t, "", s.TraceDir())
}

// Package capture is the instrumentation layer: thin wrappers around the
// real runtime's classes that record entry and exit of every intercepted
// call before forwarding through the dispatch table. One Session carries
// all per-process state; nothing in here is a process global.
package capture

import (
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/rajiv448/XRT/internal/config"
	"github.com/rajiv448/XRT/internal/dispatch"
	"github.com/rajiv448/XRT/internal/loader"
	"github.com/rajiv448/XRT/internal/logging"
	"github.com/rajiv448/XRT/internal/trace"
)

// DtorOrder selects when a destruction record is written relative to the
// real teardown of the object.
type DtorOrder int

const (
	// TraceThenDestroy records first, while the implementation pointer is
	// still live, then tears down. The default: the correlation key cannot
	// be read from freed storage.
	TraceThenDestroy DtorOrder = iota
	// DestroyThenTrace tears down first and records from a key captured up
	// front. Matches runtimes that invalidate the object only on return.
	DestroyThenTrace
)

// Session is the per-process capture state: session configuration, the
// trace writer, the loaded runtime library and the populated dispatch
// table. Build one with NewSession, call Init before the first intercepted
// call and Close at teardown.
type Session struct {
	cfg       config.Session
	log       zerolog.Logger
	writer    *trace.Writer
	lib       *loader.Library
	table     *dispatch.Table
	dtorOrder DtorOrder
}

// NewSession returns an uninitialized session with platform-default
// destructor ordering.
func NewSession() *Session {
	return &Session{
		table:     &dispatch.Table{},
		dtorOrder: defaultDtorOrder(),
	}
}

func defaultDtorOrder() DtorOrder {
	if runtime.GOOS == "windows" {
		return DestroyThenTrace
	}
	return TraceThenDestroy
}

// SetDtorOrder overrides the destructor ordering. Must be called before the
// first object is destroyed.
func (s *Session) SetDtorOrder(o DtorOrder) {
	s.dtorOrder = o
}

// Init reads the environment the launcher prepared, opens the trace
// session, resolves the real library's exports and populates the dispatch
// table. Resolution failures are fatal, a half-bound table cannot be
// trusted. Trace I/O failures are not: the traced application keeps
// running, records are dropped.
func (s *Session) Init() error {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "capture: %v\n", err)
	}
	s.cfg = cfg
	s.log = logging.ForInstrumentation(cfg.InstDebug)

	w, err := trace.NewWriter(trace.Config{
		AppName:   cfg.AppName,
		StartTime: cfg.StartTime,
		Logger:    s.log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "capture: tracing disabled: %v\n", err)
		w = nil
	}
	s.writer = w

	ix, lib, err := resolveRuntime(s.log)
	if err != nil {
		return fmt.Errorf("resolve runtime library: %w", err)
	}
	s.lib = lib

	if err := s.table.Populate(ix, lib, s.log); err != nil {
		return err
	}
	s.log.Debug().Str("library", lib.Path()).Msg("capture session ready")
	return nil
}

// Writer exposes the trace writer, nil when tracing is disabled.
func (s *Session) Writer() *trace.Writer {
	return s.writer
}

// Table exposes the dispatch table.
func (s *Session) Table() *dispatch.Table {
	return s.table
}

// TraceDir returns the session directory, empty when tracing is disabled.
func (s *Session) TraceDir() string {
	return s.writer.Dir()
}

// Close ends the trace session and releases the runtime library.
func (s *Session) Close() error {
	err := s.writer.Close()
	if s.lib != nil {
		if cerr := s.lib.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.lib = nil
	}
	return err
}

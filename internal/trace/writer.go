// Package trace owns the on-disk trace session: a line-oriented text trace
// and a binary side-file for raw buffer payloads. Records are append-only
// and each one is issued as a single write, so concurrent threads may
// interleave whole records but never corrupt one.
package trace

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajiv448/XRT/pkg/version"
)

const (
	// TextFileName is the human-readable trace inside the session directory.
	TextFileName = "trace.txt"
	// BinFileName is the binary payload blob referenced from the text trace.
	BinFileName = "memdump.bin"

	// SessionTimeFormat names the session directory after the start time.
	SessionTimeFormat = "2006-01-02_15-04-05"
)

// Phase tags a record as call entry or call exit.
type Phase int

const (
	PhaseEntry Phase = iota
	PhaseExit
)

func (p Phase) String() string {
	if p == PhaseEntry {
		return "ENTRY"
	}
	return "EXIT"
}

// Config carries the session parameters the writer needs at construction.
type Config struct {
	// AppName is the logical application name recorded in the header.
	AppName string
	// StartTime is the session start; elapsed fields are relative to it.
	StartTime time.Time
	// BaseDir is where the session directory is created (default ".").
	BaseDir string
	// Logger receives diagnostics; trace output never goes through it.
	Logger zerolog.Logger
}

// Writer appends entry/exit records for one process. Single instance per
// session; construct it once at startup and hand it to the shim layer.
type Writer struct {
	cfg   Config
	dir   string
	txt   *os.File
	bin   *os.File
	pid   int
	start time.Time

	// binMu keeps the returned blob offset consistent with the write.
	binMu  sync.Mutex
	binOff int64
}

// NewWriter creates the session directory, opens both trace files and emits
// the header and start marker. I/O failures here disable tracing for the
// process but must never take the traced application down with them.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	base := cfg.BaseDir
	if base == "" {
		base = "."
	}

	dir := filepath.Join(base, cfg.StartTime.Format(SessionTimeFormat))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create session directory %s: %w", dir, err)
	}

	txt, err := os.OpenFile(filepath.Join(dir, TextFileName),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", TextFileName, err)
	}

	bin, err := os.OpenFile(filepath.Join(dir, BinFileName),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		txt.Close() // nolint:errcheck
		return nil, fmt.Errorf("open %s: %w", BinFileName, err)
	}

	w := &Writer{
		cfg:   cfg,
		dir:   dir,
		txt:   txt,
		bin:   bin,
		pid:   os.Getpid(),
		start: cfg.StartTime,
	}

	stamp := fmt.Sprintf("%s.%09d",
		w.start.Format(SessionTimeFormat), w.start.Nanosecond())

	w.write(fmt.Sprintf("|HEADER|pname:%q|pid:%d|xrt_ver:%s|os:%s|time:%s|\n",
		cfg.AppName, w.pid, version.XRTVersion, osIdentity(), stamp))
	w.write(fmt.Sprintf("|START|%s|\n", stamp))

	return w, nil
}

// Dir returns the session directory path.
func (w *Writer) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// Log appends one record: phase, elapsed time since session start, process
// id, thread id, correlation key and the prepared body. Nil-safe so a failed
// setup degrades to silence instead of crashing intercepted code.
func (w *Writer) Log(phase Phase, key uintptr, body string) {
	if w == nil || w.txt == nil {
		return
	}
	w.write(fmt.Sprintf("|%s|%s|%d|%d|0x%x|%s|\n",
		phase, w.elapsed(time.Now()), w.pid, threadID(), key, body))
}

// Entry records a call entry: signature plus positional argument values.
func (w *Writer) Entry(key uintptr, sig string, args ...string) {
	w.Log(PhaseEntry, key, sig+"("+strings.Join(args, ", ")+")")
}

// Exit records a call exit with no return value. namedArgs are
// "name=value" pairs for output parameters.
func (w *Writer) Exit(key uintptr, sig string, namedArgs ...string) {
	w.Log(PhaseExit, key, sig+"|"+strings.Join(namedArgs, ", "))
}

// ExitRet records a call exit including the return value.
func (w *Writer) ExitRet(key uintptr, sig, ret string, namedArgs ...string) {
	w.Log(PhaseExit, key, sig+"="+ret+"|"+strings.Join(namedArgs, ", "))
}

// WriteBlob appends a raw payload to the blob file framed as a 4-byte "mem\0"
// tag and a 4-byte little-endian length, and returns the textual reference to
// embed in the text trace in its place.
func (w *Writer) WriteBlob(p []byte) string {
	if w == nil || w.bin == nil {
		return "mem@unavailable"
	}

	w.binMu.Lock()
	defer w.binMu.Unlock()

	off := w.binOff
	buf := make([]byte, 0, 8+len(p))
	buf = append(buf, 'm', 'e', 'm', 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p)))
	buf = append(buf, p...)

	n, err := w.bin.Write(buf)
	if err != nil {
		w.cfg.Logger.Error().Err(err).Msg("blob write failed")
	}
	w.binOff += int64(n)

	return fmt.Sprintf("mem@0x%x[filename:%s]", off, BinFileName)
}

// Close emits the end marker with the session stamp and closes both files.
func (w *Writer) Close() error {
	if w == nil || w.txt == nil {
		return nil
	}

	now := time.Now()
	w.write(fmt.Sprintf("|END|%s.%09d|\n",
		now.Format(SessionTimeFormat), now.Nanosecond()))

	var firstErr error
	if err := w.bin.Close(); err != nil {
		firstErr = err
	}
	if err := w.txt.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	w.txt = nil
	w.bin = nil
	return firstErr
}

// elapsed renders now-start as seconds.nanoseconds with 9-digit zero
// padding, matching the format consumed by the offline reader.
func (w *Writer) elapsed(now time.Time) string {
	d := now.Sub(w.start)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%d.%09d", d/time.Second, d%time.Second)
}

// write issues one composed record as a single Write call.
func (w *Writer) write(line string) {
	if _, err := w.txt.WriteString(line); err != nil {
		w.cfg.Logger.Error().Err(err).Msg("trace write failed")
	}
}

package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RecordKind identifies a parsed trace line.
type RecordKind int

const (
	KindHeader RecordKind = iota
	KindStart
	KindEntry
	KindExit
	KindEnd
)

// Record is one parsed trace line. Entry/Exit records carry the full tuple;
// markers only fill Kind and Raw.
type Record struct {
	Kind      RecordKind
	Elapsed   string
	PID       int
	TID       int
	Key       uintptr
	Signature string
	Args      string // positional args (entry) or named output args (exit)
	Return    string // exit records only, empty for void calls
	Raw       string
}

// ParsedTrace holds a fully parsed text trace.
type ParsedTrace struct {
	Header  string
	Records []Record
}

// Calls returns only the entry/exit records.
func (p *ParsedTrace) Calls() []Record {
	var out []Record
	for _, r := range p.Records {
		if r.Kind == KindEntry || r.Kind == KindExit {
			out = append(out, r)
		}
	}
	return out
}

// ReadDir parses the text trace inside a session directory.
func ReadDir(dir string) (*ParsedTrace, error) {
	f, err := os.Open(filepath.Join(dir, TextFileName))
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close() // nolint:errcheck
	return Parse(f)
}

// Parse reads a text trace line by line. A malformed line is a hard error:
// the writer guarantees every emitted line is individually well-formed, so
// corruption means the file cannot be trusted.
func Parse(r io.Reader) (*ParsedTrace, error) {
	var out ParsedTrace
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, err
		}
		if rec.Kind == KindHeader {
			out.Header = rec.Raw
		}
		out.Records = append(out.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return &out, nil
}

func parseLine(line string) (Record, error) {
	rec := Record{Raw: line}

	if len(line) < 2 || !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
		return rec, fmt.Errorf("malformed trace line %q", line)
	}
	// Strip exactly one delimiter from each end: an exit record with no
	// named output args legitimately ends in "||".
	fields := strings.Split(line[1:len(line)-1], "|")
	if len(fields) == 0 || fields[0] == "" {
		return rec, fmt.Errorf("empty trace line %q", line)
	}

	switch fields[0] {
	case "HEADER":
		rec.Kind = KindHeader
		return rec, nil
	case "START":
		rec.Kind = KindStart
		return rec, nil
	case "END":
		rec.Kind = KindEnd
		return rec, nil
	case "ENTRY":
		rec.Kind = KindEntry
	case "EXIT":
		rec.Kind = KindExit
	default:
		return rec, fmt.Errorf("unknown record tag %q in %q", fields[0], line)
	}

	// |ENTRY|elapsed|pid|tid|key|sig(args)|
	// |EXIT|elapsed|pid|tid|key|sig[=ret]|named|
	if len(fields) < 6 {
		return rec, fmt.Errorf("truncated record %q", line)
	}

	rec.Elapsed = fields[1]
	pid, err := strconv.Atoi(fields[2])
	if err != nil {
		return rec, fmt.Errorf("bad pid in %q: %w", line, err)
	}
	rec.PID = pid
	tid, err := strconv.Atoi(fields[3])
	if err != nil {
		return rec, fmt.Errorf("bad tid in %q: %w", line, err)
	}
	rec.TID = tid
	key, err := strconv.ParseUint(strings.TrimPrefix(fields[4], "0x"), 16, 64)
	if err != nil {
		return rec, fmt.Errorf("bad correlation key in %q: %w", line, err)
	}
	rec.Key = uintptr(key)

	if rec.Kind == KindEntry {
		// The signature carries its own parameter list, so the argument
		// group is the last paren pair: sig(params)(args).
		body := fields[5]
		open := strings.LastIndex(body, "(")
		end := strings.LastIndex(body, ")")
		if open < 0 || end < open {
			return rec, fmt.Errorf("bad entry body %q", body)
		}
		rec.Signature = body[:open]
		rec.Args = body[open+1 : end]
		return rec, nil
	}

	if len(fields) < 7 {
		return rec, fmt.Errorf("truncated exit record %q", line)
	}
	sig := fields[5]
	if eq := strings.Index(sig, "="); eq >= 0 {
		rec.Return = sig[eq+1:]
		sig = sig[:eq]
	}
	rec.Signature = sig
	rec.Args = fields[6]
	return rec, nil
}

// ResolveBlob follows a "mem@0x<offset>[filename:<name>]" reference produced
// by Writer.WriteBlob and returns the referenced payload bytes.
func ResolveBlob(dir, ref string) ([]byte, error) {
	rest, ok := strings.CutPrefix(ref, "mem@0x")
	if !ok {
		return nil, fmt.Errorf("not a blob reference: %q", ref)
	}
	offStr, meta, ok := strings.Cut(rest, "[filename:")
	if !ok || !strings.HasSuffix(meta, "]") {
		return nil, fmt.Errorf("malformed blob reference: %q", ref)
	}
	off, err := strconv.ParseInt(offStr, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("bad blob offset in %q: %w", ref, err)
	}
	name := strings.TrimSuffix(meta, "]")

	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("open blob file: %w", err)
	}
	defer f.Close() // nolint:errcheck

	var hdr [8]byte
	if _, err := f.ReadAt(hdr[:], off); err != nil {
		return nil, fmt.Errorf("read blob header: %w", err)
	}
	if string(hdr[:4]) != "mem\x00" {
		return nil, fmt.Errorf("blob at 0x%x has bad magic %q", off, hdr[:4])
	}
	size := binary.LittleEndian.Uint32(hdr[4:])

	payload := make([]byte, size)
	if _, err := f.ReadAt(payload, off+8); err != nil {
		return nil, fmt.Errorf("read blob payload: %w", err)
	}
	return payload, nil
}

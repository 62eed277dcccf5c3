// Package config reads the trace-session parameters from the process
// environment. The capture library is loaded from deep inside intercepted
// code, where argv is long gone, so the launcher hands everything over via
// environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables shared between the launcher and the capture library.
const (
	EnvInstDebug = "INST_DEBUG"
	EnvAppName   = "TRACE_APP_NAME"
	EnvStartTime = "START_TIME"
	EnvPreload   = "LD_PRELOAD"
)

// Session holds the trace-session parameters for one traced process.
type Session struct {
	// InstDebug enables instrumentation debug diagnostics.
	InstDebug bool `env:"INST_DEBUG"`

	// AppName is the logical name of the traced application.
	AppName string `env:"TRACE_APP_NAME"`

	// StartTimeRaw is the session start time as "seconds.nanoseconds".
	StartTimeRaw string `env:"START_TIME"`

	// Preload is the dynamic-loader preload path; on Linux it doubles as
	// the on-disk location of the real runtime library.
	Preload string `env:"LD_PRELOAD"`

	// StartTime is StartTimeRaw parsed, or the load time when unset.
	StartTime time.Time
}

// FromEnv builds the session parameters from the environment. A missing or
// malformed START_TIME is not fatal: the writer falls back to the current
// time so that tracing still works when the library is preloaded by hand.
func FromEnv() (Session, error) {
	var s Session
	if err := LoadFromEnv(&s); err != nil {
		return s, err
	}

	if s.StartTimeRaw == "" {
		s.StartTime = time.Now()
		return s, nil
	}

	t, err := ParseStartTime(s.StartTimeRaw)
	if err != nil {
		s.StartTime = time.Now()
		return s, fmt.Errorf("parse %s: %w", EnvStartTime, err)
	}
	s.StartTime = t
	return s, nil
}

// ParseStartTime parses a "seconds.nanoseconds" decimal string into a local
// time.Time.
func ParseStartTime(raw string) (time.Time, error) {
	sec, nsec, found := strings.Cut(raw, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid seconds %q: %w", sec, err)
	}

	var n int64
	if found && nsec != "" {
		n, err = strconv.ParseInt(nsec, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid nanoseconds %q: %w", nsec, err)
		}
		if n < 0 || n >= int64(time.Second) {
			return time.Time{}, fmt.Errorf("nanoseconds %d out of range", n)
		}
	}

	return time.Unix(s, n), nil
}

// FormatStartTime renders a time the way ParseStartTime expects it.
func FormatStartTime(t time.Time) string {
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}

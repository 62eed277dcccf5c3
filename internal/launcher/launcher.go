// Package launcher prepares the environment for an intercepted run and
// hands the process over to the target application. The capture library
// picks the session parameters back up from the environment on load.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajiv448/XRT/internal/config"
	"github.com/rajiv448/XRT/internal/trace"
)

// Options configure one launch.
type Options struct {
	// Command is the target argv; Command[0] is resolved on PATH.
	Command []string
	// InstDebug turns on debug logging inside the capture library.
	InstDebug bool
	// LibName overrides the capture library file name.
	LibName string

	Logger zerolog.Logger
}

// FindLibrary searches the dynamic-loader search path for the named library
// and returns its full path, or empty when no directory has it.
func FindLibrary(name string) string {
	raw := config.Getenv(libSearchEnv)
	for _, dir := range filepath.SplitList(raw) {
		if dir == "" {
			continue
		}
		full := filepath.Join(dir, name)
		if _, err := os.Stat(full); err == nil {
			return full
		}
	}
	return ""
}

// Run prepares the trace environment and executes the target. On success it
// does not return on platforms where the exec replaces the process.
func Run(opts Options) error {
	if len(opts.Command) == 0 {
		return errors.New("no application to launch")
	}

	start := prepareEnv(opts)

	if dir := traceDir(start); dir != "" {
		fmt.Printf("\nTraces can be found at: %s\n\n", dir)
	}
	return execute(opts.Command)
}

// prepareEnv publishes the session parameters the capture library reads on
// load and returns the recorded start time.
func prepareEnv(opts Options) time.Time {
	log := opts.Logger

	cmdline := strings.Join(opts.Command, " ")
	config.Setenv(config.EnvAppName, cmdline)
	log.Debug().Str("value", cmdline).Str("env", config.EnvAppName).Msg("publishing")

	start := time.Now()
	config.Setenv(config.EnvStartTime, config.FormatStartTime(start))

	if opts.InstDebug {
		config.Setenv(config.EnvInstDebug, "TRUE")
	}

	name := opts.LibName
	if name == "" {
		name = CaptureLibName
	}
	if path := FindLibrary(name); path != "" {
		config.Setenv(config.EnvPreload, path)
		log.Debug().Str("library", path).Msg("capture library preloaded")
	} else {
		log.Error().Str("library", name).
			Msg("capture library not found, traces will not be captured")
	}

	return start
}

// traceDir is where the capture library will create the session, the
// working directory plus the start-time stamp. Empty when the library was
// not found and no session will exist.
func traceDir(start time.Time) string {
	if config.Getenv(config.EnvPreload) == "" {
		return ""
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, start.Format(trace.SessionTimeFormat))
}

//go:build !windows

package launcher

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

const (
	// CaptureLibName is the capture library the dynamic loader preloads
	// into the target.
	CaptureLibName = "libxrt_capture.so"

	libSearchEnv = "LD_LIBRARY_PATH"
)

// execute replaces the launcher process with the target, keeping pid and
// stdio. The prepared environment travels through the exec.
func execute(argv []string) error {
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("locate %s: %w", argv[0], err)
	}
	return unix.Exec(path, argv, os.Environ())
}

//go:build windows

package launcher

import (
	"os"
	"os/exec"
)

const (
	// CaptureLibName is the capture DLL loaded alongside the target.
	CaptureLibName = "xrt_capture.dll"

	libSearchEnv = "PATH"
)

// execute spawns the target as a child with the prepared environment and
// waits for it. There is no exec-style process replacement here.
func execute(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	return cmd.Run()
}

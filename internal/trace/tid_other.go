//go:build !linux && !windows

package trace

import "os"

// threadID falls back to the process id where no per-thread id is exposed.
func threadID() int {
	return os.Getpid()
}

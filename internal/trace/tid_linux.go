//go:build linux

package trace

import "golang.org/x/sys/unix"

// threadID returns the kernel thread id of the calling thread.
func threadID() int {
	return unix.Gettid()
}

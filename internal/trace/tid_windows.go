//go:build windows

package trace

import "golang.org/x/sys/windows"

// threadID returns the OS thread id of the calling thread.
func threadID() int {
	return int(windows.GetCurrentThreadId())
}

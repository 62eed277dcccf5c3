package config

import (
	"os"
	"sync"
)

// envMu serializes every environment read and write issued by the tracer.
// The session may mutate the environment (launcher side) while intercepted
// threads read it (capture side); C-library environment state is not safe
// to touch concurrently.
var envMu sync.Mutex

// Getenv returns the value of the named environment variable under the
// shared environment mutex.
func Getenv(key string) string {
	envMu.Lock()
	defer envMu.Unlock()
	return os.Getenv(key)
}

// Setenv sets the named environment variable under the shared environment
// mutex.
func Setenv(key, value string) error {
	envMu.Lock()
	defer envMu.Unlock()
	return os.Setenv(key, value)
}

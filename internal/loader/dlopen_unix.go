//go:build linux || darwin || freebsd

package loader

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Open loads a shared library by name or path.
func Open(name string) (*Library, error) {
	handle, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", name, err)
	}
	return &Library{handle: handle, path: name}, nil
}

// Lookup resolves an exported symbol to its loaded address.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	addr, err := purego.Dlsym(l.handle, symbol)
	if err != nil {
		return 0, fmt.Errorf("dlsym %s: %w", symbol, err)
	}
	return addr, nil
}

// Close releases the library handle. Called once at process teardown.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}

// Package loader owns the dynamically loaded real-runtime library handle.
// The handle lives for the whole process and is released once at teardown;
// there is no intermediate open/close cycling.
package loader

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Library is a loaded shared library.
type Library struct {
	handle uintptr
	path   string
}

// Path returns the name or path the library was opened with.
func (l *Library) Path() string {
	return l.path
}

// Handle exposes the raw loader handle.
func (l *Library) Handle() uintptr {
	return l.handle
}

// Bind resolves an exported symbol and binds it to the function pointed to
// by fptr, which must be a pointer to a Go function variable whose
// signature matches the foreign function.
func (l *Library) Bind(fptr any, symbol string) error {
	addr, err := l.Lookup(symbol)
	if err != nil {
		return fmt.Errorf("bind %s: %w", symbol, err)
	}
	purego.RegisterFunc(fptr, addr)
	return nil
}

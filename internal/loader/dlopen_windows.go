//go:build windows

package loader

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Open loads a DLL by name or path.
func Open(name string) (*Library, error) {
	handle, err := windows.LoadLibrary(name)
	if err != nil {
		return nil, fmt.Errorf("LoadLibrary %s: %w", name, err)
	}
	return &Library{handle: uintptr(handle), path: name}, nil
}

// Lookup resolves an exported symbol to its loaded address.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(l.handle), symbol)
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress %s: %w", symbol, err)
	}
	return addr, nil
}

// Close releases the library handle. Called once at process teardown.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := windows.FreeLibrary(windows.Handle(l.handle))
	l.handle = 0
	return err
}

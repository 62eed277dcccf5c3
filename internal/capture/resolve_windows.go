//go:build windows

package capture

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/rajiv448/XRT/internal/loader"
	"github.com/rajiv448/XRT/internal/symbols"
)

// resolveRuntime walks the running executable's import directory for entries
// from the runtime DLL and opens the DLL itself for dispatch.
func resolveRuntime(log zerolog.Logger) (*symbols.Index, *loader.Library, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("locate own image: %w", err)
	}

	ix, err := symbols.NewPEResolver(exe, log).Resolve()
	if err != nil {
		return nil, nil, err
	}

	lib, err := loader.Open(symbols.DefaultRuntimeDLL)
	if err != nil {
		return nil, nil, err
	}
	return ix, lib, nil
}

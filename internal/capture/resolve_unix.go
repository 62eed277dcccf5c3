//go:build !windows

package capture

import (
	"github.com/rs/zerolog"

	"github.com/rajiv448/XRT/internal/loader"
	"github.com/rajiv448/XRT/internal/symbols"
)

// resolveRuntime locates the real runtime library through the preload
// environment, reads its dynamic-symbol table and opens it for dispatch.
func resolveRuntime(log zerolog.Logger) (*symbols.Index, *loader.Library, error) {
	path, err := symbols.DiscoverLibrary()
	if err != nil {
		return nil, nil, err
	}

	ix, err := symbols.NewELFResolver(path, log).Resolve()
	if err != nil {
		return nil, nil, err
	}

	lib, err := loader.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return ix, lib, nil
}

package symbols

import (
	"debug/elf"
	"fmt"

	"github.com/rs/zerolog"
)

// ELFResolver resolves exports by walking the dynamic symbol table of the
// library image on disk. This is the primary (Linux) strategy.
type ELFResolver struct {
	// Path is the on-disk location of the real runtime library.
	Path string
	// Demangler defaults to the Itanium demangler.
	Demangler Demangler

	log zerolog.Logger
}

// NewELFResolver builds a resolver for the library image at path.
func NewELFResolver(path string, logger zerolog.Logger) *ELFResolver {
	return &ELFResolver{
		Path:      path,
		Demangler: ItaniumDemangler,
		log:       logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve opens the image read-only, iterates its dynamic symbols, keeps
// globally visible defined functions and builds the canonical index. Any
// failure to read or parse the image is fatal to instrumentation setup;
// running with a partial table would crash real calls non-deterministically
// downstream.
func (r *ELFResolver) Resolve() (*Index, error) {
	f, err := elf.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("open library image %s: %w", r.Path, err)
	}
	defer f.Close() // nolint:errcheck

	syms, err := f.DynamicSymbols()
	if err != nil {
		return nil, fmt.Errorf("read dynamic symbol table of %s: %w", r.Path, err)
	}

	raw := make([]RawSymbol, 0, len(syms))
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		if elf.ST_BIND(s.Info) != elf.STB_GLOBAL {
			continue
		}
		if elf.ST_VISIBILITY(s.Other) != elf.STV_DEFAULT {
			continue
		}
		if s.Section == elf.SHN_UNDEF {
			continue
		}
		raw = append(raw, RawSymbol{Name: s.Name, Addr: s.Value})
	}

	dem := r.Demangler
	if dem == nil {
		dem = ItaniumDemangler
	}

	ix := buildIndex(raw, dem, NormalizeItanium, r.log)
	r.log.Debug().
		Str("library", r.Path).
		Int("exported", len(raw)).
		Int("canonical", ix.Len()).
		Msg("resolved dynamic symbols")

	return ix, nil
}

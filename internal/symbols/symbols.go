// Package symbols resolves the real runtime library's exported entry points.
// It enumerates exported symbols from the library image, demangles each raw
// name to a source-level signature and normalizes it, producing a mapping
// from canonical signature to exported symbol. Two strategies exist: the
// ELF dynamic-symbol table (Linux) and the consuming image's PE import
// directory (Windows); both satisfy Resolver so the dispatch table does not
// care which one produced the index.
package symbols

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ianlancetaylor/demangle"
	"github.com/rs/zerolog"

	"github.com/rajiv448/XRT/internal/config"
)

// ErrLibraryNotFound reports that the real runtime library could not be
// located on disk. Setup must abort: a partially built dispatch table
// cannot be trusted.
var ErrLibraryNotFound = errors.New("real library not found")

// Symbol is one resolved export.
type Symbol struct {
	// Mangled is the raw exported name, the one the loader understands.
	Mangled string
	// Canonical is the normalized source-level signature.
	Canonical string
	// Addr is the symbol value from the image (ELF) or the import thunk
	// RVA (PE). The loader binds the actual callable address.
	Addr uint64
}

// Index maps canonical signatures to exported symbols. Built once during
// setup, read-only afterwards.
type Index struct {
	byCanonical map[string]Symbol
}

// NewIndex builds an index from already-canonicalized symbols. Resolvers
// build theirs from raw exports; this is for callers that have the mapping
// in hand.
func NewIndex(syms []Symbol) *Index {
	ix := &Index{byCanonical: make(map[string]Symbol, len(syms))}
	for _, s := range syms {
		ix.byCanonical[s.Canonical] = s
	}
	return ix
}

// Lookup returns the symbol for a canonical signature.
func (ix *Index) Lookup(canonical string) (Symbol, bool) {
	s, ok := ix.byCanonical[canonical]
	return s, ok
}

// Len reports how many canonical signatures resolved.
func (ix *Index) Len() int {
	return len(ix.byCanonical)
}

// Resolver produces the canonical-signature index for one library.
type Resolver interface {
	Resolve() (*Index, error)
}

// RawSymbol is one exported name read from a binary image, before
// demangling.
type RawSymbol struct {
	Name string
	Addr uint64
}

// DiscoverLibrary returns the on-disk path of the real runtime library from
// the dynamic-loader preload environment. The launcher arranges for the
// preload path to name the library; whitespace is stripped the way the
// loader itself tolerates it.
func DiscoverLibrary() (string, error) {
	raw := config.Getenv(config.EnvPreload)
	if raw == "" {
		return "", fmt.Errorf("%s is not set: %w", config.EnvPreload, ErrLibraryNotFound)
	}

	// The preload variable may list several entries separated by spaces or
	// colons, the way the dynamic loader reads it; the launcher puts the
	// capture target first.
	entries := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ':'
	})
	if len(entries) == 0 {
		return "", fmt.Errorf("%s is blank: %w", config.EnvPreload, ErrLibraryNotFound)
	}

	path := entries[0]
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrLibraryNotFound)
	}
	return path, nil
}

// buildIndex demangles and normalizes raw symbols into an Index. A symbol
// that fails to demangle is skipped: only a subset of exports is of
// interest, and an undemangleable entry cannot be a canonicalization
// candidate anyway. Duplicate canonical signatures (complete vs base-object
// constructors) keep the last entry, matching loader lookup behavior.
func buildIndex(raw []RawSymbol, dem Demangler, canon func(string) string, log zerolog.Logger) *Index {
	ix := &Index{byCanonical: make(map[string]Symbol, len(raw))}

	for _, s := range raw {
		src, err := dem(s.Name)
		if err != nil {
			log.Debug().Str("symbol", s.Name).Err(err).Msg("demangle failed, skipping")
			continue
		}

		c := canon(src)
		if prev, ok := ix.byCanonical[c]; ok && prev.Mangled != s.Name {
			log.Debug().
				Str("canonical", c).
				Str("kept", s.Name).
				Str("replaced", prev.Mangled).
				Msg("duplicate canonical signature")
		}
		ix.byCanonical[c] = Symbol{Mangled: s.Name, Canonical: c, Addr: s.Addr}
	}

	return ix
}

// Demangler turns a raw exported name into a source-level signature.
type Demangler func(mangled string) (string, error)

// ItaniumDemangler demangles GNU/Itanium C++ ABI names.
func ItaniumDemangler(mangled string) (string, error) {
	return demangle.ToString(mangled)
}

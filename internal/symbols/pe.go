package symbols

import (
	"debug/pe"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultRuntimeDLL is the import-table module name of the real runtime on
// Windows.
const DefaultRuntimeDLL = "xrt_coreutil.dll"

// PEImport is one function imported from the runtime DLL: its stored name
// and the RVA of the import-table thunk the loader bound for it. The thunk
// holds the real address at run time; PatchThunk can redirect it in place.
type PEImport struct {
	Name     string
	ThunkRVA uint64
}

// PEResolver resolves entry points by walking the consuming image's import
// directory, the alternate strategy to explicit symbol-table lookup. The
// loader has already bound every imported address into the thunk table, so
// locating a name locates its address.
type PEResolver struct {
	// ImagePath is the consuming binary whose import table references the
	// runtime DLL.
	ImagePath string
	// Module is the imported module to match, case-insensitively.
	// Defaults to DefaultRuntimeDLL.
	Module string
	// Demangler and Normalizer default to the platform undecorator pair.
	Demangler  Demangler
	Normalizer func(string) string

	log zerolog.Logger
}

// NewPEResolver builds an import-table resolver for the image at path.
func NewPEResolver(path string, logger zerolog.Logger) *PEResolver {
	return &PEResolver{
		ImagePath:  path,
		Module:     DefaultRuntimeDLL,
		Demangler:  platformDemangler(),
		Normalizer: platformNormalizer(),
		log:        logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve parses the import directory, undecorates the names imported from
// the runtime module and builds the canonical index. The Addr of each
// symbol is the thunk RVA, for the Windows loader to patch or read.
func (r *PEResolver) Resolve() (*Index, error) {
	f, err := pe.Open(r.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", r.ImagePath, err)
	}
	defer f.Close() // nolint:errcheck

	module := r.Module
	if module == "" {
		module = DefaultRuntimeDLL
	}

	imports, err := ParseImports(f, module)
	if err != nil {
		return nil, fmt.Errorf("parse import directory of %s: %w", r.ImagePath, err)
	}

	raw := make([]RawSymbol, 0, len(imports))
	for _, imp := range imports {
		raw = append(raw, RawSymbol{Name: imp.Name, Addr: imp.ThunkRVA})
	}

	dem := r.Demangler
	if dem == nil {
		dem = platformDemangler()
	}
	norm := r.Normalizer
	if norm == nil {
		norm = platformNormalizer()
	}

	ix := buildIndex(raw, dem, norm, r.log)
	r.log.Debug().
		Str("image", r.ImagePath).
		Str("module", module).
		Int("imported", len(raw)).
		Int("canonical", ix.Len()).
		Msg("resolved import table")

	return ix, nil
}

// ParseImports walks the image's import directory and returns every
// by-name import from the given module. Ordinal imports are skipped; the
// runtime exports everything by name.
func ParseImports(f *pe.File, module string) ([]PEImport, error) {
	var (
		dir   pe.DataDirectory
		is64  bool
		found bool
	)
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT]
		is64, found = true, true
	case *pe.OptionalHeader32:
		dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT]
		found = true
	}
	if !found {
		return nil, fmt.Errorf("image has no optional header")
	}
	if dir.Size == 0 {
		return nil, fmt.Errorf("image has no import directory")
	}

	// IMAGE_IMPORT_DESCRIPTOR is 20 bytes; the table ends at an all-zero
	// descriptor.
	const descSize = 20
	var out []PEImport

	for i := 0; ; i++ {
		desc, err := readRVA(f, uint64(dir.VirtualAddress)+uint64(i*descSize), descSize)
		if err != nil {
			return nil, fmt.Errorf("read import descriptor %d: %w", i, err)
		}
		origFirstThunk := binary.LittleEndian.Uint32(desc[0:4])
		nameRVA := binary.LittleEndian.Uint32(desc[12:16])
		firstThunk := binary.LittleEndian.Uint32(desc[16:20])
		if nameRVA == 0 {
			break
		}

		dllName, err := readCString(f, uint64(nameRVA))
		if err != nil {
			return nil, fmt.Errorf("read imported module name: %w", err)
		}
		if !strings.EqualFold(dllName, module) {
			continue
		}

		// Some linkers leave OriginalFirstThunk zero; the name table is
		// then the bound thunk table itself.
		nameTable := origFirstThunk
		if nameTable == 0 {
			nameTable = firstThunk
		}

		thunkSize := uint64(4)
		if is64 {
			thunkSize = 8
		}

		for j := uint64(0); ; j++ {
			raw, err := readRVA(f, uint64(nameTable)+j*thunkSize, int(thunkSize))
			if err != nil {
				return nil, fmt.Errorf("read import thunk %d: %w", j, err)
			}

			var entry, ordinalBit uint64
			if is64 {
				entry = binary.LittleEndian.Uint64(raw)
				ordinalBit = 1 << 63
			} else {
				entry = uint64(binary.LittleEndian.Uint32(raw))
				ordinalBit = 1 << 31
			}
			if entry == 0 {
				break
			}
			if entry&ordinalBit != 0 {
				continue
			}

			// IMAGE_IMPORT_BY_NAME: 2-byte hint then the name.
			name, err := readCString(f, entry+2)
			if err != nil {
				return nil, fmt.Errorf("read imported function name: %w", err)
			}
			out = append(out, PEImport{
				Name:     name,
				ThunkRVA: uint64(firstThunk) + j*thunkSize,
			})
		}
	}

	return out, nil
}

// readRVA reads size bytes at a relative virtual address from the section
// that maps it.
func readRVA(f *pe.File, rva uint64, size int) ([]byte, error) {
	for _, sec := range f.Sections {
		start := uint64(sec.VirtualAddress)
		if rva < start || rva+uint64(size) > start+uint64(sec.VirtualSize) {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return nil, err
		}
		off := rva - start
		if off+uint64(size) > uint64(len(data)) {
			return nil, fmt.Errorf("rva 0x%x extends past section %s raw data", rva, sec.Name)
		}
		return data[off : off+uint64(size)], nil
	}
	return nil, fmt.Errorf("rva 0x%x not mapped by any section", rva)
}

// readCString reads a NUL-terminated string at an RVA.
func readCString(f *pe.File, rva uint64) (string, error) {
	for _, sec := range f.Sections {
		start := uint64(sec.VirtualAddress)
		if rva < start || rva >= start+uint64(sec.VirtualSize) {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return "", err
		}
		off := rva - start
		for i := off; i < uint64(len(data)); i++ {
			if data[i] == 0 {
				return string(data[off:i]), nil
			}
		}
		return "", fmt.Errorf("unterminated string at rva 0x%x", rva)
	}
	return "", fmt.Errorf("rva 0x%x not mapped by any section", rva)
}

var _ Resolver = (*PEResolver)(nil)
var _ Resolver = (*ELFResolver)(nil)

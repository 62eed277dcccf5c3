//go:build windows

package symbols

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Undecoration flags matching what the runtime's own tooling uses: strip
// return types, access specifiers, allocation keywords and throw clauses so
// only the call-identity part of the signature survives.
const (
	undnameNoMSKeywords       = 0x0002
	undnameNoFunctionReturns  = 0x0004
	undnameNoAllocationModel  = 0x0008
	undnameNoAllocationLang   = 0x0010
	undnameNoAccessSpecifiers = 0x0080
	undnameNoThrowSignatures  = 0x0100
)

var (
	dbghelp               = windows.NewLazySystemDLL("dbghelp.dll")
	procUnDecorateSymName = dbghelp.NewProc("UnDecorateSymbolName")
)

// MSVCDemangler undecorates an MSVC-decorated name via dbghelp.
func MSVCDemangler(mangled string) (string, error) {
	in, err := windows.BytePtrFromString(mangled)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 512)
	n, _, _ := procUnDecorateSymName.Call(
		uintptr(unsafe.Pointer(in)),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		uintptr(undnameNoFunctionReturns|undnameNoAccessSpecifiers|
			undnameNoAllocationLang|undnameNoAllocationModel|
			undnameNoMSKeywords|undnameNoThrowSignatures),
	)
	if n == 0 {
		return "", fmt.Errorf("UnDecorateSymbolName failed for %q", mangled)
	}
	return string(buf[:n]), nil
}

func platformDemangler() Demangler {
	return MSVCDemangler
}

func platformNormalizer() func(string) string {
	return NormalizeMSVC
}

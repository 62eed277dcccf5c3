//go:build windows

package symbols

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// PatchThunk redirects one bound import-table entry to newAddr and returns
// the address the loader had bound there, so the original can still be
// called through the dispatch table. The page protection is relaxed for the
// single pointer write and restored afterwards.
func PatchThunk(imageBase uintptr, thunkRVA uint64, newAddr uintptr) (uintptr, error) {
	thunk := (*uintptr)(unsafe.Pointer(imageBase + uintptr(thunkRVA)))

	var old uint32
	size := uintptr(unsafe.Sizeof(uintptr(0)))
	if err := windows.VirtualProtect(uintptr(unsafe.Pointer(thunk)), size,
		windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return 0, fmt.Errorf("relax page protection for thunk 0x%x: %w", thunkRVA, err)
	}

	orig := *thunk
	*thunk = newAddr

	var restored uint32
	if err := windows.VirtualProtect(uintptr(unsafe.Pointer(thunk)), size,
		old, &restored); err != nil {
		return orig, fmt.Errorf("restore page protection for thunk 0x%x: %w", thunkRVA, err)
	}

	return orig, nil
}

// ThunkAddress reads the address currently bound in an import-table entry.
func ThunkAddress(imageBase uintptr, thunkRVA uint64) uintptr {
	return *(*uintptr)(unsafe.Pointer(imageBase + uintptr(thunkRVA)))
}

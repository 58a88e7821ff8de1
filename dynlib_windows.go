//go:build windows
// +build windows

package dynlib

import (
	"fmt"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

// openLibrary loads a DLL on Windows.
func openLibrary(name string) (uintptr, error) {
	handle, err := windows.LoadLibrary(name)
	if err != nil {
		return 0, fmt.Errorf("failed to load library: %w", err)
	}
	return uintptr(handle), nil
}

// lookupSymbol resolves an exported procedure to its address.
func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

// registerFunc binds addr to the Go function pointed to by fn.
func registerFunc(fn interface{}, addr uintptr) {
	purego.RegisterFunc(fn, addr)
}

// closeLibrary unloads the DLL.
func closeLibrary(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

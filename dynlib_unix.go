//go:build !windows
// +build !windows

package dynlib

import (
	"github.com/ebitengine/purego"
)

// openLibrary loads a shared library on Unix-like systems.
func openLibrary(name string) (uintptr, error) {
	return purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

// lookupSymbol resolves an exported symbol to its address.
func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

// registerFunc binds addr to the Go function pointed to by fn.
func registerFunc(fn interface{}, addr uintptr) {
	purego.RegisterFunc(fn, addr)
}

// closeLibrary unloads the shared library on Unix systems.
func closeLibrary(handle uintptr) error {
	return purego.Dlclose(handle)
}

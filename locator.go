package dynlib

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// PlatformInfo holds platform-specific library naming conventions and
// the CPU capabilities used to pick a build variant.
type PlatformInfo struct {
	OS             string
	Arch           string
	Extension      string
	Prefix         string
	SupportsAVX    bool
	SupportsAVX2   bool
	SupportsAVX512 bool
}

// DetectPlatform detects the current platform and returns library info.
func DetectPlatform() *PlatformInfo {
	info := &PlatformInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	switch runtime.GOOS {
	case "darwin":
		info.Extension = ".dylib"
		info.Prefix = "lib"
	case "windows":
		info.Extension = ".dll"
	default: // Linux and other Unix
		info.Extension = ".so"
		info.Prefix = "lib"
	}

	if runtime.GOARCH == "amd64" {
		info.SupportsAVX = cpuid.CPU.Supports(cpuid.AVX)
		info.SupportsAVX2 = cpuid.CPU.Supports(cpuid.AVX2)
		info.SupportsAVX512 = cpuid.CPU.Supports(cpuid.AVX512F)
	}

	return info
}

// Variants returns the build variants worth probing on this platform,
// most capable first, always ending with the plain fallback build. A
// variant is only listed when the CPU supports it, which keeps SIGILL
// off the table when the caller loads the first hit.
func (p *PlatformInfo) Variants() []string {
	var v []string
	if p.SupportsAVX512 {
		v = append(v, "avx512")
	}
	if p.SupportsAVX2 {
		v = append(v, "avx2")
	}
	if p.SupportsAVX {
		v = append(v, "avx")
	}
	return append(v, "fallback")
}

// fileName returns the on-disk name for a base library name and
// variant, e.g. ("crypto", "avx2") -> "libcrypto-avx2.so" on Linux.
func (p *PlatformInfo) fileName(base, variant string) string {
	suffix := ""
	if variant != "fallback" {
		suffix = "-" + variant
	}
	return p.Prefix + base + suffix + p.Extension
}

// LibraryName returns the platform-specific file name of a library for
// the given OS, e.g. ("linux", "crypto") -> "libcrypto.so".
func LibraryName(goos, base string) string {
	switch goos {
	case "darwin":
		return "lib" + base + ".dylib"
	case "windows":
		return base + ".dll"
	default: // Linux
		return "lib" + base + ".so"
	}
}

// FindLibrary probes dir for the best available variant build of base
// and returns its path, or "" when none is present.
func FindLibrary(dir, base string) string {
	p := DetectPlatform()
	for _, variant := range p.Variants() {
		path := filepath.Join(dir, p.fileName(base, variant))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// SearchPath looks for base in each directory of the loader search path
// (LD_LIBRARY_PATH on Unix, PATH on Windows) and finally the working
// directory, returning the first hit or "".
func SearchPath(base string) string {
	env := "LD_LIBRARY_PATH"
	if runtime.GOOS == "windows" {
		env = "PATH"
	}
	dirs := filepath.SplitList(os.Getenv(env))
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if path := FindLibrary(dir, base); path != "" {
			return path
		}
	}
	return ""
}

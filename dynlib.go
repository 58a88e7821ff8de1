// Package dynlib provides typed access to functions exported by shared
// libraries loaded at runtime.
//
// A Library owns the handle to one opened shared object. Resolve looks
// up exported symbols by name and binds them to Func slots, which carry
// the symbol name so that a failed lookup surfaces as a named error
// instead of a crash through a nil function pointer. Every lookup
// result is recorded, so a caller can resolve a whole batch of symbols
// and validate them in a single CheckCache call instead of branching
// after each one.
//
// Library is not safe for concurrent use: complete the open/resolve
// phase before other goroutines read the resolved slots.
package dynlib

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnresolved reports use of a Func slot whose symbol lookup failed
// or was never attempted.
var ErrUnresolved = errors.New("unresolved symbol")

const unknownName = "unknown"

// Func binds a symbol name to a statically typed function. T must be a
// function type accepted by purego.RegisterFunc. The zero value is an
// unresolved slot named "unknown".
type Func[T any] struct {
	name string
	fn   T
	ok   bool
}

// NewFunc returns a slot holding name and fn verbatim. A nil fn yields
// an unresolved slot.
func NewFunc[T any](name string, fn T) Func[T] {
	rv := reflect.ValueOf(fn)
	ok := rv.Kind() == reflect.Func && !rv.IsNil()
	return Func[T]{name: name, fn: fn, ok: ok}
}

// Name returns the symbol name the slot was bound to.
func (f Func[T]) Name() string {
	if f.name == "" {
		return unknownName
	}
	return f.name
}

// Get returns the underlying function without checking whether the
// symbol resolved. Calling a nil function crashes; use Fn when the
// resolution outcome is not already known.
func (f Func[T]) Get() T { return f.fn }

// Resolved reports whether the slot holds a usable function.
func (f Func[T]) Resolved() bool { return f.ok }

// Fn returns the underlying function, or an error naming the symbol
// when resolution failed.
func (f Func[T]) Fn() (T, error) {
	if !f.ok {
		var zero T
		return zero, fmt.Errorf("dynlib: function %s is nil, symbol lookup likely failed; check that the library is loaded and the name matches the export exactly: %w", f.Name(), ErrUnresolved)
	}
	return f.fn, nil
}

// Must is Fn for call sites that have already validated the load phase,
// typically right after CheckCache. It panics instead of returning an
// error.
func (f Func[T]) Must() T {
	fn, err := f.Fn()
	if err != nil {
		panic(err)
	}
	return fn
}

// Library wraps a handle to a shared library together with a record of
// every symbol lookup made through it.
type Library struct {
	name   string
	handle uintptr
	cache  []uintptr
}

// New returns an unopened Library for the named shared object. The name
// follows the platform loader's conventions: a path is used as given, a
// bare name is searched for on the loader search path.
func New(name string) *Library {
	return &Library{name: name}
}

// Name returns the identifier the Library was constructed with.
func (l *Library) Name() string { return l.name }

// Opened reports whether a prior Open succeeded.
func (l *Library) Opened() bool { return l.handle != 0 }

// Open loads the library. Each call is a fresh attempt; on failure the
// handle stays absent and every Resolve fails its precondition check.
func (l *Library) Open() error {
	handle, err := openLibrary(l.name)
	if err != nil {
		return fmt.Errorf("failed to open library %s: %w", l.name, err)
	}
	l.handle = handle
	return nil
}

// Close releases the library handle. There is no implicit release: an
// opened library stays loaded for the life of the process unless Close
// is called, and slots resolved from it must not be used afterwards.
// The resolution record is kept across Close/Open cycles.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := closeLibrary(l.handle)
	l.handle = 0
	return err
}

// CheckCache reports whether every symbol lookup made through Resolve
// succeeded. It is true when no lookups have been made yet.
func (l *Library) CheckCache() bool {
	for _, addr := range l.cache {
		if addr == 0 {
			return false
		}
	}
	return true
}

// CacheSize returns the number of symbol lookups attempted so far.
func (l *Library) CacheSize() int { return len(l.cache) }

// Resolve looks up name in lib and overwrites out with a slot bound to
// the result. The lookup address is appended to the resolution record
// whether or not the symbol exists, so a batch of Resolve calls can be
// validated at once with CheckCache.
//
// The return value reflects the preconditions only: false when the
// library is not open or name is empty, in which case out and the
// record are left untouched; true otherwise, even when the symbol is
// missing. A missing symbol leaves out unresolved, which its Fn method
// reports.
//
// Resolve is a function rather than a method because methods cannot
// carry type parameters.
func Resolve[T any](lib *Library, name string, out *Func[T]) bool {
	if lib.handle == 0 || name == "" {
		return false
	}
	addr, err := lookupSymbol(lib.handle, name)
	if err != nil {
		addr = 0
	}
	// Failed lookups are recorded too; CheckCache depends on it.
	lib.cache = append(lib.cache, addr)
	f := Func[T]{name: name}
	if addr != 0 {
		registerFunc(&f.fn, addr)
		f.ok = true
	}
	*out = f
	return true
}

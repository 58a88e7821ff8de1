package dynlib

import (
	"errors"
	"strings"
	"testing"
)

func TestFuncZeroValue(t *testing.T) {
	var f Func[func(int, int) int]

	if got := f.Name(); got != "unknown" {
		t.Errorf("expected name %q, got %q", "unknown", got)
	}
	if f.Resolved() {
		t.Error("zero slot must not report resolved")
	}
	if f.Get() != nil {
		t.Error("expected nil underlying function")
	}

	_, err := f.Fn()
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown") {
		t.Errorf("error should name the slot: %v", err)
	}
}

func TestFuncForwardsCall(t *testing.T) {
	f := NewFunc("add", func(a, b int) int { return a + b })

	if got := f.Name(); got != "add" {
		t.Errorf("expected name %q, got %q", "add", got)
	}
	if !f.Resolved() {
		t.Fatal("slot with a valid function must report resolved")
	}

	fn, err := f.Fn()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fn(3, 4); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := f.Get()(3, 4); got != 7 {
		t.Errorf("expected 7 via Get, got %d", got)
	}
	if got := f.Must()(3, 4); got != 7 {
		t.Errorf("expected 7 via Must, got %d", got)
	}
}

func TestNewFuncWithNilFunction(t *testing.T) {
	f := NewFunc[func()]("noop", nil)

	if got := f.Name(); got != "noop" {
		t.Errorf("expected name %q, got %q", "noop", got)
	}
	if f.Resolved() {
		t.Error("slot with nil function must not report resolved")
	}
	if _, err := f.Fn(); !errors.Is(err, ErrUnresolved) {
		t.Errorf("expected ErrUnresolved, got %v", err)
	}
}

func TestMustPanicsWhenUnresolved(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Must to panic on an unresolved slot")
		}
	}()
	var f Func[func()]
	f.Must()
}

func TestFuncErrorNamesSymbol(t *testing.T) {
	f := NewFunc[func() int]("EVP_sha256", nil)
	_, err := f.Fn()
	if err == nil || !strings.Contains(err.Error(), "EVP_sha256") {
		t.Errorf("error should carry the symbol name: %v", err)
	}
}

func TestNewLibrary(t *testing.T) {
	lib := New("libtest.so")

	if got := lib.Name(); got != "libtest.so" {
		t.Errorf("expected name %q, got %q", "libtest.so", got)
	}
	if lib.Opened() {
		t.Error("fresh library must not report opened")
	}
	if got := lib.CacheSize(); got != 0 {
		t.Errorf("expected empty cache, got size %d", got)
	}
	if !lib.CheckCache() {
		t.Error("CheckCache must be true for an empty cache")
	}
}

func TestResolveBeforeOpen(t *testing.T) {
	lib := New("libnonexistent.so")

	var fn Func[func(int, int) int]
	if Resolve(lib, "some_function", &fn) {
		t.Error("Resolve must fail before a successful Open")
	}
	if got := lib.CacheSize(); got != 0 {
		t.Errorf("failed precondition must not touch the cache, size %d", got)
	}
	if got := fn.Name(); got != "unknown" {
		t.Errorf("failed precondition must not touch the slot, name %q", got)
	}
	if !lib.CheckCache() {
		t.Error("CheckCache must stay true")
	}
}

func TestResolveEmptyName(t *testing.T) {
	lib := New("libnonexistent.so")

	var fn Func[func()]
	if Resolve(lib, "", &fn) {
		t.Error("Resolve must reject an empty symbol name")
	}
	if got := lib.CacheSize(); got != 0 {
		t.Errorf("expected empty cache, got size %d", got)
	}
}

func TestOpenNonexistentLibrary(t *testing.T) {
	lib := New("libdefinitely-not-a-real-library.so")

	if err := lib.Open(); err == nil {
		t.Fatal("expected Open to fail for a nonexistent library")
	}
	if lib.Opened() {
		t.Error("failed Open must leave the handle absent")
	}

	var fn Func[func()]
	if Resolve(lib, "anything", &fn) {
		t.Error("Resolve must keep failing after a failed Open")
	}
}

func TestOpenIsFreshAttemptEachTime(t *testing.T) {
	lib := New("libdefinitely-not-a-real-library.so")

	for i := 0; i < 2; i++ {
		if err := lib.Open(); err == nil {
			t.Fatalf("attempt %d: expected Open to fail", i)
		}
	}
	if got := lib.CacheSize(); got != 0 {
		t.Errorf("repeat opens must not corrupt the cache, size %d", got)
	}
	if !lib.CheckCache() {
		t.Error("CheckCache must stay true")
	}
}

func TestCloseUnopened(t *testing.T) {
	lib := New("libtest.so")
	if err := lib.Close(); err != nil {
		t.Errorf("Close on an unopened library must be a no-op, got %v", err)
	}
}

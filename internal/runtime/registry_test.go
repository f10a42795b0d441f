package runtime_test

import (
	"testing"

	"github.com/example/deskd/internal/runtime"
	_ "github.com/example/deskd/internal/runtime/process"
)

func TestNewRegistryIncludesProcessRunner(t *testing.T) {
	reg := runtime.NewRegistry()
	if _, ok := reg["process"]; !ok {
		t.Fatal("registry missing the process runner")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	reg := runtime.NewRegistry()
	dup := reg.Clone()
	dup["extra"] = nil

	if _, ok := reg["extra"]; ok {
		t.Fatal("mutating the clone leaked into the original")
	}
}

func TestRegisterValidation(t *testing.T) {
	assertPanics := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s did not panic", name)
			}
		}()
		fn()
	}

	assertPanics("empty name", func() {
		runtime.Register("", func() runtime.Spawner { return nil })
	})
	assertPanics("nil factory", func() {
		runtime.Register("x", nil)
	})
}

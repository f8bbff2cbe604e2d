package ansible

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestRegistryRegisterLookup(t *testing.T) {
	r := NewRegistry(nil)

	u := &Unit{Kind: KindRole, Name: "nginx", Origin: Origin{ProjectPath: "infra/nginx"}}
	r.Register(u)

	got, ok := r.Lookup("nginx")
	if !ok {
		t.Fatal("expected nginx to be registered")
	}
	if got != u {
		t.Error("lookup returned a different unit")
	}
	if _, ok := r.Lookup("absent"); ok {
		t.Error("lookup of absent name must fail")
	}
}

func TestRegistryCollisionLastWins(t *testing.T) {
	var warnings []string
	r := NewRegistry(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	first := &Unit{Kind: KindRole, Name: "common", Origin: Origin{ProjectPath: "infra/a"}}
	second := &Unit{Kind: KindRole, Name: "common", Origin: Origin{ProjectPath: "infra/b"}}
	r.Register(first)
	r.Register(second)

	got, _ := r.Lookup("common")
	if got != second {
		t.Error("later registration must win")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
	for _, path := range []string{"infra/a", "infra/b"} {
		if !strings.Contains(warnings[0], path) {
			t.Errorf("warning %q should name %s", warnings[0], path)
		}
	}
}

func TestRegistryUnitsSorted(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Register(&Unit{Kind: KindRole, Name: name})
	}

	units := r.Units()
	want := []string{"alpha", "mid", "zeta"}
	for i, u := range units {
		if u.Name != want[i] {
			t.Errorf("units[%d] = %q, want %q", i, u.Name, want[i])
		}
	}
}

func TestRegistryConcurrentRegister(t *testing.T) {
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(&Unit{Kind: KindRole, Name: fmt.Sprintf("role-%d", i)})
		}(i)
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("Len = %d, want 50", r.Len())
	}
}

package registry_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/ciri"
	"github.com/reoring/ciri/registry"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := registry.New()
	person := ciri.Define("Person").Field("name", ciri.String()).MustBuild()
	if err := r.Register(person); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := r.Lookup("Person")
	if err != nil || got != person {
		t.Fatalf("expected registered definition, got %v, %v", got, err)
	}
	if _, err := r.Lookup("Nope"); !errors.Is(err, registry.ErrUnknownSchema) {
		t.Fatalf("expected ErrUnknownSchema, got %v", err)
	}
	if err := r.Register(person); !errors.Is(err, registry.ErrDuplicateSchema) {
		t.Fatalf("expected ErrDuplicateSchema, got %v", err)
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("expected nil definition to be rejected")
	}
}

func TestRegistry_MustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	registry.New().MustLookup("missing")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := registry.New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("S%02d", i)
			if err := r.Register(ciri.Define(name).MustBuild()); err != nil {
				t.Errorf("register %s: %v", name, err)
			}
			_ = r.Names()
		}(i)
	}
	wg.Wait()
	if r.Len() != 16 {
		t.Fatalf("expected 16 definitions, got %d", r.Len())
	}
	names := r.Names()
	if diff := cmp.Diff("S00", names[0]); diff != "" {
		t.Fatalf("expected sorted names (-want +got):\n%s", diff)
	}
}

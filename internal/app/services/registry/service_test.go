package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/storage"
	"github.com/nexboard/module_layer/internal/app/storage/memory"
)

func seedCatalog(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	for _, bm := range []module.BaseModule{
		{ID: "reports", Name: "Reports", SortOrder: 2},
		{ID: "boards", Name: "Boards", SortOrder: 1},
	} {
		if _, err := store.PutBaseModule(ctx, bm); err != nil {
			t.Fatalf("put base module %s: %v", bm.ID, err)
		}
	}
	for _, impl := range []module.Implementation{
		{BaseModuleID: "reports", Key: "standard"},
		{BaseModuleID: "boards", Key: "standard"},
		{BaseModuleID: "boards", Key: "custom-acme"},
	} {
		if _, err := store.PutImplementation(ctx, impl); err != nil {
			t.Fatalf("put implementation %s/%s: %v", impl.BaseModuleID, impl.Key, err)
		}
	}
}

func TestListBaseModulesSorted(t *testing.T) {
	store := memory.New()
	seedCatalog(t, store)

	svc := New(store, nil)
	bases, err := svc.ListBaseModules(context.Background())
	if err != nil {
		t.Fatalf("list base modules: %v", err)
	}
	if len(bases) != 2 || bases[0].ID != "boards" || bases[1].ID != "reports" {
		t.Fatalf("unexpected order: %+v", bases)
	}
}

func TestListAllDeterministicOrdering(t *testing.T) {
	store := memory.New()
	seedCatalog(t, store)

	svc := New(store, nil)
	first, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := svc.ListAll(context.Background())
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("length changed between calls: %d vs %d", len(again), len(first))
		}
		for j := range again {
			if again[j].BaseModuleID != first[j].BaseModuleID || again[j].Key != first[j].Key {
				t.Fatalf("ordering changed between calls at %d: %+v vs %+v", j, again[j], first[j])
			}
		}
	}
	if first[0].BaseModuleID != "boards" || first[0].Key != "custom-acme" {
		t.Fatalf("unexpected first entry: %+v", first[0])
	}
}

// countingStore counts catalog scans so tests can observe the stats cache.
type countingStore struct {
	mu    sync.Mutex
	inner storage.RegistryStore
	scans int
}

func (c *countingStore) ListBaseModules(ctx context.Context) ([]module.BaseModule, error) {
	c.mu.Lock()
	c.scans++
	c.mu.Unlock()
	return c.inner.ListBaseModules(ctx)
}

func (c *countingStore) ListImplementations(ctx context.Context, id string) ([]module.Implementation, error) {
	return c.inner.ListImplementations(ctx, id)
}

func (c *countingStore) ListAllImplementations(ctx context.Context) ([]module.Implementation, error) {
	return c.inner.ListAllImplementations(ctx)
}

func (c *countingStore) GetImplementation(ctx context.Context, id, key string) (module.Implementation, error) {
	return c.inner.GetImplementation(ctx, id, key)
}

func TestStatsCached(t *testing.T) {
	mem := memory.New()
	seedCatalog(t, mem)
	counting := &countingStore{inner: mem}

	svc := New(counting, nil, WithStatsTTL(time.Minute))
	ctx := context.Background()

	first, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if first.TotalBaseModules != 2 || first.TotalImplementations != 3 {
		t.Fatalf("unexpected stats: %+v", first)
	}
	if first.PerBaseModule["boards"] != 2 || first.PerBaseModule["reports"] != 1 {
		t.Fatalf("unexpected per-module counts: %+v", first.PerBaseModule)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Stats(ctx); err != nil {
			t.Fatalf("stats: %v", err)
		}
	}
	if counting.scans != 1 {
		t.Fatalf("expected a single catalog scan within the TTL, got %d", counting.scans)
	}
}

func TestStatsCacheDisabled(t *testing.T) {
	mem := memory.New()
	seedCatalog(t, mem)
	counting := &countingStore{inner: mem}

	svc := New(counting, nil, WithStatsTTL(0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Stats(ctx); err != nil {
			t.Fatalf("stats: %v", err)
		}
	}
	if counting.scans != 3 {
		t.Fatalf("expected a scan per call with caching disabled, got %d", counting.scans)
	}
}

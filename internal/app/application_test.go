package app

import (
	"context"
	"testing"
)

func TestNewDefaultsToMemoryStores(t *testing.T) {
	application, err := New(Stores{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer application.Stop(ctx)

	// An empty catalog resolves to no modules rather than an error path.
	bases, err := application.Registry.ListBaseModules(ctx)
	if err != nil {
		t.Fatalf("list base modules: %v", err)
	}
	if len(bases) != 0 {
		t.Fatalf("expected empty catalog, got %+v", bases)
	}

	if st := application.Maintenance.CheckStatus(ctx); st.InMaintenance {
		t.Fatal("fresh application must not be in maintenance")
	}
}

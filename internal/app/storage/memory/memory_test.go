package memory

import (
	"context"
	"testing"

	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/domain/organization"
	"github.com/nexboard/module_layer/internal/app/storage"
)

func TestListAllImplementationsOrdering(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, id := range []string{"reports", "boards", "billing"} {
		if _, err := store.PutBaseModule(ctx, module.BaseModule{ID: id, Name: id}); err != nil {
			t.Fatalf("put base module %s: %v", id, err)
		}
	}
	// Insert in a deliberately scrambled order.
	for _, pair := range [][2]string{
		{"reports", "standard"},
		{"boards", "custom-acme"},
		{"billing", "standard"},
		{"boards", "standard"},
	} {
		impl := module.Implementation{BaseModuleID: pair[0], Key: pair[1], EntryPoint: pair[0] + "/" + pair[1]}
		if _, err := store.PutImplementation(ctx, impl); err != nil {
			t.Fatalf("put implementation %v: %v", pair, err)
		}
	}

	impls, err := store.ListAllImplementations(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	want := [][2]string{
		{"billing", "standard"},
		{"boards", "custom-acme"},
		{"boards", "standard"},
		{"reports", "standard"},
	}
	if len(impls) != len(want) {
		t.Fatalf("got %d implementations, want %d", len(impls), len(want))
	}
	for i, w := range want {
		if impls[i].BaseModuleID != w[0] || impls[i].Key != w[1] {
			t.Errorf("position %d: got %s/%s, want %s/%s", i, impls[i].BaseModuleID, impls[i].Key, w[0], w[1])
		}
	}
}

func TestInactiveAssignmentIsAbsent(t *testing.T) {
	store := New()
	ctx := context.Background()

	org, err := store.PutOrganization(ctx, organization.Organization{LegalName: "Acme"})
	if err != nil {
		t.Fatalf("put organization: %v", err)
	}

	asg := module.Assignment{OrganizationID: org.ID, BaseModuleID: "boards", ImplementationKey: "custom-acme", Active: false}
	if _, err := store.PutAssignment(ctx, asg); err != nil {
		t.Fatalf("put assignment: %v", err)
	}

	if _, err := store.GetAssignment(ctx, org.ID, "boards"); !storage.IsNotFound(err) {
		t.Fatalf("inactive assignment should be not-found, got %v", err)
	}
	asgs, err := store.GetAssignments(ctx, org.ID)
	if err != nil {
		t.Fatalf("get assignments: %v", err)
	}
	if len(asgs) != 0 {
		t.Fatalf("inactive assignment leaked into listing: %+v", asgs)
	}
}

func TestImplementationRequiresBaseModule(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.PutImplementation(ctx, module.Implementation{BaseModuleID: "ghost", Key: "standard"})
	if !storage.IsNotFound(err) {
		t.Fatalf("expected not-found for unknown base module, got %v", err)
	}
	if _, err := store.ListImplementations(ctx, "ghost"); !storage.IsNotFound(err) {
		t.Fatalf("expected not-found listing unknown base module, got %v", err)
	}
}

func TestReadsReturnClones(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.PutBaseModule(ctx, module.BaseModule{ID: "boards", Name: "Boards"}); err != nil {
		t.Fatalf("put base module: %v", err)
	}
	impl := module.Implementation{
		BaseModuleID:  "boards",
		Key:           "standard",
		DefaultConfig: map[string]any{"limit": 10},
	}
	if _, err := store.PutImplementation(ctx, impl); err != nil {
		t.Fatalf("put implementation: %v", err)
	}

	got, err := store.GetImplementation(ctx, "boards", "standard")
	if err != nil {
		t.Fatalf("get implementation: %v", err)
	}
	got.DefaultConfig["limit"] = 999

	again, err := store.GetImplementation(ctx, "boards", "standard")
	if err != nil {
		t.Fatalf("get implementation again: %v", err)
	}
	if again.DefaultConfig["limit"] != 10 {
		t.Fatalf("caller mutation leaked into the store: %v", again.DefaultConfig)
	}
}

func TestMaintenanceStatusDefaultsToOff(t *testing.T) {
	store := New()

	st, err := store.GetMaintenanceStatus(context.Background())
	if err != nil {
		t.Fatalf("get maintenance status: %v", err)
	}
	if st.InMaintenance {
		t.Fatal("fresh store must not be in maintenance")
	}
}

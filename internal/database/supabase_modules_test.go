package database

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexboard/module_layer/internal/app/domain/maintenance"
	"github.com/nexboard/module_layer/internal/app/storage"
)

func newClientWithHandler(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := &Client{
		url:        srv.URL,
		anonKey:    "test-anon-key",
		httpClient: srv.Client(),
	}
	return client, srv
}

func TestRepositoryListBaseModulesOrdering(t *testing.T) {
	client, _ := newClientWithHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/base_modules" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("order"); got != "sort_order.asc,id.asc" {
			t.Errorf("order = %q, want sort_order.asc,id.asc", got)
		}
		if r.Header.Get("apikey") == "" {
			t.Error("missing apikey header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"boards","name":"Boards","sort_order":1},{"id":"reports","name":"Reports","sort_order":2}]`))
	}))

	repo := NewRepository(client)
	mods, err := repo.ListBaseModules(context.Background())
	if err != nil {
		t.Fatalf("ListBaseModules: %v", err)
	}
	if len(mods) != 2 || mods[0].ID != "boards" || mods[1].ID != "reports" {
		t.Fatalf("unexpected modules: %+v", mods)
	}
}

func TestRepositoryGetImplementation(t *testing.T) {
	client, _ := newClientWithHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("base_module_id") != "eq.boards" || q.Get("implementation_key") != "eq.standard" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"base_module_id":"boards","implementation_key":"standard","entry_point":"boards/standard","default_config":{"limit":10}}]`))
	}))

	repo := NewRepository(client)
	impl, err := repo.GetImplementation(context.Background(), "boards", "standard")
	if err != nil {
		t.Fatalf("GetImplementation: %v", err)
	}
	if impl.EntryPoint != "boards/standard" {
		t.Errorf("EntryPoint = %q", impl.EntryPoint)
	}
	if impl.DefaultConfig["limit"] != float64(10) {
		t.Errorf("DefaultConfig = %v", impl.DefaultConfig)
	}
}

func TestRepositoryGetImplementationNotFound(t *testing.T) {
	client, _ := newClientWithHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	repo := NewRepository(client)
	_, err := repo.GetImplementation(context.Background(), "boards", "missing")
	if !storage.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestRepositoryListImplementationsUnknownModule(t *testing.T) {
	client, _ := newClientWithHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Both the implementations query and the existence probe come back empty.
		w.Write([]byte(`[]`))
	}))

	repo := NewRepository(client)
	_, err := repo.ListImplementations(context.Background(), "ghost")
	if !storage.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestRepositoryGetAssignmentsKeyedByModule(t *testing.T) {
	client, _ := newClientWithHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("organization_id") != "eq.org-1" || q.Get("active") != "is.true" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Write([]byte(`[
			{"id":"a1","organization_id":"org-1","base_module_id":"boards","implementation_key":"custom-acme","active":true},
			{"id":"a2","organization_id":"org-1","base_module_id":"reports","implementation_key":"standard","active":true}
		]`))
	}))

	repo := NewRepository(client)
	asgs, err := repo.GetAssignments(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("GetAssignments: %v", err)
	}
	if len(asgs) != 2 {
		t.Fatalf("len = %d, want 2", len(asgs))
	}
	if asgs["boards"].ImplementationKey != "custom-acme" {
		t.Errorf("boards assignment = %+v", asgs["boards"])
	}
}

func TestRepositoryMaintenanceStatusMissingRow(t *testing.T) {
	client, _ := newClientWithHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	repo := NewRepository(client)
	_, err := repo.GetMaintenanceStatus(context.Background())
	if !storage.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestRepositorySetMaintenanceStatusInsertsWhenAbsent(t *testing.T) {
	var methods []string
	client, _ := newClientWithHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPatch {
			// No existing row to update.
			w.Write([]byte(`[]`))
			return
		}
		var row map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			t.Errorf("decode insert body: %v", err)
		}
		if row["id"] != float64(1) || row["in_maintenance"] != true {
			t.Errorf("insert body = %v", row)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	}))

	repo := NewRepository(client)
	err := repo.SetMaintenanceStatus(context.Background(), maintenance.Status{InMaintenance: true, Reason: "upgrade"})
	if err != nil {
		t.Fatalf("SetMaintenanceStatus: %v", err)
	}
	if len(methods) != 2 || methods[0] != http.MethodPatch || methods[1] != http.MethodPost {
		t.Fatalf("methods = %v, want [PATCH POST]", methods)
	}
}

func TestRepositorySetMaintenanceStatusUpdatesExistingRow(t *testing.T) {
	var methods []string
	client, _ := newClientWithHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.Write([]byte(`[{"id":1,"in_maintenance":false,"reason":""}]`))
	}))

	repo := NewRepository(client)
	if err := repo.SetMaintenanceStatus(context.Background(), maintenance.Status{}); err != nil {
		t.Fatalf("SetMaintenanceStatus: %v", err)
	}
	if len(methods) != 1 || methods[0] != http.MethodPatch {
		t.Fatalf("methods = %v, want [PATCH]", methods)
	}
}

package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nexboard/module_layer/internal/app/domain/maintenance"
	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/domain/organization"
	"github.com/nexboard/module_layer/internal/app/storage"
)

// Repository reads the module catalog, organizations, assignments and the
// maintenance record through the Supabase REST API. It satisfies every
// storage interface of the application layer.
type Repository struct {
	client *Client
}

var _ storage.RegistryStore = (*Repository)(nil)
var _ storage.AssignmentStore = (*Repository)(nil)
var _ storage.OrganizationStore = (*Repository)(nil)
var _ storage.MaintenanceStore = (*Repository)(nil)

// NewRepository creates a repository on top of an initialised client.
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) get(ctx context.Context, table, query string, dst interface{}) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("%w: repository not initialized", ErrInvalidInput)
	}
	data, err := r.client.request(ctx, "GET", table, nil, query)
	if err != nil {
		return fmt.Errorf("%w: get %s: %v", ErrDatabaseError, table, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: unmarshal %s: %v", ErrDatabaseError, table, err)
	}
	return nil
}

// RegistryStore --------------------------------------------------------------

func (r *Repository) ListBaseModules(ctx context.Context) ([]module.BaseModule, error) {
	var out []module.BaseModule
	if err := r.get(ctx, "base_modules", "select=*&order=sort_order.asc,id.asc", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) ListImplementations(ctx context.Context, baseModuleID string) ([]module.Implementation, error) {
	if baseModuleID == "" {
		return nil, fmt.Errorf("%w: baseModuleID cannot be empty", ErrInvalidInput)
	}

	query := "base_module_id=eq." + url.QueryEscape(baseModuleID) + "&order=implementation_key.asc"
	var out []module.Implementation
	if err := r.get(ctx, "module_implementations", query, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		// Distinguish an implementation-less module from an unknown one.
		var bases []module.BaseModule
		if err := r.get(ctx, "base_modules", "id=eq."+url.QueryEscape(baseModuleID)+"&limit=1", &bases); err != nil {
			return nil, err
		}
		if len(bases) == 0 {
			return nil, NewNotFoundError("base_module", baseModuleID)
		}
	}
	return out, nil
}

func (r *Repository) ListAllImplementations(ctx context.Context) ([]module.Implementation, error) {
	var out []module.Implementation
	if err := r.get(ctx, "module_implementations", "select=*&order=base_module_id.asc,implementation_key.asc", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetImplementation(ctx context.Context, baseModuleID, key string) (module.Implementation, error) {
	if baseModuleID == "" || key == "" {
		return module.Implementation{}, fmt.Errorf("%w: baseModuleID and key cannot be empty", ErrInvalidInput)
	}

	query := "base_module_id=eq." + url.QueryEscape(baseModuleID) +
		"&implementation_key=eq." + url.QueryEscape(key) + "&limit=1"
	var out []module.Implementation
	if err := r.get(ctx, "module_implementations", query, &out); err != nil {
		return module.Implementation{}, err
	}
	if len(out) == 0 {
		return module.Implementation{}, NewNotFoundError("module_implementation", baseModuleID+"/"+key)
	}
	return out[0], nil
}

// AssignmentStore ------------------------------------------------------------

func (r *Repository) GetAssignments(ctx context.Context, organizationID string) (map[string]module.Assignment, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organizationID cannot be empty", ErrInvalidInput)
	}

	query := "organization_id=eq." + url.QueryEscape(organizationID) + "&active=is.true"
	var rows []module.Assignment
	if err := r.get(ctx, "organization_module_assignments", query, &rows); err != nil {
		return nil, err
	}

	out := make(map[string]module.Assignment, len(rows))
	for _, asg := range rows {
		out[asg.BaseModuleID] = asg
	}
	return out, nil
}

func (r *Repository) GetAssignment(ctx context.Context, organizationID, baseModuleID string) (module.Assignment, error) {
	if organizationID == "" || baseModuleID == "" {
		return module.Assignment{}, fmt.Errorf("%w: organizationID and baseModuleID cannot be empty", ErrInvalidInput)
	}

	query := "organization_id=eq." + url.QueryEscape(organizationID) +
		"&base_module_id=eq." + url.QueryEscape(baseModuleID) +
		"&active=is.true&limit=1"
	var rows []module.Assignment
	if err := r.get(ctx, "organization_module_assignments", query, &rows); err != nil {
		return module.Assignment{}, err
	}
	if len(rows) == 0 {
		return module.Assignment{}, NewNotFoundError("assignment", organizationID+"/"+baseModuleID)
	}
	return rows[0], nil
}

// OrganizationStore ----------------------------------------------------------

func (r *Repository) GetOrganization(ctx context.Context, id string) (organization.Organization, error) {
	if id == "" {
		return organization.Organization{}, fmt.Errorf("%w: id cannot be empty", ErrInvalidInput)
	}

	var rows []organization.Organization
	if err := r.get(ctx, "organizations", "id=eq."+url.QueryEscape(id)+"&limit=1", &rows); err != nil {
		return organization.Organization{}, err
	}
	if len(rows) == 0 {
		return organization.Organization{}, NewNotFoundError("organization", id)
	}
	return rows[0], nil
}

func (r *Repository) ListOrganizations(ctx context.Context) ([]organization.Organization, error) {
	var out []organization.Organization
	if err := r.get(ctx, "organizations", "select=*&order=id.asc", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MaintenanceStore -----------------------------------------------------------

// maintenanceRow mirrors the singleton maintenance_status record.
type maintenanceRow struct {
	ID int `json:"id"`
	maintenance.Status
}

func (r *Repository) GetMaintenanceStatus(ctx context.Context) (maintenance.Status, error) {
	var rows []maintenanceRow
	if err := r.get(ctx, "maintenance_status", "id=eq.1&limit=1", &rows); err != nil {
		return maintenance.Status{}, err
	}
	if len(rows) == 0 {
		return maintenance.Status{}, NewNotFoundError("maintenance_status", "1")
	}
	return rows[0].Status, nil
}

func (r *Repository) SetMaintenanceStatus(ctx context.Context, status maintenance.Status) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("%w: repository not initialized", ErrInvalidInput)
	}

	row := maintenanceRow{ID: 1, Status: status}

	// Update the singleton row; insert it when it does not exist yet.
	data, err := r.client.request(ctx, "PATCH", "maintenance_status", row, "id=eq.1")
	if err != nil {
		return fmt.Errorf("%w: update maintenance_status: %v", ErrDatabaseError, err)
	}
	var updated []maintenanceRow
	if err := json.Unmarshal(data, &updated); err != nil {
		return fmt.Errorf("%w: unmarshal maintenance_status: %v", ErrDatabaseError, err)
	}
	if len(updated) > 0 {
		return nil
	}

	if _, err := r.client.request(ctx, "POST", "maintenance_status", row, ""); err != nil {
		return fmt.Errorf("%w: insert maintenance_status: %v", ErrDatabaseError, err)
	}
	return nil
}

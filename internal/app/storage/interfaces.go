package storage

import (
	"context"
	"errors"

	"github.com/nexboard/module_layer/internal/app/domain/maintenance"
	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/domain/organization"
)

// ErrNotFound is returned by every store when the requested row is absent.
// Callers distinguish it from infrastructure failures with errors.Is.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err means the requested entity is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// RegistryStore reads the module catalog. The catalog is effectively
// immutable at request time; writes happen through seeding and migrations.
type RegistryStore interface {
	ListBaseModules(ctx context.Context) ([]module.BaseModule, error)
	ListImplementations(ctx context.Context, baseModuleID string) ([]module.Implementation, error)
	ListAllImplementations(ctx context.Context) ([]module.Implementation, error)
	GetImplementation(ctx context.Context, baseModuleID, key string) (module.Implementation, error)
}

// AssignmentStore reads organization module assignments. The resolver never
// writes through this interface; assignment edits belong to the external
// admin-configuration surface.
type AssignmentStore interface {
	GetAssignments(ctx context.Context, organizationID string) (map[string]module.Assignment, error)
	GetAssignment(ctx context.Context, organizationID, baseModuleID string) (module.Assignment, error)
}

// OrganizationStore reads tenant records.
type OrganizationStore interface {
	GetOrganization(ctx context.Context, id string) (organization.Organization, error)
	ListOrganizations(ctx context.Context) ([]organization.Organization, error)
}

// MaintenanceStore owns the singleton maintenance record.
type MaintenanceStore interface {
	GetMaintenanceStatus(ctx context.Context) (maintenance.Status, error)
	SetMaintenanceStatus(ctx context.Context, status maintenance.Status) error
}

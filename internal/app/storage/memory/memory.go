package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nexboard/module_layer/internal/app/domain/maintenance"
	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/domain/organization"
	"github.com/nexboard/module_layer/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu              sync.RWMutex
	nextID          int64
	baseModules     map[string]module.BaseModule
	implementations map[string]map[string]module.Implementation // baseModuleID -> key
	organizations   map[string]organization.Organization
	assignments     map[string]map[string]module.Assignment // organizationID -> baseModuleID
	maintenance     maintenance.Status
}

var _ storage.RegistryStore = (*Store)(nil)
var _ storage.AssignmentStore = (*Store)(nil)
var _ storage.OrganizationStore = (*Store)(nil)
var _ storage.MaintenanceStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:          1,
		baseModules:     make(map[string]module.BaseModule),
		implementations: make(map[string]map[string]module.Implementation),
		organizations:   make(map[string]organization.Organization),
		assignments:     make(map[string]map[string]module.Assignment),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// Catalog writes ----------------------------------------------------------

// PutBaseModule inserts or replaces a base module.
func (s *Store) PutBaseModule(_ context.Context, bm module.BaseModule) (module.BaseModule, error) {
	if bm.ID == "" {
		return module.BaseModule{}, fmt.Errorf("base module id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseModules[bm.ID] = bm
	return bm, nil
}

// PutImplementation inserts or replaces an implementation of a base module.
func (s *Store) PutImplementation(_ context.Context, impl module.Implementation) (module.Implementation, error) {
	if impl.BaseModuleID == "" || impl.Key == "" {
		return module.Implementation{}, fmt.Errorf("base_module_id and implementation_key are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.baseModules[impl.BaseModuleID]; !ok {
		return module.Implementation{}, fmt.Errorf("base module %s: %w", impl.BaseModuleID, storage.ErrNotFound)
	}
	if impl.CreatedAt.IsZero() {
		impl.CreatedAt = time.Now().UTC()
	}
	impl.DefaultConfig = cloneConfig(impl.DefaultConfig)

	byKey, ok := s.implementations[impl.BaseModuleID]
	if !ok {
		byKey = make(map[string]module.Implementation)
		s.implementations[impl.BaseModuleID] = byKey
	}
	byKey[impl.Key] = impl
	return cloneImplementation(impl), nil
}

// PutOrganization inserts or replaces an organization.
func (s *Store) PutOrganization(_ context.Context, org organization.Organization) (organization.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if org.ID == "" {
		org.ID = s.nextIDLocked()
	}
	if org.ClientType == "" {
		org.ClientType = organization.ClientTypeStandard
	}
	if !org.ClientType.Valid() {
		return organization.Organization{}, fmt.Errorf("unknown client type %q", org.ClientType)
	}

	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now
	org.ImplementationConfig = cloneConfig(org.ImplementationConfig)

	s.organizations[org.ID] = org
	return cloneOrganization(org), nil
}

// PutAssignment inserts or replaces the active assignment for the
// (organization, base module) pair.
func (s *Store) PutAssignment(_ context.Context, asg module.Assignment) (module.Assignment, error) {
	if asg.OrganizationID == "" || asg.BaseModuleID == "" {
		return module.Assignment{}, fmt.Errorf("organization_id and base_module_id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if asg.ID == "" {
		asg.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	if asg.CreatedAt.IsZero() {
		asg.CreatedAt = now
	}
	asg.UpdatedAt = now
	asg.Config = cloneConfig(asg.Config)

	byModule, ok := s.assignments[asg.OrganizationID]
	if !ok {
		byModule = make(map[string]module.Assignment)
		s.assignments[asg.OrganizationID] = byModule
	}
	byModule[asg.BaseModuleID] = asg
	return cloneAssignment(asg), nil
}

// RegistryStore implementation -------------------------------------------

func (s *Store) ListBaseModules(_ context.Context) ([]module.BaseModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]module.BaseModule, 0, len(s.baseModules))
	for _, bm := range s.baseModules {
		out = append(out, bm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListImplementations(_ context.Context, baseModuleID string) ([]module.Implementation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.baseModules[baseModuleID]; !ok {
		return nil, fmt.Errorf("base module %s: %w", baseModuleID, storage.ErrNotFound)
	}

	out := make([]module.Implementation, 0, len(s.implementations[baseModuleID]))
	for _, impl := range s.implementations[baseModuleID] {
		out = append(out, cloneImplementation(impl))
	}
	sortImplementations(out)
	return out, nil
}

func (s *Store) ListAllImplementations(_ context.Context) ([]module.Implementation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []module.Implementation
	for _, byKey := range s.implementations {
		for _, impl := range byKey {
			out = append(out, cloneImplementation(impl))
		}
	}
	sortImplementations(out)
	return out, nil
}

func (s *Store) GetImplementation(_ context.Context, baseModuleID, key string) (module.Implementation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	impl, ok := s.implementations[baseModuleID][key]
	if !ok {
		return module.Implementation{}, fmt.Errorf("implementation %s/%s: %w", baseModuleID, key, storage.ErrNotFound)
	}
	return cloneImplementation(impl), nil
}

// AssignmentStore implementation -----------------------------------------

func (s *Store) GetAssignments(_ context.Context, organizationID string) (map[string]module.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]module.Assignment)
	for baseModuleID, asg := range s.assignments[organizationID] {
		if !asg.Active {
			continue
		}
		out[baseModuleID] = cloneAssignment(asg)
	}
	return out, nil
}

func (s *Store) GetAssignment(_ context.Context, organizationID, baseModuleID string) (module.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asg, ok := s.assignments[organizationID][baseModuleID]
	if !ok || !asg.Active {
		return module.Assignment{}, fmt.Errorf("assignment %s/%s: %w", organizationID, baseModuleID, storage.ErrNotFound)
	}
	return cloneAssignment(asg), nil
}

// OrganizationStore implementation ---------------------------------------

func (s *Store) GetOrganization(_ context.Context, id string) (organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.organizations[id]
	if !ok {
		return organization.Organization{}, fmt.Errorf("organization %s: %w", id, storage.ErrNotFound)
	}
	return cloneOrganization(org), nil
}

func (s *Store) ListOrganizations(_ context.Context) ([]organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]organization.Organization, 0, len(s.organizations))
	for _, org := range s.organizations {
		out = append(out, cloneOrganization(org))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MaintenanceStore implementation ----------------------------------------

func (s *Store) GetMaintenanceStatus(_ context.Context) (maintenance.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maintenance, nil
}

func (s *Store) SetMaintenanceStatus(_ context.Context, status maintenance.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}
	s.maintenance = status
	return nil
}

// helpers ------------------------------------------------------------------

func sortImplementations(impls []module.Implementation) {
	sort.Slice(impls, func(i, j int) bool {
		if impls[i].BaseModuleID != impls[j].BaseModuleID {
			return impls[i].BaseModuleID < impls[j].BaseModuleID
		}
		return impls[i].Key < impls[j].Key
	})
}

func cloneConfig(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneImplementation(impl module.Implementation) module.Implementation {
	impl.DefaultConfig = cloneConfig(impl.DefaultConfig)
	return impl
}

func cloneAssignment(asg module.Assignment) module.Assignment {
	asg.Config = cloneConfig(asg.Config)
	return asg
}

func cloneOrganization(org organization.Organization) organization.Organization {
	org.ImplementationConfig = cloneConfig(org.ImplementationConfig)
	return org
}

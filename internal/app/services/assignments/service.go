// Package assignments exposes read access to organization module assignments.
// Writes belong to the external admin-configuration surface; nothing in this
// service mutates an assignment.
package assignments

import (
	"context"
	"fmt"

	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/domain/organization"
	"github.com/nexboard/module_layer/internal/app/storage"
	"github.com/nexboard/module_layer/pkg/logger"
)

// OrganizationAssignments pairs an organization with its active assignments,
// keyed by base module id. Used by the admin console listing.
type OrganizationAssignments struct {
	Organization organization.Organization    `json:"organization"`
	Assignments  map[string]module.Assignment `json:"assignments"`
}

// Service reads assignments for the resolver and the admin surface.
type Service struct {
	store storage.AssignmentStore
	orgs  storage.OrganizationStore
	log   *logger.Logger
}

// New constructs an assignment service.
func New(store storage.AssignmentStore, orgs storage.OrganizationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("assignments")
	}
	return &Service{store: store, orgs: orgs, log: log}
}

// GetAssignments returns the active assignments of one organization keyed by
// base module id. An organization without assignments yields an empty map.
func (s *Service) GetAssignments(ctx context.Context, organizationID string) (map[string]module.Assignment, error) {
	return s.store.GetAssignments(ctx, organizationID)
}

// GetAssignment returns the active assignment for one (organization, base
// module) pair. Absence surfaces as storage.ErrNotFound, which the resolver
// treats as "use the standard implementation with no overrides".
func (s *Service) GetAssignment(ctx context.Context, organizationID, baseModuleID string) (module.Assignment, error) {
	return s.store.GetAssignment(ctx, organizationID, baseModuleID)
}

// ListAll folds the assignment store over every organization.
func (s *Service) ListAll(ctx context.Context) ([]OrganizationAssignments, error) {
	orgs, err := s.orgs.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	out := make([]OrganizationAssignments, 0, len(orgs))
	for _, org := range orgs {
		asgs, err := s.store.GetAssignments(ctx, org.ID)
		if err != nil {
			return nil, fmt.Errorf("assignments for organization %s: %w", org.ID, err)
		}
		out = append(out, OrganizationAssignments{Organization: org, Assignments: asgs})
	}
	return out, nil
}

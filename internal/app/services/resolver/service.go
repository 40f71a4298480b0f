// Package resolver selects the module implementation variant and merged
// configuration served to one organization for one base module slot.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/nexboard/module_layer/internal/app/domain/maintenance"
	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/domain/organization"
	"github.com/nexboard/module_layer/internal/app/metrics"
	"github.com/nexboard/module_layer/internal/app/storage"
	"github.com/nexboard/module_layer/pkg/logger"
)

// Gate is the maintenance check consulted before any lookup. The concrete
// implementation never returns an error; it fails open internally.
type Gate interface {
	CheckStatus(ctx context.Context) maintenance.Status
}

// Service resolves (organization, base module) pairs to rendered descriptors.
// It performs no writes and is safe for unbounded concurrent use.
type Service struct {
	gate        Gate
	registry    storage.RegistryStore
	assignments storage.AssignmentStore
	orgs        storage.OrganizationStore
	log         *logger.Logger
}

// New constructs a resolver.
func New(gate Gate, registry storage.RegistryStore, assignments storage.AssignmentStore, orgs storage.OrganizationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("resolver")
	}
	return &Service{gate: gate, registry: registry, assignments: assignments, orgs: orgs, log: log}
}

// Resolve returns the implementation variant and merged configuration for one
// base module slot of one organization.
//
// The maintenance gate is consulted first and short-circuits every other
// lookup, so incidents do not add registry or assignment load. Repeated calls
// with unchanged backing data return identical results.
func (s *Service) Resolve(ctx context.Context, organizationID, baseModuleID string) (module.Resolved, error) {
	start := time.Now()
	resolved, err := s.resolve(ctx, organizationID, baseModuleID)
	metrics.RecordResolution(outcome(err), time.Since(start))
	return resolved, err
}

// ResolveAll resolves every base module slot for one organization. The
// maintenance gate is checked once up front.
func (s *Service) ResolveAll(ctx context.Context, organizationID string) ([]module.Resolved, error) {
	if status := s.gate.CheckStatus(ctx); status.InMaintenance {
		return nil, &MaintenanceBlockedError{Reason: status.Reason}
	}

	bases, err := s.registry.ListBaseModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list base modules: %w", err)
	}

	out := make([]module.Resolved, 0, len(bases))
	for _, bm := range bases {
		start := time.Now()
		resolved, err := s.resolveUnlocked(ctx, organizationID, bm.ID)
		metrics.RecordResolution(outcome(err), time.Since(start))
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

func (s *Service) resolve(ctx context.Context, organizationID, baseModuleID string) (module.Resolved, error) {
	if status := s.gate.CheckStatus(ctx); status.InMaintenance {
		return module.Resolved{}, &MaintenanceBlockedError{Reason: status.Reason}
	}
	return s.resolveUnlocked(ctx, organizationID, baseModuleID)
}

// resolveUnlocked runs steps 2-6 of the resolution algorithm; the caller has
// already cleared the maintenance gate.
func (s *Service) resolveUnlocked(ctx context.Context, organizationID, baseModuleID string) (module.Resolved, error) {
	org, err := s.orgs.GetOrganization(ctx, organizationID)
	if err != nil {
		return module.Resolved{}, fmt.Errorf("organization %s: %w", organizationID, err)
	}

	targetKey := module.StandardKey
	var override map[string]any
	hasAssignment := false

	asg, err := s.assignments.GetAssignment(ctx, organizationID, baseModuleID)
	switch {
	case err == nil:
		hasAssignment = true
		override = asg.Config
		if asg.ImplementationKey != "" {
			targetKey = asg.ImplementationKey
		}
	case storage.IsNotFound(err):
		// No assignment is not an error: serve the standard variant with
		// no overrides.
	default:
		return module.Resolved{}, fmt.Errorf("assignment lookup for %s/%s: %w", organizationID, baseModuleID, err)
	}

	impl, err := s.registry.GetImplementation(ctx, baseModuleID, targetKey)
	if err != nil {
		if !storage.IsNotFound(err) {
			return module.Resolved{}, fmt.Errorf("registry lookup for %s/%s: %w", baseModuleID, targetKey, err)
		}

		// A custom organization pointing at a missing variant is a
		// configuration error, never silently defaulted.
		if hasAssignment && org.ClientType == organization.ClientTypeCustom {
			s.log.WithField("organization_id", organizationID).
				WithField("base_module_id", baseModuleID).
				WithField("implementation_key", targetKey).
				Error("custom organization references missing implementation")
			return module.Resolved{}, &ConfigurationError{
				OrganizationID:    organizationID,
				BaseModuleID:      baseModuleID,
				ImplementationKey: targetKey,
				err:               err,
			}
		}

		if targetKey == module.StandardKey {
			return module.Resolved{}, fmt.Errorf("implementation %s/%s: %w", baseModuleID, targetKey, err)
		}

		// One documented retry with the standard variant.
		impl, err = s.registry.GetImplementation(ctx, baseModuleID, module.StandardKey)
		if err != nil {
			if storage.IsNotFound(err) {
				return module.Resolved{}, fmt.Errorf("implementation %s/%s: %w", baseModuleID, module.StandardKey, err)
			}
			return module.Resolved{}, fmt.Errorf("registry lookup for %s/%s: %w", baseModuleID, module.StandardKey, err)
		}
		s.log.WithField("organization_id", organizationID).
			WithField("base_module_id", baseModuleID).
			WithField("requested_key", targetKey).
			Warn("implementation missing; fell back to standard")
	}

	return module.Resolved{
		OrganizationID:    organizationID,
		BaseModuleID:      baseModuleID,
		ImplementationKey: impl.Key,
		EntryPoint:        impl.EntryPoint,
		Config:            mergeConfig(impl.DefaultConfig, override),
	}, nil
}

// mergeConfig shallow-merges override on top of defaults: override wins per
// top-level key and nested structures are replaced wholesale, not deep-merged.
// This matches the admin console's configuration semantics exactly.
func mergeConfig(defaults, override map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(override))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "resolved"
	case IsMaintenanceBlocked(err):
		return "maintenance_blocked"
	case IsConfigurationError(err):
		return "configuration_error"
	case storage.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// Package app composes the module-layer services, their stores, and their
// lifecycle. Business rules live in internal/app/services; this package only
// wires them together.
package app

import (
	"context"
	"fmt"
	"time"

	assignmentsvc "github.com/nexboard/module_layer/internal/app/services/assignments"
	maintenancesvc "github.com/nexboard/module_layer/internal/app/services/maintenance"
	registrysvc "github.com/nexboard/module_layer/internal/app/services/registry"
	resolversvc "github.com/nexboard/module_layer/internal/app/services/resolver"
	"github.com/nexboard/module_layer/internal/app/storage"
	"github.com/nexboard/module_layer/internal/app/storage/memory"
	"github.com/nexboard/module_layer/internal/app/system"
	"github.com/nexboard/module_layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Registry      storage.RegistryStore
	Assignments   storage.AssignmentStore
	Organizations storage.OrganizationStore
	Maintenance   storage.MaintenanceStore
}

// Option customises application construction.
type Option func(*settings)

type settings struct {
	registryOpts []registrysvc.Option
}

// WithStatsTTL overrides the registry stats cache lifetime.
func WithStatsTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.registryOpts = append(s.registryOpts, registrysvc.WithStatsTTL(ttl))
	}
}

// Application ties the module-layer services together.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Registry    *registrysvc.Service
	Assignments *assignmentsvc.Service
	Maintenance *maintenancesvc.Service
	Resolver    *resolversvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger, opts ...Option) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	mem := memory.New()
	if stores.Registry == nil {
		stores.Registry = mem
	}
	if stores.Assignments == nil {
		stores.Assignments = mem
	}
	if stores.Organizations == nil {
		stores.Organizations = mem
	}
	if stores.Maintenance == nil {
		stores.Maintenance = mem
	}

	manager := system.NewManager()

	registryService := registrysvc.New(stores.Registry, log, s.registryOpts...)
	assignmentService := assignmentsvc.New(stores.Assignments, stores.Organizations, log)
	maintenanceService := maintenancesvc.New(stores.Maintenance, log)
	resolverService := resolversvc.New(maintenanceService, stores.Registry, stores.Assignments, stores.Organizations, log)

	for _, name := range []string{"registry", "assignments", "maintenance", "resolver"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:     manager,
		log:         log,
		Registry:    registryService,
		Assignments: assignmentService,
		Maintenance: maintenanceService,
		Resolver:    resolverService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Package registry serves the module catalog: base modules, their
// implementation variants, and aggregate statistics.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nexboard/module_layer/internal/app/domain/module"
	"github.com/nexboard/module_layer/internal/app/storage"
	"github.com/nexboard/module_layer/pkg/logger"
)

// DefaultStatsTTL bounds catalog scans under repeated stats polling. Staleness
// of a few seconds is acceptable for a read-mostly catalog.
const DefaultStatsTTL = 5 * time.Second

// Option configures the service.
type Option func(*Service)

// WithStatsTTL overrides the stats cache lifetime. A non-positive value
// disables caching.
func WithStatsTTL(ttl time.Duration) Option {
	return func(s *Service) { s.statsTTL = ttl }
}

// Service answers catalog queries with a stable ordering.
type Service struct {
	store    storage.RegistryStore
	log      *logger.Logger
	statsTTL time.Duration

	mu       sync.Mutex
	cached   module.Stats
	cachedAt time.Time
}

// New constructs a registry service.
func New(store storage.RegistryStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	s := &Service{store: store, log: log, statsTTL: DefaultStatsTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListBaseModules returns the catalog slots ordered by sort order.
func (s *Service) ListBaseModules(ctx context.Context) ([]module.BaseModule, error) {
	return s.store.ListBaseModules(ctx)
}

// ListImplementations returns the variants of one base module ordered by
// implementation key. List rendering relies on this ordering being stable.
func (s *Service) ListImplementations(ctx context.Context, baseModuleID string) ([]module.Implementation, error) {
	impls, err := s.store.ListImplementations(ctx, baseModuleID)
	if err != nil {
		return nil, err
	}
	sortImplementations(impls)
	return impls, nil
}

// ListAll returns every implementation in the catalog ordered by
// (base_module_id, implementation_key) ascending.
func (s *Service) ListAll(ctx context.Context) ([]module.Implementation, error) {
	impls, err := s.store.ListAllImplementations(ctx)
	if err != nil {
		return nil, err
	}
	sortImplementations(impls)
	return impls, nil
}

// GetImplementation returns one variant. Absence surfaces as
// storage.ErrNotFound; the resolver owns the fallback policy.
func (s *Service) GetImplementation(ctx context.Context, baseModuleID, key string) (module.Implementation, error) {
	return s.store.GetImplementation(ctx, baseModuleID, key)
}

// Stats aggregates catalog counts. Results are cached for the configured TTL.
func (s *Service) Stats(ctx context.Context) (module.Stats, error) {
	s.mu.Lock()
	if s.statsTTL > 0 && !s.cachedAt.IsZero() && time.Since(s.cachedAt) < s.statsTTL {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	bases, err := s.store.ListBaseModules(ctx)
	if err != nil {
		return module.Stats{}, err
	}
	impls, err := s.store.ListAllImplementations(ctx)
	if err != nil {
		return module.Stats{}, err
	}

	stats := module.Stats{
		TotalBaseModules:     len(bases),
		TotalImplementations: len(impls),
		PerBaseModule:        make(map[string]int, len(bases)),
	}
	for _, bm := range bases {
		stats.PerBaseModule[bm.ID] = 0
	}
	for _, impl := range impls {
		stats.PerBaseModule[impl.BaseModuleID]++
	}

	s.mu.Lock()
	s.cached = stats
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return stats, nil
}

func sortImplementations(impls []module.Implementation) {
	sort.SliceStable(impls, func(i, j int) bool {
		if impls[i].BaseModuleID != impls[j].BaseModuleID {
			return impls[i].BaseModuleID < impls[j].BaseModuleID
		}
		return impls[i].Key < impls[j].Key
	})
}

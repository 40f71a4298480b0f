// Package maintenance implements the process-wide maintenance gate.
package maintenance

import (
	"context"
	"time"

	"github.com/nexboard/module_layer/internal/app/domain/maintenance"
	"github.com/nexboard/module_layer/internal/app/metrics"
	"github.com/nexboard/module_layer/internal/app/storage"
	"github.com/nexboard/module_layer/pkg/logger"
)

// Service reads and writes the singleton maintenance record.
type Service struct {
	store storage.MaintenanceStore
	log   *logger.Logger
}

// New constructs a maintenance gate.
func New(store storage.MaintenanceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("maintenance")
	}
	return &Service{store: store, log: log}
}

// CheckStatus returns the current maintenance status. It fails open: a read
// failure against the backing store reports normal operation, because
// blocking every tenant on a transient infrastructure hiccup is worse than
// briefly skipping the gate. Do not harden this into fail-closed.
func (s *Service) CheckStatus(ctx context.Context) maintenance.Status {
	status, err := s.store.GetMaintenanceStatus(ctx)
	if err != nil {
		if storage.IsNotFound(err) {
			// No record yet means the flag was never set.
			return maintenance.Status{InMaintenance: false}
		}
		s.log.WithError(err).Warn("maintenance status read failed; failing open")
		metrics.RecordMaintenanceFailOpen()
		return maintenance.Status{InMaintenance: false}
	}
	return status
}

// Enable puts the system into maintenance mode with an optional reason.
func (s *Service) Enable(ctx context.Context, reason string) error {
	status := maintenance.Status{
		InMaintenance: true,
		Reason:        reason,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.store.SetMaintenanceStatus(ctx, status); err != nil {
		return err
	}
	s.log.WithField("reason", reason).Warn("maintenance mode enabled")
	return nil
}

// Disable returns the system to normal operation.
func (s *Service) Disable(ctx context.Context) error {
	status := maintenance.Status{
		InMaintenance: false,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.store.SetMaintenanceStatus(ctx, status); err != nil {
		return err
	}
	s.log.Info("maintenance mode disabled")
	return nil
}

package resolver

import (
	"errors"
	"fmt"
)

// MaintenanceBlockedError reports that resolution was short-circuited by the
// maintenance gate. It is expected control flow, not a failure; the rendering
// layer shows the maintenance page.
type MaintenanceBlockedError struct {
	Reason string
}

func (e *MaintenanceBlockedError) Error() string {
	if e.Reason == "" {
		return "module resolution blocked: system in maintenance"
	}
	return fmt.Sprintf("module resolution blocked: %s", e.Reason)
}

// IsMaintenanceBlocked reports whether err is a maintenance short-circuit.
func IsMaintenanceBlocked(err error) bool {
	var target *MaintenanceBlockedError
	return errors.As(err, &target)
}

// ConfigurationError reports that a custom organization references an
// implementation that does not exist. This is unrecoverable operator
// territory; it must never be silently defaulted to the standard variant.
type ConfigurationError struct {
	OrganizationID    string
	BaseModuleID      string
	ImplementationKey string
	err               error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("organization %s is configured with missing implementation %s/%s",
		e.OrganizationID, e.BaseModuleID, e.ImplementationKey)
}

func (e *ConfigurationError) Unwrap() error { return e.err }

// IsConfigurationError reports whether err is an unrecoverable tenant
// configuration error.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

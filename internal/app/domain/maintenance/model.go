// Package maintenance defines the process-wide maintenance flag model.
package maintenance

import "time"

// Status is the singleton maintenance record. A few seconds of staleness is
// acceptable; readers must never block tenant traffic on it.
type Status struct {
	InMaintenance bool      `json:"in_maintenance"`
	Reason        string    `json:"reason,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

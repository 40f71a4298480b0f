// Package organization defines the tenant model scoping module configuration.
package organization

import "time"

// ClientType classifies an organization and controls which module
// implementation variants it may reference.
type ClientType string

const (
	// ClientTypeStandard organizations only use the stock implementations.
	ClientTypeStandard ClientType = "standard"
	// ClientTypeCustom organizations may reference bespoke implementations
	// that are not served to standard tenants.
	ClientTypeCustom ClientType = "custom"
)

// Valid reports whether t is a known client type.
func (t ClientType) Valid() bool {
	return t == ClientTypeStandard || t == ClientTypeCustom
}

// Organization is a tenant record. Rows are created and mutated by the
// onboarding and admin surfaces; this service only reads them.
type Organization struct {
	ID                       string         `json:"id"`
	LegalName                string         `json:"legal_name"`
	TradingName              string         `json:"trading_name"`
	Slug                     string         `json:"slug,omitempty"`
	ClientType               ClientType     `json:"client_type"`
	ImplementationConfig     map[string]any `json:"implementation_config,omitempty"`
	IsImplementationComplete bool           `json:"is_implementation_complete"`
	ImplementationDate       *time.Time     `json:"implementation_date,omitempty"`
	ImplementationNotes      string         `json:"implementation_notes,omitempty"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

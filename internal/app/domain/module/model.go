// Package module defines the catalog and assignment models for tenant module
// resolution.
package module

import "time"

// StandardKey is the implementation key every base module must provide. It is
// the fallback variant served to standard organizations when no assignment
// names another one.
const StandardKey = "standard"

// BaseModule is a logical module slot in the product, such as reports or
// alerts. IDs are stable and immutable once referenced by an assignment.
type BaseModule struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// Implementation is a concrete variant of a base module. The
// (BaseModuleID, Key) pair is unique within the registry.
type Implementation struct {
	BaseModuleID  string         `json:"base_module_id"`
	Key           string         `json:"implementation_key"`
	EntryPoint    string         `json:"entry_point"`
	DefaultConfig map[string]any `json:"default_config,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Assignment links an organization to an implementation for one base module
// slot and carries the organization-specific configuration overrides. At most
// one active assignment exists per (organization, base module).
type Assignment struct {
	ID                string         `json:"id"`
	OrganizationID    string         `json:"organization_id"`
	BaseModuleID      string         `json:"base_module_id"`
	ImplementationKey string         `json:"implementation_key"`
	Config            map[string]any `json:"config,omitempty"`
	Active            bool           `json:"active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Resolved is the final descriptor handed to the rendering layer: one
// implementation plus the merged configuration for one organization.
type Resolved struct {
	OrganizationID    string         `json:"organization_id"`
	BaseModuleID      string         `json:"base_module_id"`
	ImplementationKey string         `json:"implementation_key"`
	EntryPoint        string         `json:"entry_point"`
	Config            map[string]any `json:"config"`
}

// Stats summarises the registry catalog.
type Stats struct {
	TotalBaseModules     int            `json:"total_base_modules"`
	TotalImplementations int            `json:"total_implementations"`
	PerBaseModule        map[string]int `json:"per_base_module"`
}

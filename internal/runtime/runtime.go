// Package runtime reports the runtime environment the process was started in.
package runtime

import (
	"os"
	"strings"
)

// Environment names recognised across the platform.
const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Environment returns the normalised runtime environment name. It reads
// RUNTIME_ENV and defaults to development when unset or unrecognised.
func Environment() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("RUNTIME_ENV"))) {
	case EnvProduction, "prod":
		return EnvProduction
	case EnvStaging, "stage":
		return EnvStaging
	case EnvTesting, "test":
		return EnvTesting
	default:
		return EnvDevelopment
	}
}

// IsDevelopmentOrTesting reports whether the process runs outside staging and
// production. Relaxed validation (mock database URLs, missing keys) is only
// permitted when this returns true.
func IsDevelopmentOrTesting() bool {
	env := Environment()
	return env == EnvDevelopment || env == EnvTesting
}

// IsProduction reports whether the process runs in production.
func IsProduction() bool {
	return Environment() == EnvProduction
}

package config

import "strings"

// Deployment environments recognised by server.environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// NormalizeEnvironment lowercases env and falls back to development when it
// is empty or unknown.
func NormalizeEnvironment(env string) string {
	switch e := strings.ToLower(strings.TrimSpace(env)); e {
	case EnvStaging, EnvProduction:
		return e
	default:
		return EnvDevelopment
	}
}

// IsProductionLike reports whether env must run with explicit secrets and
// a non-local database and broker.
func IsProductionLike(env string) bool {
	env = NormalizeEnvironment(env)
	return env == EnvStaging || env == EnvProduction
}

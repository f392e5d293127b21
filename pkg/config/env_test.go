package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEnvironment(t *testing.T) {
	tests := map[string]string{
		"":             EnvDevelopment,
		"development":  EnvDevelopment,
		"Production":   EnvProduction,
		" staging ":    EnvStaging,
		"qa":           EnvDevelopment,
		"PRODUCTION\n": EnvProduction,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeEnvironment(in), "input %q", in)
	}
}

func TestIsProductionLike(t *testing.T) {
	assert.True(t, IsProductionLike("production"))
	assert.True(t, IsProductionLike("STAGING"))
	assert.False(t, IsProductionLike("development"))
	assert.False(t, IsProductionLike(""))
}

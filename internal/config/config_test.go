package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadRequiresPostgresAndQdrantURL(t *testing.T) {
	clearEnv(t, "POSTGRES_URL", "QDRANT_URL")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t, "PORT", "RATE_LIMIT_MAX", "SEARCH_WEIGHT_SIM")
	os.Setenv("POSTGRES_URL", "postgres://localhost/test")
	os.Setenv("QDRANT_URL", "http://localhost:6333")
	t.Cleanup(func() {
		os.Unsetenv("POSTGRES_URL")
		os.Unsetenv("QDRANT_URL")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, 60, cfg.RateLimitMax)
	assert.Equal(t, 0.7, cfg.SearchWeightSim)
	assert.Equal(t, 0.45, cfg.LexicalStandInScore)
}

func TestLoadReadsOverrides(t *testing.T) {
	os.Setenv("POSTGRES_URL", "postgres://localhost/test")
	os.Setenv("QDRANT_URL", "http://localhost:6333")
	os.Setenv("PORT", "9090")
	t.Cleanup(func() {
		os.Unsetenv("POSTGRES_URL")
		os.Unsetenv("QDRANT_URL")
		os.Unsetenv("PORT")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

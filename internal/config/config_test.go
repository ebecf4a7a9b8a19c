package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Casa Rojas")
	cfg.Currencies = append(cfg.Currencies, "GBP")
	cfg.Storage = StorageConfig{Driver: "sqlite", Path: "data/cambio.db"}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Business, got.Business)
	assert.Equal(t, []string{"USD", "EUR", "GBP"}, got.Currencies)
	assert.Equal(t, cfg.Storage, got.Storage)
	assert.Equal(t, cfg.Rates, got.Rates)
	assert.Equal(t, cfg.Server, got.Server)
	assert.Equal(t, cfg.Git, got.Git)
}

func TestSave_DurationsAreReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Casa Rojas")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cache_ttl: 5m0s")
	assert.NotContains(t, string(data), "JWTSecret")
}

func TestDefaults(t *testing.T) {
	cfg := Default("Casa Rojas")

	assert.Equal(t, "Casa Rojas", cfg.Business.Name)
	assert.Equal(t, model.PEN, cfg.Local())
	codes, err := cfg.CurrencyCodes()
	require.NoError(t, err)
	assert.Equal(t, []model.Currency{model.USD, model.EUR}, codes)
	assert.Equal(t, "csv", cfg.Storage.Driver)
	assert.Equal(t, "simulated", cfg.Rates.Provider)
	assert.True(t, cfg.Rates.Fallback)
	assert.True(t, cfg.Git.AutoCommit)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CAMBIO_LOG_LEVEL":      "debug",
		"CAMBIO_ADDR":           ":9999",
		"CAMBIO_RATES_PROVIDER": "yahoo",
		"CAMBIO_JWT_SECRET":     "s3cret",
		"CAMBIO_TOKEN_TTL":      "30m",
		"CAMBIO_AUTO_COMMIT":    "false",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default("Casa Rojas")
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "yahoo", cfg.Rates.Provider)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.Server.TokenTTL)
	assert.False(t, cfg.Git.AutoCommit)
	assert.Equal(t, "text", cfg.Log.Format, "unset variables leave defaults")

	env["CAMBIO_TOKEN_TTL"] = "soon"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestLoadDir_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, FileName), Default("Casa Rojas")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CAMBIO_STORAGE_DRIVER=sqlite\n"), 0o644))
	t.Setenv("CAMBIO_STORAGE_DRIVER", "")
	os.Unsetenv("CAMBIO_STORAGE_DRIVER")

	cfg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(dir, "cambio.db"), cfg.StoragePath(dir))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"no currencies", func(c *Config) { c.Currencies = nil }},
		{"bad currency", func(c *Config) { c.Currencies = []string{"dollar"} }},
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"bad provider", func(c *Config) { c.Rates.Provider = "bloomberg" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("Casa Rojas")
			tt.edit(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

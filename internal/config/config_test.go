package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "cflp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
solver:
  distance_cost_factor: 2.5
  metric: haversine
  tiers:
    - name: kiosk
      capacity: 50
      fixed_cost: 1000
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, 2.5, cfg.Solver.DistanceCostFactor)
	require.Equal(t, "haversine", cfg.Solver.Metric)
	require.Len(t, cfg.Solver.Tiers, 1)
	require.Equal(t, "kiosk", cfg.Solver.Tiers[0].Name)
	require.Equal(t, 0.30, cfg.Solver.UtilizationThreshold)
	require.Equal(t, 5, cfg.Webhooks.MaxAttempts)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                 "7000",
		"DATABASE_URL":         "postgres://x",
		"RATE_RPS":             "2.5",
		"RATE_BURST":           "4",
		"WEBHOOK_MAX_ATTEMPTS": "9",
		"LOG_LEVEL":            "debug",
		"DB_MIGRATE":           "false",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }))
	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, "postgres://x", cfg.Database.URL)
	require.Equal(t, 2.5, cfg.Server.RateRPS)
	require.Equal(t, 4, cfg.Server.RateBurst)
	require.Equal(t, 9, cfg.Webhooks.MaxAttempts)
	require.Equal(t, "debug", cfg.Log.Level)
	require.False(t, cfg.Database.Migrate)

	bad := Default()
	err := bad.applyEnv(func(k string) (string, bool) {
		if k == "RATE_BURST" {
			return "lots", true
		}
		return "", false
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"no tiers":        func(c *Config) { c.Solver.Tiers = nil },
		"bad tier":        func(c *Config) { c.Solver.Tiers[0].Capacity = 0 },
		"factor":          func(c *Config) { c.Solver.DistanceCostFactor = 0 },
		"threshold":       func(c *Config) { c.Solver.UtilizationThreshold = 1 },
		"metric":          func(c *Config) { c.Solver.Metric = "manhattan" },
		"auth mode":       func(c *Config) { c.Auth.Mode = "oauth" },
		"hmac secret":     func(c *Config) { c.Auth.Mode = "hmac" },
		"webhook attempt": func(c *Config) { c.Webhooks.MaxAttempts = 0 },
	}
	require.NoError(t, Default().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			require.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver: [oops"), 0o600))
	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

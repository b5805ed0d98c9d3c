package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ross1116/pokebattle/internal/config"
	"github.com/ross1116/pokebattle/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, "localhost:9090", cfg.Addr())
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  port: "7000"
battle:
  party_size: 6
  seed: 99
  turn_timeout: 30s
  timeout_policy: forfeit
log:
  level: debug
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 6, cfg.Battle.PartySize)
	assert.Equal(t, uint64(99), cfg.Battle.Seed)
	assert.Equal(t, 30*time.Second, cfg.Battle.TurnTimeout)
	assert.Equal(t, host.PolicyForfeit, cfg.Battle.TimeoutPolicy)
	assert.Equal(t, 50*time.Millisecond, cfg.Battle.Tick)
	assert.Equal(t, "debug", cfg.Log.Level)

	opts := cfg.Battle.HostOptions()
	assert.Equal(t, host.Options{TurnTimeout: 30 * time.Second, Policy: host.PolicyForfeit, Tick: 50 * time.Millisecond}, opts)
}

func TestEnvironmentWins(t *testing.T) {
	t.Setenv("GAME_HOST", "0.0.0.0")
	t.Setenv("GAME_PORT", "8080")
	t.Setenv("BATTLE_SEED", "1234")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := config.Load(writeFile(t, "server:\n  port: \"7000\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, uint64(1234), cfg.Battle.SeedOr(5))
	assert.Equal(t, "warn", cfg.Log.Level)

	t.Setenv("BATTLE_SEED", "abc")
	_, err = config.Load("")
	assert.Error(t, err)
}

func TestSeedOr(t *testing.T) {
	assert.Equal(t, uint64(5), config.Battle{}.SeedOr(5))
	assert.Equal(t, uint64(7), config.Battle{Seed: 7}.SeedOr(5))
}

func TestInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"party too big":   "battle:\n  party_size: 7\n",
		"levels reversed": "battle:\n  min_level: 50\n  max_level: 10\n",
		"bad policy":      "battle:\n  timeout_policy: panic\n",
		"zero tick":       "battle:\n  tick: 0s\n",
		"not yaml":        "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// Package config loads runtime settings: defaults, then an optional YAML
// file, then environment overrides. Command flags are applied by each
// binary on top.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ross1116/pokebattle/internal/host"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type Battle struct {
	PartySize int `yaml:"party_size"`
	MinLevel  int `yaml:"min_level"`
	MaxLevel  int `yaml:"max_level"`
	// Seed of zero derives one from the clock.
	Seed          uint64             `yaml:"seed"`
	TurnTimeout   time.Duration      `yaml:"turn_timeout"`
	TimeoutPolicy host.TimeoutPolicy `yaml:"timeout_policy"`
	Tick          time.Duration      `yaml:"tick"`
	// AIWait is how long a lobby player waits for a human before an AI
	// opponent is matched in.
	AIWait time.Duration `yaml:"ai_wait"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Server Server `yaml:"server"`
	Battle Battle `yaml:"battle"`
	Log    Log    `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Host: "localhost", Port: "9090"},
		Battle: Battle{
			PartySize:     3,
			MinLevel:      30,
			MaxLevel:      50,
			TurnTimeout:   60 * time.Second,
			TimeoutPolicy: host.PolicyRepeat,
			Tick:          50 * time.Millisecond,
			AIWait:        10 * time.Second,
		},
		Log: Log{Level: "info", Pretty: true},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.Server.Host = getenv("GAME_HOST", c.Server.Host)
	c.Server.Port = getenv("GAME_PORT", c.Server.Port)
	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
	if v := os.Getenv("BATTLE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BATTLE_SEED: %w", err)
		}
		c.Battle.Seed = seed
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is empty"))
	}
	b := c.Battle
	if b.PartySize < 1 || b.PartySize > 6 {
		errs = append(errs, fmt.Errorf("battle.party_size %d outside 1..6", b.PartySize))
	}
	if b.MinLevel < 1 || b.MaxLevel > pokemon.MaxLevel || b.MinLevel > b.MaxLevel {
		errs = append(errs, fmt.Errorf("battle levels %d..%d outside 1..%d", b.MinLevel, b.MaxLevel, pokemon.MaxLevel))
	}
	if b.TurnTimeout < 0 || b.Tick <= 0 || b.AIWait < 0 {
		errs = append(errs, errors.New("battle durations must not be negative and tick must be set"))
	}
	return errors.Join(errs...)
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// SeedOr returns the configured seed, or fallback when none is set.
func (b Battle) SeedOr(fallback uint64) uint64 {
	if b.Seed != 0 {
		return b.Seed
	}
	return fallback
}

func (b Battle) HostOptions() host.Options {
	return host.Options{TurnTimeout: b.TurnTimeout, Policy: b.TimeoutPolicy, Tick: b.Tick}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

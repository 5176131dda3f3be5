// Package config loads the server's tunable knobs from a JSON file, with
// environment-variable overrides for the values operators most commonly
// need to change per deployment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// RateLimit bounds how often a single peer address may attempt one kind of
// operation. PerSecond is the token refill rate, Burst is the token-bucket
// capacity.
type RateLimit struct {
	PerSecond float64 `json:"perSecond"`
	Burst     int     `json:"burst"`
}

type RateLimits struct {
	Connection RateLimit `json:"connection"`
	Auth       RateLimit `json:"auth"`
	Message    RateLimit `json:"message"`
}

// Config holds every recognized option from spec §6.3.
type Config struct {
	ListenAddr            string     `json:"listenAddr"`
	TickRate              int        `json:"tickRate"`
	DecisionTimeoutMs      int        `json:"decisionTimeoutMs"`
	MatchmakingIntervalMs int        `json:"matchmakingIntervalMs"`
	ConnectionStaleMs     int        `json:"connectionStaleMs"`
	RateLimits            RateLimits `json:"rateLimits"`
}

// Default returns the documented defaults for every knob.
func Default() *Config {
	return &Config{
		ListenAddr:            ":8080",
		TickRate:              60,
		DecisionTimeoutMs:      100,
		MatchmakingIntervalMs: 1000,
		ConnectionStaleMs:     30000,
		RateLimits: RateLimits{
			Connection: RateLimit{PerSecond: 1, Burst: 5},
			Auth:       RateLimit{PerSecond: 1, Burst: 3},
			Message:    RateLimit{PerSecond: 30, Burst: 60},
		},
	}
}

// Load reads a JSON config file at path, applying it on top of Default.
// A missing file is not an error — the defaults are returned, with the
// environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		applyEnv(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides the most commonly tuned knobs from the environment.
func applyEnv(cfg *Config) {
	if v := envOrOs("ARENA_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := envOrOs("ARENA_TICK_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TickRate = n
		}
	}
	if v := envOrOs("ARENA_DECISION_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DecisionTimeoutMs = n
		}
	}
}

func envOrOs(key string) string {
	return os.Getenv(key)
}

package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultConfig returns the limits used when no environment overrides exist.
// The default rule throttles operator commands; Rules cover the HTTP API.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultRule:     Rule{Limit: 5, Window: time.Minute, Burst: 2},
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		Rules:           DefaultRules(),
	}
}

// DefaultRules returns the per-endpoint limits of the operator HTTP API.
func DefaultRules() []Rule {
	return []Rule{
		// Lifecycle changes (strictest limits)
		{Path: "/monitor/start", Method: "POST", Limit: 10, Window: time.Minute, Burst: 2},
		{Path: "/monitor/stop", Method: "POST", Limit: 10, Window: time.Minute, Burst: 2},

		// Reads
		{Path: "/monitor/status", Method: "GET", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/deliveries", Method: "GET", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = getEnvBool("RATE_LIMIT_ENABLED", true)
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}

	cfg.DefaultRule.Limit = getEnvInt("RATE_LIMIT_COMMANDS", cfg.DefaultRule.Limit)
	cfg.DefaultRule.Window = getEnvDuration("RATE_LIMIT_WINDOW", cfg.DefaultRule.Window)
	cfg.DefaultRule.Burst = getEnvInt("RATE_LIMIT_BURST", cfg.DefaultRule.Burst)
	cfg.CleanupInterval = getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Whitelist = parseKeyList(os.Getenv("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = parseKeyList(os.Getenv("RATE_LIMIT_BLACKLIST"))
	return cfg
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseKeyList parses a comma-separated list of IPs or user ids into a set.
func parseKeyList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, key := range strings.Split(list, ",") {
		if key = strings.TrimSpace(key); key != "" {
			result[key] = true
		}
	}
	return result
}

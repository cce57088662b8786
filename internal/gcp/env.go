package gcp

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads an integer variable. Unparseable values fall back with a warning.
func GetEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		slog.Warn("Ignoring malformed integer environment variable.", "key", key, "value", raw, "error", err)
		return fallback
	}
	return v
}

// GetEnvFloat reads a float variable.
func GetEnvFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		slog.Warn("Ignoring malformed float environment variable.", "key", key, "value", raw, "error", err)
		return fallback
	}
	return v
}

// GetEnvBool reads a boolean variable ("true", "1", "yes" are true).
func GetEnvBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	slog.Warn("Ignoring malformed boolean environment variable.", "key", key, "value", raw)
	return fallback
}

// GetEnvDuration reads an integer count of unit from key, e.g.
// GetEnvDuration("SWEEP_INTERVAL_SECONDS", time.Second, 300).
func GetEnvDuration(key string, unit time.Duration, fallback int) time.Duration {
	return time.Duration(GetEnvInt(key, fallback)) * unit
}

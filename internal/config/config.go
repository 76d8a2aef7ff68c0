// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config collects the service's environment-driven settings.
type Config struct {
	Env         string // "dev" or "prod"
	Port        string // public HTTP/websocket port
	MetricsPort string // dedicated /metrics and /healthz port

	ScoreAPIBaseURL string
	FetchTimeout    time.Duration // bound on one score feed call
	SettleInterval  time.Duration // settlement loop cadence
}

// Load reads environment variables, applying defaults for anything unset.
func Load() Config {
	return Config{
		Env:             getEnv("SIDEBET_ENV", "dev"),
		Port:            getEnv("SIDEBET_PORT", "8080"),
		MetricsPort:     getEnv("SIDEBET_METRICS_PORT", "9090"),
		ScoreAPIBaseURL: getEnv("SIDEBET_SCORE_API_URL", "https://scores.example.com"),
		FetchTimeout:    getDuration("SIDEBET_FETCH_TIMEOUT", 15*time.Second),
		SettleInterval:  getDuration("SIDEBET_SETTLE_INTERVAL", 15*time.Second),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

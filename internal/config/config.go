package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServiceName    string
	DatabaseURL    string
	TemporalAddress string
	HTTPListenAddr string
	MetricsAddr    string
	LogLevel       string

	// Cloud provider API.
	CloudAPIURL   string
	CloudAPIToken string
	CloudRegion   string
	CloudImage    string

	// Remote host access.
	SSHUser        string
	SSHDialTimeout time.Duration

	// Provisioning poll loop. Explicit fields rather than package globals
	// so tests can inject short intervals.
	PollInterval    time.Duration
	PollMaxAttempts int

	// Certificate reconciliation sweep.
	ReconcileCron  string
	ReconcileDelay time.Duration
	DNSTimeout     time.Duration
	TLSTimeout     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:     getEnv("SERVICE_NAME", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		TemporalAddress: getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CloudAPIURL:     getEnv("CLOUD_API_URL", "https://api.cloud.example.com/v2"),
		CloudAPIToken:   getEnv("CLOUD_API_TOKEN", ""),
		CloudRegion:     getEnv("CLOUD_REGION", "fra1"),
		CloudImage:      getEnv("CLOUD_IMAGE", "ubuntu-24-04-x64"),
		SSHUser:         getEnv("SSH_USER", "root"),
		SSHDialTimeout:  getEnvDuration("SSH_DIAL_TIMEOUT", 20*time.Second),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 10*time.Second),
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 30),
		ReconcileCron:   getEnv("RECONCILE_CRON", "*/30 * * * *"),
		ReconcileDelay:  getEnvDuration("RECONCILE_DELAY", 2*time.Second),
		DNSTimeout:      getEnvDuration("DNS_TIMEOUT", 5*time.Second),
		TLSTimeout:      getEnvDuration("TLS_TIMEOUT", 10*time.Second),
	}

	return cfg, nil
}

// Validate checks that the fields required by the given role are set.
func (c *Config) Validate(role string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch role {
	case "worker":
		if c.CloudAPIToken == "" {
			return fmt.Errorf("CLOUD_API_TOKEN is required for the worker")
		}
	case "api":
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

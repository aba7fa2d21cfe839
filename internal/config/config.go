package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DatabaseURL is the Postgres DSN for the durable history store.
	DatabaseURL string
	// HistoryQueryLimit is the default row count for history queries.
	HistoryQueryLimit int

	// DeviceSecrets maps device identity to its shared HMAC secret.
	DeviceSecrets map[string]string

	// Kafka fan-out of accepted readings (feature-flagged via KAFKA_BROKERS).
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

const (
	defaultHistoryQueryLimit = 200
	maxHistoryQueryLimit     = 1000
)

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	historyLimit, err := parseHistoryQueryLimit()
	if err != nil {
		return nil, err
	}

	secrets, err := parseDeviceSecrets(os.Getenv("DEVICE_SECRETS"))
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabaseURL:       os.Getenv("DATABASE_URL"),
		HistoryQueryLimit: historyLimit,

		DeviceSecrets: secrets,

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "accepted-readings"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if len(cfg.DeviceSecrets) == 0 {
		return nil, errors.New("DEVICE_SECRETS is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func parseShutdownTimeout() (time.Duration, error) {
	s := envOrDefault("SHUTDOWN_TIMEOUT", "10s")
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	return d, nil
}

func parseHistoryQueryLimit() (int, error) {
	s := os.Getenv("HISTORY_QUERY_LIMIT")
	if s == "" {
		return defaultHistoryQueryLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > maxHistoryQueryLimit {
		return 0, fmt.Errorf("invalid HISTORY_QUERY_LIMIT (must be 1..%d)", maxHistoryQueryLimit)
	}
	return n, nil
}

// parseDeviceSecrets parses a "device:secret,device:secret" list. The table
// is static for the process lifetime; rotation means a restart.
func parseDeviceSecrets(s string) (map[string]string, error) {
	secrets := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return secrets, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("invalid DEVICE_SECRETS entry %q (want device:secret)", pair)
		}
		secrets[id] = secret
	}
	return secrets, nil
}

func parseBrokers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

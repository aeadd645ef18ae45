package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Default Digitraffic endpoints and identifiers.
const (
	DefaultBaseURL = "https://tie.digitraffic.fi"
	defaultUser    = "couchcryptid/traffic-entity-sync"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	APIBaseURL      string
	DigitrafficUser string
	ServicesFile    string
	CatalogFile     string
	PollInterval    time.Duration
	FetchTimeout    time.Duration
	ImageTimeout    time.Duration
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka entity-event sink configuration.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	pollInterval, err := envDuration("POLL_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	// A cycle must complete or time out before the next one starts, so the
	// message fetch needs a hard bound or a hung connection wedges the loop.
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	imageTimeout, err := envDuration("IMAGE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	brokers := splitList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		APIBaseURL:      envOrDefault("API_BASE_URL", DefaultBaseURL),
		DigitrafficUser: envOrDefault("DIGITRAFFIC_USER", defaultUser),
		ServicesFile:    envOrDefault("SERVICES_FILE", "services.yml"),
		CatalogFile:     envOrDefault("CATALOG_FILE", "data/weathercam_catalog.json"),
		PollInterval:    pollInterval,
		FetchTimeout:    fetchTimeout,
		ImageTimeout:    imageTimeout,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "entity-events"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if cfg.DigitrafficUser == "" {
		return nil, errors.New("DIGITRAFFIC_USER is required")
	}
	if cfg.ServicesFile == "" {
		return nil, errors.New("SERVICES_FILE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// envOrDefault returns the environment variable value or a fallback when unset.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration parses a positive duration from the environment.
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

// splitList splits a comma-separated list, trimming whitespace and dropping
// empty items.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

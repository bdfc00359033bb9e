package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Source selects where the raw sounding text comes from.
const (
	SourceHTTP = "http"
	SourceFile = "file"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Sounding source.
	Station        string
	Source         string // "http" or "file"
	SourceFile     string // raw feed path when Source == "file"
	KMABaseURL     string
	KMAAuthKey     string
	FetchInterval  time.Duration
	FetchTimeout   time.Duration
	FetchCacheSize int

	// Optional YAML station catalog used to label output.
	StationCatalog string

	// Result sink. Kafka is disabled when no brokers are configured;
	// analyses are then only served over HTTP and logged.
	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether a result sink is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	fetchInterval, err := parseDurationEnv("FETCH_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDurationEnv("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Station:        envOrDefault("STATION", "47102"),
		Source:         envOrDefault("SOURCE", SourceHTTP),
		SourceFile:     os.Getenv("SOURCE_FILE"),
		KMABaseURL:     envOrDefault("KMA_BASE_URL", "https://apihub.kma.go.kr/api/typ01/url"),
		KMAAuthKey:     os.Getenv("KMA_AUTH_KEY"),
		FetchInterval:  fetchInterval,
		FetchTimeout:   fetchTimeout,
		FetchCacheSize: parseFetchCacheSize(),

		StationCatalog: os.Getenv("STATION_CATALOG"),

		KafkaBrokers:   parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "sounding-analyses"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.Station == "" {
		return nil, errors.New("STATION is required")
	}
	switch cfg.Source {
	case SourceHTTP:
		if cfg.KMAAuthKey == "" {
			return nil, errors.New("KMA_AUTH_KEY is required when SOURCE is http")
		}
	case SourceFile:
		if cfg.SourceFile == "" {
			return nil, errors.New("SOURCE_FILE is required when SOURCE is file")
		}
	default:
		return nil, fmt.Errorf("invalid SOURCE %q (want %q or %q)", cfg.Source, SourceHTTP, SourceFile)
	}
	if cfg.FetchInterval <= 0 {
		return nil, errors.New("FETCH_INTERVAL must be positive")
	}
	if cfg.KafkaEnabled() && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := envOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

// parseBrokers splits a comma-separated broker list, dropping empties.
func parseBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseFetchCacheSize() int {
	if s := os.Getenv("FETCH_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 24
}

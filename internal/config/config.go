package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	defaultCasesURL  = "https://raw.githubusercontent.com/babdelfa/project/refs/heads/main/cases_data.csv"
	defaultDeathsURL = "https://raw.githubusercontent.com/babdelfa/project/refs/heads/main/deaths_data.csv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	CasesURL     string
	DeathsURL    string
	GeometryPath string
	FetchTimeout time.Duration
	ReportYears  []int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka publishing of computed report summaries.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSummaryTopic string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	years, err := parseYears(sharedcfg.EnvOrDefault("REPORT_YEARS", "2020,2021"))
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		CasesURL:        sharedcfg.EnvOrDefault("CASES_URL", defaultCasesURL),
		DeathsURL:       sharedcfg.EnvOrDefault("DEATHS_URL", defaultDeathsURL),
		GeometryPath:    sharedcfg.EnvOrDefault("GEOMETRY_PATH", "counties_geometry.zip"),
		FetchTimeout:    fetchTimeout,
		ReportYears:     years,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:      os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "covid-state-summaries"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.CasesURL == "" {
		return nil, errors.New("CASES_URL is required")
	}
	if cfg.DeathsURL == "" {
		return nil, errors.New("DEATHS_URL is required")
	}
	if cfg.GeometryPath == "" {
		return nil, errors.New("GEOMETRY_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSummaryTopic == "" {
		return nil, errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil || y < 1900 || y > 2100 {
			return nil, fmt.Errorf("invalid REPORT_YEARS entry %q", part)
		}
		years = append(years, y)
	}
	if len(years) == 0 {
		return nil, errors.New("REPORT_YEARS is required")
	}
	return years, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 100
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultDataURL is the Levitt lab mirror of the JHU case data.
const DefaultDataURL = "https://levitt-covid19-data.s3-us-west-1.amazonaws.com/Data_COVID-19.csv"

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataURL        string
	DataDateFormat string
	PopulationURL  string
	FetchTimeout   time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Series reshaping.
	SmoothFraction float64
	MatchPolicy    domain.MatchPolicy
	UnknownRegion  domain.UnknownRegionPolicy

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// MapboxNegativeTTL bounds how long failed or empty lookups are remembered.
	MapboxNegativeTTL time.Duration

	// Snapshot export configuration.
	KafkaBrokers    []string
	SnapshotTopic   string
	SnapshotEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxNegativeTTL, err := parsePositiveDuration("MAPBOX_NEGATIVE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	smoothFraction, err := parseSmoothFraction()
	if err != nil {
		return nil, err
	}

	matchPolicy, err := domain.ParseMatchPolicy(os.Getenv("MATCH_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("invalid MATCH_POLICY: %w", err)
	}

	unknownRegion, err := domain.ParseUnknownRegionPolicy(os.Getenv("UNKNOWN_REGION"))
	if err != nil {
		return nil, fmt.Errorf("invalid UNKNOWN_REGION: %w", err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		DataURL:         sharedcfg.EnvOrDefault("DATA_URL", DefaultDataURL),
		DataDateFormat:  sharedcfg.EnvOrDefault("DATA_DATE_FORMAT", "02-01-2006"),
		PopulationURL:   os.Getenv("POPULATION_URL"),
		FetchTimeout:    fetchTimeout,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SmoothFraction: smoothFraction,
		MatchPolicy:    matchPolicy,
		UnknownRegion:  unknownRegion,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		MapboxNegativeTTL: mapboxNegativeTTL,

		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		SnapshotTopic:   sharedcfg.EnvOrDefault("SNAPSHOT_TOPIC", "covid-series-snapshots"),
		SnapshotEnabled: os.Getenv("SNAPSHOT_ENABLED") == "true",
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.SnapshotEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("SNAPSHOT_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseSmoothFraction() (float64, error) {
	s := os.Getenv("SMOOTH_FRACTION")
	if s == "" {
		return domain.DefaultSmoothFraction, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > 1 {
		return 0, errors.New("invalid SMOOTH_FRACTION: must be in (0, 1]")
	}
	return f, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

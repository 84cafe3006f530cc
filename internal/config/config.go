package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// ScheduleOff disables the periodic data validation.
const ScheduleOff = "off"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DataDir          string
	BaselineYear     int
	TargetYear       int
	ValidateSchedule string

	// Increase alert publishing.
	AlertsEnabled   bool
	KafkaBrokers    []string
	KafkaAlertTopic string

	TracingEnabled  bool
	TracingEndpoint string
}

// LoadDotEnv merges KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	baseline, err := parseYear("INCREASE_BASELINE_YEAR", "2024")
	if err != nil {
		return nil, err
	}
	target, err := parseYear("INCREASE_TARGET_YEAR", "2025")
	if err != nil {
		return nil, err
	}
	if baseline >= target {
		return nil, errors.New("INCREASE_BASELINE_YEAR must be before INCREASE_TARGET_YEAR")
	}

	schedule := sharedcfg.EnvOrDefault("VALIDATE_SCHEDULE", "@every 5m")
	if schedule != ScheduleOff {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid VALIDATE_SCHEDULE: %w", err)
		}
	}

	tracingEnabled, err := parseBool("TRACING_ENABLED", false)
	if err != nil {
		return nil, err
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	alertsEnabled, err := parseBool("ALERTS_ENABLED", brokers != "")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:          sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		BaselineYear:     baseline,
		TargetYear:       target,
		ValidateSchedule: schedule,

		AlertsEnabled:   alertsEnabled,
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "drug-kpi-alerts"),

		TracingEnabled:  tracingEnabled,
		TracingEndpoint: sharedcfg.EnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}
	if brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if cfg.AlertsEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("ALERTS_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.AlertsEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}

	return cfg, nil
}

func parseYear(key, def string) (int, error) {
	y, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return y, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

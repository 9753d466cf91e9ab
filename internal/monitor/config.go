// Package monitor holds the tuning configuration shared by the
// accumulator and the alert processor.
package monitor

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ThresholdDefault seeds a sensor threshold on first boot.
type ThresholdDefault struct {
	Upper float64 `yaml:"upper"`
	Lower float64 `yaml:"lower"`
	Unit  string  `yaml:"unit"`
}

// Config defines monitor tuning. Values come from a yaml file pointed
// at by MONITOR_CONFIG, with env fallbacks for the common knobs.
type Config struct {
	// IncrementMinutes is added to the daily counter per accepted
	// status poll.
	IncrementMinutes int `yaml:"increment_minutes"`
	// IdleThreshold is how stale the latest reading may be before the
	// engine is considered inactive.
	IdleThreshold Duration `yaml:"idle_threshold"`
	// AlertInterval is the alert processor cycle period.
	AlertInterval Duration `yaml:"alert_interval"`
	// CacheTTL bounds the latest-reading cache entry lifetime.
	CacheTTL Duration `yaml:"cache_ttl"`

	WebhookURL string `yaml:"webhook_url"`

	Thresholds map[string]ThresholdDefault `yaml:"thresholds"`
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		IncrementMinutes: getenvIntDefault("ACTIVITY_INCREMENT_MINUTES", 10),
		IdleThreshold:    Duration(getenvDuration("ACTIVITY_IDLE_THRESHOLD", 10*time.Minute+30*time.Second)),
		AlertInterval:    Duration(getenvDuration("ALERT_INTERVAL", time.Minute)),
		CacheTTL:         Duration(getenvDuration("READING_CACHE_TTL", 30*time.Second)),
		WebhookURL:       os.Getenv("ALERT_WEBHOOK_URL"),
	}

	if path := os.Getenv("MONITOR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.IncrementMinutes <= 0 {
		return cfg, errors.New("monitor: increment_minutes must be positive")
	}
	if cfg.IdleThreshold <= 0 {
		return cfg, errors.New("monitor: idle_threshold must be positive")
	}
	if cfg.AlertInterval <= 0 {
		return cfg, errors.New("monitor: alert_interval must be positive")
	}
	return cfg, nil
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

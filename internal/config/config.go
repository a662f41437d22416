package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// MQTTConfig describes the broker telemetry is published to.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	ClientID string `yaml:"client_id"`
	// TopicPrefix is prepended to every topic, e.g. "rtc/ds3231".
	TopicPrefix string `yaml:"topic_prefix"`
}

// TelemetryConfig controls the periodic state snapshot.
type TelemetryConfig struct {
	// Schedule is a cron expression or descriptor such as "@every 1m".
	Schedule string `yaml:"schedule"`
	// ClearAlarms clears fired alarm flags once they have been published.
	ClearAlarms bool `yaml:"clear_alarms"`
}

// Config is the top-level rtcctl configuration.
type Config struct {
	// Bus is the periph.io name of the I2C bus, e.g. "/dev/i2c-1" or "1".
	// Empty selects the first bus found.
	Bus string `yaml:"bus"`

	// Address is the 7-bit I2C address of the RTC.
	Address uint8 `yaml:"address"`

	// SpeedHz, if non-zero, sets the bus clock.
	SpeedHz int64 `yaml:"speed_hz"`

	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`

	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

const (
	defaultAddress     = 0x68
	defaultLogLevel    = "info"
	defaultClientID    = "rtcctl"
	defaultTopicPrefix = "rtc/ds3231"
	defaultSchedule    = "@every 1m"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:  defaultAddress,
		LogLevel: defaultLogLevel,
		MQTT: MQTTConfig{
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    defaultClientID,
			TopicPrefix: defaultTopicPrefix,
		},
		Telemetry: TelemetryConfig{
			Schedule: defaultSchedule,
		},
	}
}

// Normalize fills in missing values so partially filled files still work.
func (c *Config) Normalize() {
	if c.Address == 0 {
		c.Address = defaultAddress
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = defaultClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = defaultTopicPrefix
	}
	if c.Telemetry.Schedule == "" {
		c.Telemetry.Schedule = defaultSchedule
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Address < 0x08 || c.Address > 0x77 {
		return fmt.Errorf("config: address 0x%02X is not a 7-bit I2C address", c.Address)
	}
	if c.SpeedHz < 0 {
		return fmt.Errorf("config: negative bus speed %d", c.SpeedHz)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("config: mqtt enabled without a broker")
	}
	if _, err := cron.ParseStandard(c.Telemetry.Schedule); err != nil {
		return fmt.Errorf("config: bad telemetry schedule %q: %w", c.Telemetry.Schedule, err)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist a default config is written there and
// returned. Otherwise the file is read, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// caller decides whether running without a saved file is fine
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path atomically through a temp file and rename. The
// file ends up with 0600 permissions since it may hold broker credentials.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".rtcctl-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Log     LogConfig     `yaml:"log"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	History HistoryConfig `yaml:"history"`
	Monitor MonitorConfig `yaml:"monitor"`
	Mock    MockConfig    `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port       string `yaml:"port"`
	Baud       int    `yaml:"baud"`
	AutoDetect bool   `yaml:"auto_detect"` // Pick the first Arduino-looking port when Port is unavailable
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// BridgeConfig contains the web bridge configuration.
type BridgeConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	HistoryLimit    int           `yaml:"history_limit"` // Rows returned by /api/history
}

// HistoryConfig contains the reading log configuration.
type HistoryConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"` // 0 keeps everything
}

// MonitorConfig contains monitor window parameters.
type MonitorConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"`
	Smoothing     int     `yaml:"smoothing"` // Moving average length (0 or 1 = disabled)
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Period    time.Duration `yaml:"period"`     // Control loop period of the simulated board
	DayLength time.Duration `yaml:"day_length"` // Length of one simulated day
	Base      float64       `yaml:"base"`       // Mean light level (%)
	Amplitude float64       `yaml:"amplitude"`  // Day/night swing (%)
	Noise     float64       `yaml:"noise"`      // Noise level (%)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:       "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			Baud:       9600,
			AutoDetect: true,
		},
		Log: LogConfig{
			Level:  "info",
			Colors: true,
		},
		Bridge: BridgeConfig{
			Listen:          ":3000",
			ShutdownTimeout: 5 * time.Second,
			HistoryLimit:    200,
		},
		History: HistoryConfig{
			Enabled:   false,
			Path:      "plantguard.db",
			Retention: 7 * 24 * time.Hour,
		},
		Monitor: MonitorConfig{
			WindowSeconds: 300,
			Smoothing:     0,
		},
		Mock: MockConfig{
			Period:    500 * time.Millisecond,
			DayLength: 2 * time.Minute,
			Base:      50,
			Amplitude: 55,
			Noise:     2,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.Bridge.Listen == "" {
		c.Bridge.Listen = def.Bridge.Listen
	}
	if c.Bridge.ShutdownTimeout == 0 {
		c.Bridge.ShutdownTimeout = def.Bridge.ShutdownTimeout
	}
	if c.Bridge.HistoryLimit == 0 {
		c.Bridge.HistoryLimit = def.Bridge.HistoryLimit
	}

	if c.History.Path == "" {
		c.History.Path = def.History.Path
	}

	if c.Monitor.WindowSeconds == 0 {
		c.Monitor.WindowSeconds = def.Monitor.WindowSeconds
	}

	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.DayLength == 0 {
		c.Mock.DayLength = def.Mock.DayLength
	}
}

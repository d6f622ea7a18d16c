package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"openinghours/internal/clock"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// TimeFormat is 12 or 24 and drives how times are displayed and parsed.
	TimeFormat int `yaml:"time_format"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	HTTP struct {
		Port               int     `yaml:"port"`
		WriteRatePerSecond float64 `yaml:"write_rate_per_second"`
		WriteBurst         int     `yaml:"write_burst"`
	} `yaml:"http"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	PremisesConfigPath string `yaml:"premises_config_path"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if _, err := cfg.Format(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TimeFormat == 0 {
		c.TimeFormat = int(clock.Format12)
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/openinghours.db"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "backups"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 14
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.PremisesConfigPath == "" {
		c.PremisesConfigPath = "configs/premises.yaml"
	}
}

// Format returns the configured display format.
func (c *Config) Format() (clock.Format, error) {
	return clock.ParseFormat(c.TimeFormat)
}

// CacheTTL is zero when schedule caching is disabled.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.Address == "" || c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// LoadPremises reads the premises catalogue referenced by the config.
func (c *Config) LoadPremises() (*PremisesCatalog, error) {
	return LoadPremisesCatalog(c.PremisesConfigPath)
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Stats    StatsConfig    `yaml:"stats"`
	Exporter ExporterConfig `yaml:"exporter"`
}

// HTTPConfig represents HTTP server configuration
type HTTPConfig struct {
	Port int `yaml:"port"`
	// MaxBodyBytes bounds an uploaded capture
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// StorageConfig represents storage backend configuration
type StorageConfig struct {
	Type  string        `yaml:"type"` // "memory" or "redis"
	TTL   time.Duration `yaml:"ttl"`  // how long a session's captures are kept, default 1h
	Redis *RedisConfig  `yaml:"redis,omitempty"`
}

// RedisConfig represents Redis connection configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// StatsConfig controls which stat types are classified
type StatsConfig struct {
	// SelectedStats is the stat type allow-list. Unset keeps every type and
	// the session descriptors; an explicit empty list keeps every type only.
	SelectedStats []string `yaml:"selected_stats"`
}

// ExporterConfig represents the Prometheus exporter configuration
type ExporterConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Load loads configuration from file or environment variables
// Priority: config file → environment variables
func Load(configPath string) (*Config, error) {
	var cfg Config

	// Try to load from file first
	if configPath != "" {
		if err := loadFromFile(configPath, &cfg); err != nil {
			// If file doesn't exist, continue to env vars
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Apply environment variable overrides
	if err := loadFromEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set defaults
	cfg.setDefaults()

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables with RTCQOS_ prefix
func loadFromEnv(cfg *Config) error {
	// HTTP port
	if port := os.Getenv("RTCQOS_HTTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid RTCQOS_HTTP_PORT: %w", err)
		}
		cfg.HTTP.Port = p
	}

	if maxBody := os.Getenv("RTCQOS_HTTP_MAX_BODY_BYTES"); maxBody != "" {
		n, err := strconv.ParseInt(maxBody, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RTCQOS_HTTP_MAX_BODY_BYTES: %w", err)
		}
		cfg.HTTP.MaxBodyBytes = n
	}

	// Logging level
	if level := os.Getenv("RTCQOS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	// Logging format
	if format := os.Getenv("RTCQOS_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Stats allow-list, comma separated
	// Format: RTCQOS_SELECTED_STATS='candidate-pair,inbound-rtp'
	if selected, ok := os.LookupEnv("RTCQOS_SELECTED_STATS"); ok {
		cfg.Stats.SelectedStats = []string{}
		for _, t := range strings.Split(selected, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.Stats.SelectedStats = append(cfg.Stats.SelectedStats, t)
			}
		}
	}

	// Exporter
	if enabled := os.Getenv("RTCQOS_EXPORTER_ENABLED"); enabled != "" {
		cfg.Exporter.Enabled = enabled == "true"
	}

	if namespace := os.Getenv("RTCQOS_EXPORTER_NAMESPACE"); namespace != "" {
		cfg.Exporter.Namespace = namespace
	}

	// Storage type
	if storageType := os.Getenv("RTCQOS_STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}

	if ttl := os.Getenv("RTCQOS_STORAGE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid RTCQOS_STORAGE_TTL: %w", err)
		}
		cfg.Storage.TTL = d
	}

	// Redis configuration
	if redisHost := os.Getenv("RTCQOS_REDIS_HOST"); redisHost != "" {
		if cfg.Storage.Redis == nil {
			cfg.Storage.Redis = &RedisConfig{}
		}
		cfg.Storage.Redis.Host = redisHost
	}

	if redisPort := os.Getenv("RTCQOS_REDIS_PORT"); redisPort != "" {
		if cfg.Storage.Redis == nil {
			cfg.Storage.Redis = &RedisConfig{}
		}
		p, err := strconv.Atoi(redisPort)
		if err != nil {
			return fmt.Errorf("invalid RTCQOS_REDIS_PORT: %w", err)
		}
		cfg.Storage.Redis.Port = p
	}

	if redisPassword := os.Getenv("RTCQOS_REDIS_PASSWORD"); redisPassword != "" {
		if cfg.Storage.Redis == nil {
			cfg.Storage.Redis = &RedisConfig{}
		}
		cfg.Storage.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("RTCQOS_REDIS_DB"); redisDB != "" {
		if cfg.Storage.Redis == nil {
			cfg.Storage.Redis = &RedisConfig{}
		}
		db, err := strconv.Atoi(redisDB)
		if err != nil {
			return fmt.Errorf("invalid RTCQOS_REDIS_DB: %w", err)
		}
		cfg.Storage.Redis.DB = db
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate HTTP port
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port %d", c.HTTP.Port)
	}

	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must not be negative")
	}

	// Validate storage type
	if c.Storage.Type != "" && c.Storage.Type != "memory" && c.Storage.Type != "redis" {
		return fmt.Errorf("storage type must be 'memory' or 'redis', got '%s'", c.Storage.Type)
	}

	if c.Storage.TTL < 0 {
		return fmt.Errorf("storage ttl must not be negative")
	}

	// Validate Redis config if type is redis
	if c.Storage.Type == "redis" {
		if c.Storage.Redis == nil {
			return fmt.Errorf("Redis configuration is required when storage type is 'redis'")
		}
		if c.Storage.Redis.Host == "" {
			return fmt.Errorf("Redis host is required")
		}
		if c.Storage.Redis.Port <= 0 || c.Storage.Redis.Port > 65535 {
			return fmt.Errorf("invalid Redis port %d", c.Storage.Redis.Port)
		}
	}

	// Validate logging level
	if c.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[c.Logging.Level] {
			return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
		}
	}

	// Validate logging format
	if c.Logging.Format != "" {
		if c.Logging.Format != "json" && c.Logging.Format != "text" {
			return fmt.Errorf("invalid log format '%s', must be 'json' or 'text'", c.Logging.Format)
		}
	}

	// Validate stats allow-list
	for i, t := range c.Stats.SelectedStats {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("selected_stats entry %d is empty", i)
		}
	}

	return nil
}

// setDefaults sets default values for optional fields
func (c *Config) setDefaults() {
	// Default HTTP port
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}

	// Default upload limit, 32 MiB
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = 32 << 20
	}

	// Default logging level
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	// Default logging format
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	// Default storage type
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}

	// Default session TTL
	if c.Storage.TTL == 0 {
		c.Storage.TTL = time.Hour
	}

	// Default exporter namespace
	if c.Exporter.Namespace == "" {
		c.Exporter.Namespace = "rtcqos"
	}
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads and parses the configuration file. A missing file is not an
// error: defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env is optional, same as the environment itself
	_ = godotenv.Load()

	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides database settings from MYSQL_* variables
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvMySQLHost); v != "" {
		cfg.Database.Host = v
	}
	if v := getenv(EnvMySQLPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMySQLPort, err)
		}
		cfg.Database.Port = port
	}
	if v := getenv(EnvMySQLUser); v != "" {
		cfg.Database.User = v
	}
	if v := getenv(EnvMySQLPassword); v != "" {
		cfg.Database.Password = v
	}
	if v := getenv(EnvMySQLDBName); v != "" {
		cfg.Database.Name = v
	}
	return nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Cache.Enabled == nil {
		enabled := DefaultCacheEnabled
		cfg.Cache.Enabled = &enabled
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = DefaultCacheSize
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDatabaseHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDatabasePort
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultMaxIdleConns
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if err := validatePort("port", cfg.Port, false); err != nil {
		return err
	}
	if err := validatePort("wsPort", cfg.WSPort, true); err != nil {
		return err
	}
	if err := validatePort("metricsPort", cfg.MetricsPort, true); err != nil {
		return err
	}
	if cfg.WSPort != 0 && cfg.WSPort == cfg.Port {
		return errors.New("wsPort must differ from port")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if err := validateMetricsPorts(cfg); err != nil {
		return err
	}

	if cfg.MaxBodySize < 0 {
		return fmt.Errorf("maxBodySize must be non-negative")
	}

	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdownTimeout must be non-negative")
	}

	if cfg.IsCacheEnabled() {
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when cache is enabled")
		}
		if cfg.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive when cache is enabled")
		}
	}

	if cfg.Database.Name == "" {
		return fmt.Errorf("database.name is required (or set %s)", EnvMySQLDBName)
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database.user is required (or set %s)", EnvMySQLUser)
	}
	if err := validatePort("database.port", cfg.Database.Port, false); err != nil {
		return err
	}
	if cfg.Database.MaxOpenConns < 0 || cfg.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must be non-negative")
	}

	return nil
}

// validateMetricsPorts checks the range metricsPort..metricsPort+workers
// used by the supervisor and every worker slot
func validateMetricsPorts(cfg *Config) error {
	if !cfg.IsMetricsEnabled() {
		return nil
	}

	first := cfg.MetricsPort
	last := cfg.GetWorkerMetricsPort(cfg.GetWorkerCount() - 1)
	if last > 65535 {
		return fmt.Errorf("metrics ports %d-%d exceed 65535", first, last)
	}

	ports := []struct {
		name string
		port int
	}{
		{"port", cfg.Port},
		{"wsPort", cfg.WSPort},
	}
	for _, p := range ports {
		if p.port != 0 && p.port >= first && p.port <= last {
			return fmt.Errorf("%s %d overlaps metrics ports %d-%d", p.name, p.port, first, last)
		}
	}
	return nil
}

func validatePort(name string, port int, optional bool) error {
	if optional && port == 0 {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535", name)
	}
	return nil
}

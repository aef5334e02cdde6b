package config

import (
	"runtime"
	"time"
)

// Config represents the main configuration structure
type Config struct {
	Host            string         `json:"host"`
	Port            int            `json:"port"`
	WSPort          int            `json:"wsPort"`      // 0 disables the WebSocket tunnel
	MetricsPort     int            `json:"metricsPort"` // 0 disables /metrics
	LogLevel        string         `json:"logLevel"`
	Workers         int            `json:"workers"` // 0 means one per CPU
	MaxBodySize     int64          `json:"maxBodySize"`
	ShutdownTimeout int            `json:"shutdownTimeout"` // ms
	Cache           CacheConfig    `json:"cache"`
	Database        DatabaseConfig `json:"database"`
}

// CacheConfig represents response cache configuration
type CacheConfig struct {
	Enabled       *bool `json:"enabled,omitempty"`
	TTL           int   `json:"ttl"`           // seconds
	Size          int   `json:"size"`          // max number of entries
	SweepInterval int   `json:"sweepInterval"` // ms; 0 = ttl/2, negative = lazy expiry only
}

// DatabaseConfig represents the MySQL connection settings
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	MaxOpenConns int    `json:"maxOpenConns"`
	MaxIdleConns int    `json:"maxIdleConns"`
	Migrate      bool   `json:"migrate"` // apply schema before workers start
}

// Default values
const (
	DefaultHost            = "::"
	DefaultPort            = 3030
	DefaultLogLevel        = "info"
	DefaultMaxBodySize     = int64(1 << 20)
	DefaultShutdownTimeout = 30000 // ms
	DefaultCacheEnabled    = true
	DefaultCacheTTL        = 15 // seconds
	DefaultCacheSize       = 100000
	DefaultDatabaseHost    = "localhost"
	DefaultDatabasePort    = 3306
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 10
)

// Environment variables read on top of the config file
const (
	EnvMySQLHost     = "MYSQL_HOST"
	EnvMySQLPort     = "MYSQL_PORT"
	EnvMySQLUser     = "MYSQL_USER"
	EnvMySQLPassword = "MYSQL_PASSWORD"
	EnvMySQLDBName   = "MYSQL_DBNAME"
)

// GetShutdownTimeoutDuration returns shutdown timeout as time.Duration
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Millisecond
}

// GetWorkerCount returns the number of worker processes to run
func (c *Config) GetWorkerCount() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// IsCacheEnabled returns true unless the cache was explicitly disabled
func (c *Config) IsCacheEnabled() bool {
	if c.Cache.Enabled == nil {
		return DefaultCacheEnabled
	}
	return *c.Cache.Enabled
}

// IsWSEnabled returns true if the WebSocket tunnel has a port
func (c *Config) IsWSEnabled() bool {
	return c.WSPort > 0
}

// GetWorkerMetricsPort returns the metrics port of a worker slot. The
// supervisor serves on MetricsPort itself.
func (c *Config) GetWorkerMetricsPort(slot int) int {
	return c.MetricsPort + 1 + slot
}

// IsMetricsEnabled returns true if metrics endpoints should be served
func (c *Config) IsMetricsEnabled() bool {
	return c.MetricsPort > 0
}

// GetTTLDuration returns cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// GetSweepIntervalDuration returns the expired-entry sweep interval.
// Zero means sweeping is disabled.
func (c *CacheConfig) GetSweepIntervalDuration() time.Duration {
	switch {
	case c.SweepInterval < 0:
		return 0
	case c.SweepInterval == 0:
		return c.GetTTLDuration() / 2
	default:
		return time.Duration(c.SweepInterval) * time.Millisecond
	}
}

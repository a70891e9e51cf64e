// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Address         string   `mapstructure:"address"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	InternalToken   string   `mapstructure:"internal_token"`
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // seconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds JWT settings for the read-side API.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotificationConfig holds every tunable of the dispatch pipeline.
type NotificationConfig struct {
	ScanInterval        int    `mapstructure:"scan_interval"`         // seconds
	ScanBatchSize       int    `mapstructure:"scan_batch_size"`       // events per tick
	LockKey             string `mapstructure:"lock_key"`              // shared advisory lease key
	LockTTL             int    `mapstructure:"lock_ttl"`              // seconds
	BackoffBase         int    `mapstructure:"backoff_base"`          // seconds
	BackoffCeiling      int    `mapstructure:"backoff_ceiling"`       // seconds
	ErrorCap            int    `mapstructure:"error_cap"`             // runes kept of last_error
	StaleClaimTimeout   int    `mapstructure:"stale_claim_timeout"`   // seconds before a PROCESSING claim is reclaimable
	HeartbeatInterval   int    `mapstructure:"heartbeat_interval"`    // seconds between stream pings
	DispatchConcurrency int    `mapstructure:"dispatch_concurrency"`  // max in-flight dispatches
	DefaultPageSize     int    `mapstructure:"default_page_size"`
	MaxPageSize         int    `mapstructure:"max_page_size"`
}

func (n NotificationConfig) ScanIntervalDuration() time.Duration {
	return time.Duration(n.ScanInterval) * time.Second
}

func (n NotificationConfig) LockTTLDuration() time.Duration {
	return time.Duration(n.LockTTL) * time.Second
}

func (n NotificationConfig) BackoffBaseDuration() time.Duration {
	return time.Duration(n.BackoffBase) * time.Second
}

func (n NotificationConfig) BackoffCeilingDuration() time.Duration {
	return time.Duration(n.BackoffCeiling) * time.Second
}

func (n NotificationConfig) StaleClaimDuration() time.Duration {
	return time.Duration(n.StaleClaimTimeout) * time.Second
}

func (n NotificationConfig) HeartbeatDuration() time.Duration {
	return time.Duration(n.HeartbeatInterval) * time.Second
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/casse/internal/approvals"
	"github.com/JaimeStill/casse/pkg/cache"
	"github.com/JaimeStill/casse/pkg/database"
	"github.com/JaimeStill/casse/pkg/logging"
	"github.com/JaimeStill/casse/pkg/mail"
	"github.com/JaimeStill/casse/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCasseEnv             = "CASSE_ENV"
	EnvCasseShutdownTimeout = "CASSE_SHUTDOWN_TIMEOUT"
	EnvCasseVersion         = "CASSE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "CASSE_DB_HOST",
	Port:            "CASSE_DB_PORT",
	Name:            "CASSE_DB_NAME",
	User:            "CASSE_DB_USER",
	Password:        "CASSE_DB_PASSWORD",
	SSLMode:         "CASSE_DB_SSL_MODE",
	MaxOpenConns:    "CASSE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CASSE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CASSE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CASSE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "CASSE_STORAGE_PROVIDER",
	Bucket:           "CASSE_STORAGE_BUCKET",
	Endpoint:         "CASSE_STORAGE_ENDPOINT",
	Region:           "CASSE_STORAGE_REGION",
	AccessKey:        "CASSE_STORAGE_ACCESS_KEY",
	SecretKey:        "CASSE_STORAGE_SECRET_KEY",
	PathStyle:        "CASSE_STORAGE_PATH_STYLE",
	ConnectionString: "CASSE_STORAGE_CONNECTION_STRING",
	AccountURL:       "CASSE_STORAGE_ACCOUNT_URL",
	MaxListSize:      "CASSE_STORAGE_MAX_LIST_SIZE",
}

var cacheEnv = &cache.Env{
	Addr:         "CASSE_REDIS_ADDR",
	Password:     "CASSE_REDIS_PASSWORD",
	DB:           "CASSE_REDIS_DB",
	PoolSize:     "CASSE_REDIS_POOL_SIZE",
	MinIdleConns: "CASSE_REDIS_MIN_IDLE_CONNS",
	MaxRetries:   "CASSE_REDIS_MAX_RETRIES",
	ConnTimeout:  "CASSE_REDIS_CONN_TIMEOUT",
}

var mailEnv = &mail.Env{
	Host:     "CASSE_MAIL_HOST",
	Port:     "CASSE_MAIL_PORT",
	Username: "CASSE_MAIL_USERNAME",
	Password: "CASSE_MAIL_PASSWORD",
	From:     "CASSE_MAIL_FROM",
	TLS:      "CASSE_MAIL_TLS",
}

var loggingEnv = &logging.Env{
	Level:  "CASSE_LOG_LEVEL",
	Format: "CASSE_LOG_FORMAT",
}

var approvalsEnv = &approvals.Env{
	PendingTTL:  "CASSE_APPROVALS_PENDING_TTL",
	DecisionTTL: "CASSE_APPROVALS_DECISION_TTL",
	Approvers:   "CASSE_APPROVALS_APPROVERS",
	BaseURL:     "CASSE_APPROVALS_BASE_URL",
	LinkSecret:  "CASSE_APPROVALS_LINK_SECRET",
}

// Config is the root configuration for the casse service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	Cache           cache.Config     `toml:"cache"`
	Mail            mail.Config      `toml:"mail"`
	Logging         logging.Config   `toml:"logging"`
	API             APIConfig        `toml:"api"`
	Approvals       approvals.Config `toml:"approvals"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the CASSE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCasseEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.Mail.Merge(&overlay.Mail)
	c.Logging.Merge(&overlay.Logging)
	c.API.Merge(&overlay.API)
	c.Approvals.Merge(&overlay.Approvals)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Mail.Finalize(mailEnv); err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	if err := c.Logging.Finalize(loggingEnv); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Approvals.Finalize(approvalsEnv); err != nil {
		return fmt.Errorf("approvals: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvCasseShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvCasseVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvCasseEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

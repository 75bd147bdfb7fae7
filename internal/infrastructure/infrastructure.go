// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, cache, mail, metrics)
// that domain systems require.
package infrastructure

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JaimeStill/casse/internal/config"
	"github.com/JaimeStill/casse/pkg/cache"
	"github.com/JaimeStill/casse/pkg/database"
	"github.com/JaimeStill/casse/pkg/lifecycle"
	"github.com/JaimeStill/casse/pkg/logging"
	"github.com/JaimeStill/casse/pkg/mail"
	"github.com/JaimeStill/casse/pkg/metrics"
	"github.com/JaimeStill/casse/pkg/storage"
)

// ServiceName tags every log line emitted by the process.
const ServiceName = "casse"

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *zap.Logger
	Database  database.System
	Storage   storage.System
	Cache     cache.System
	Mail      mail.Sender
	Metrics   *metrics.Metrics
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger, err := logging.New(&cfg.Logging, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}

	return NewWithLogger(cfg, logger)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *zap.Logger) (*Infrastructure, error) {
	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(logger),
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Cache:     cache.New(&cfg.Cache, logger),
		Mail:      mail.New(&cfg.Mail, logger),
		Metrics:   metrics.New(),
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Cache.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("cache start failed: %w", err)
	}
	return nil
}

package infrastructure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JaimeStill/casse/internal/config"
	"github.com/JaimeStill/casse/internal/infrastructure"
	"github.com/JaimeStill/casse/pkg/cache"
	"github.com/JaimeStill/casse/pkg/database"
	"github.com/JaimeStill/casse/pkg/logging"
	"github.com/JaimeStill/casse/pkg/mail"
	"github.com/JaimeStill/casse/pkg/storage"
)

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "casse",
			User:            "casse",
			Password:        "casse",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			Provider: storage.ProviderMemory,
			Bucket:   "casse",
		},
		Cache: cache.Config{
			Addr:        "localhost:6379",
			PoolSize:    10,
			ConnTimeout: "5s",
		},
		Mail:    mail.Config{Port: 587, TLS: mail.TLSOpportunistic},
		Logging: logging.Config{Level: "info", Format: "json"},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	require.NoError(t, err)

	assert.NotNil(t, infra.Lifecycle)
	assert.NotNil(t, infra.Logger)
	assert.NotNil(t, infra.Database)
	assert.NotNil(t, infra.Storage)
	assert.NotNil(t, infra.Cache)
	assert.NotNil(t, infra.Metrics)
	assert.IsType(t, &mail.LogSender{}, infra.Mail, "no smtp host falls back to logging")

	require.NoError(t, infra.Database.Connection().Close())
}

func TestNewInvalidLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "loud"

	_, err := infrastructure.New(cfg)
	assert.Error(t, err)
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = storage.Config{
		Provider:         storage.ProviderAzure,
		Bucket:           "casse",
		ConnectionString: "not-a-connection-string",
	}

	_, err := infrastructure.NewWithLogger(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage init failed")
}

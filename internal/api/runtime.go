package api

import (
	"go.uber.org/zap"

	"github.com/JaimeStill/casse/internal/config"
	"github.com/JaimeStill/casse/internal/infrastructure"
	"github.com/JaimeStill/casse/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With(zap.String("module", "api"))

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
	}
}

// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/casse/internal/config"
	"github.com/JaimeStill/casse/internal/infrastructure"
	"github.com/JaimeStill/casse/pkg/handlers"
	"github.com/JaimeStill/casse/pkg/middleware"
	"github.com/JaimeStill/casse/pkg/module"
)

var errMissingOwner = errors.New("missing " + handlers.OwnerHeader + " header")

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Metrics(runtime.Metrics))

	return m, nil
}

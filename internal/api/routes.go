package api

import (
	"net/http"

	"github.com/JaimeStill/casse/internal/config"
	"github.com/JaimeStill/casse/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	audio := newAudioHandler(runtime.Storage, runtime.Logger)

	routes.Register(
		mux,
		domain.Approvals.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Catalog.Handler().Routes(),
		audio.routes(),
	)
}

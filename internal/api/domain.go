package api

import (
	"github.com/JaimeStill/casse/internal/approvals"
	"github.com/JaimeStill/casse/internal/catalog"
	"github.com/JaimeStill/casse/internal/config"
	"github.com/JaimeStill/casse/internal/notifications"
	"github.com/JaimeStill/casse/internal/pending"
)

// KeyPrefix namespaces every Redis key the service writes.
const KeyPrefix = "casse"

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Catalog   catalog.System
	Pending   pending.Store
	Notifier  *notifications.Notifier
	Approvals approvals.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	catalogSystem := catalog.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	pendingStore := pending.NewRedisStore(
		runtime.Cache.Client(),
		KeyPrefix,
		runtime.Logger,
	)

	notifier := notifications.New(
		runtime.Mail,
		cfg.Approvals.Approvers,
		runtime.Logger,
	)

	links := approvals.NewLinks(
		cfg.Approvals.BaseURL+cfg.API.BasePath,
		cfg.Approvals.LinkSecret,
		cfg.Approvals.PendingTTLDuration(),
	)

	approvalsSystem := approvals.New(&cfg.Approvals, approvals.Deps{
		Pending:  pendingStore,
		Blobs:    runtime.Storage,
		Catalog:  catalogSystem,
		Notifier: notifier,
		Links:    links,
		Metrics:  runtime.Metrics,
		Logger:   runtime.Logger,
	})

	return &Domain{
		Catalog:   catalogSystem,
		Pending:   pendingStore,
		Notifier:  notifier,
		Approvals: approvalsSystem,
	}
}

package catalog

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/handlers"
	"github.com/JaimeStill/casse/pkg/pagination"
	"github.com/JaimeStill/casse/pkg/routes"
)

// Handler provides HTTP endpoints for catalog queries and operator removal.
type Handler struct {
	sys        System
	logger     *zap.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *zap.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With(zap.String("handler", "catalog")),
		pagination: pagination,
	}
}

// Routes returns the route group definition for catalog endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/music",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/search", Handler: h.SearchAny},
			{Method: "GET", Pattern: "/search/{field}", Handler: h.Search},
			{Method: "GET", Pattern: "/mine", Handler: h.Mine},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Remove},
		},
	}
}

// List returns a paginated list of entries with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// SearchAny matches q against every searchable field.
func (h *Handler) SearchAny(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sys.SearchAny(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entries)
}

// Search matches q against a single field. The exact-match parameter
// switches from substring to case-insensitive equality.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	field, err := ParseField(r.PathValue("field"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	exact, _ := strconv.ParseBool(r.URL.Query().Get("exact-match"))

	entries, err := h.sys.Search(r.Context(), field, r.URL.Query().Get("q"), exact)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entries)
}

// Mine lists the entries submitted by the requesting owner.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	owner, ok := handlers.Owner(r)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrNoOwner)
		return
	}

	entries, err := h.sys.ListByOwner(r.Context(), owner)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entries)
}

// Find returns a single entry by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	e, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, e)
}

// Remove deletes an entry and its blobs.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	if err := h.sys.Remove(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

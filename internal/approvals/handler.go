package approvals

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/formatting"
	"github.com/JaimeStill/casse/pkg/handlers"
	"github.com/JaimeStill/casse/pkg/routes"
)

// Handler provides HTTP endpoints for submitting and deciding on media.
type Handler struct {
	sys           System
	links         *Links
	homeURL       string
	maxUploadSize int64
	logger        *zap.Logger
}

// decisionResponse is returned by the approve and deny endpoints.
type decisionResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	StorageKey string   `json:"storage_key,omitempty"`
	CatalogID  string   `json:"catalog_id,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NewHandler creates a Handler. Submissions redirect to homeURL.
func NewHandler(sys System, links *Links, homeURL string, maxUploadSize int64, logger *zap.Logger) *Handler {
	return &Handler{
		sys:           sys,
		links:         links,
		homeURL:       homeURL,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(zap.String("handler", "approvals")),
	}
}

// Routes returns the route group definition for submission endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/submissions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Submit},
			{Method: "GET", Pattern: "/approve", Handler: h.Approve},
			{Method: "GET", Pattern: "/deny", Handler: h.Deny},
			{Method: "GET", Pattern: "/status", Handler: h.Status},
		},
	}
}

// Submit accepts a multipart upload and redirects back to the home page
// with a success or error code.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	owner, ok := handlers.Owner(r)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrNoOwner)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.logger.Warn(
			"multipart parse failed",
			zap.String("limit", formatting.FormatBytes(h.maxUploadSize, 0)),
			zap.Error(err),
		)
		h.redirect(w, r, url.Values{"error": {RedirectCode(ErrFileUploadFailed)}})
		return
	}
	defer r.MultipartForm.RemoveAll()

	cmd := SubmitCommand{
		Owner:    owner,
		Title:    r.FormValue("title"),
		Artists:  r.FormValue("artists"),
		Album:    r.FormValue("album"),
		Composer: r.FormValue("composer"),
		Tags:     r.FormValue("tags"),
	}

	primary, closePrimary := formFile(r, "audioFile")
	defer closePrimary()
	cmd.Primary = primary

	artwork, closeArtwork := formFile(r, "albumArtFile")
	defer closeArtwork()
	cmd.Artwork = artwork

	receipt, err := h.sys.Submit(r.Context(), cmd)
	if err != nil {
		h.logger.Warn("submission rejected", zap.String("owner", owner), zap.Error(err))
		h.redirect(w, r, url.Values{"error": {RedirectCode(err)}})
		return
	}

	q := url.Values{"success": {"song_submitted"}}
	for _, warning := range receipt.Warnings {
		q.Add("warning", warning)
	}
	h.redirect(w, r, q)
}

// Approve moves the named submission into the catalog.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	owner, title, err := h.target(r, ActionApprove)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.Approve(r.Context(), owner, title)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, decisionResponse{
		Status:     string(result.Decision.Outcome),
		Message:    "Song '" + title + "' approved",
		StorageKey: result.Decision.StorageKey,
		CatalogID:  result.Decision.CatalogID,
		Warnings:   result.Warnings,
	})
}

// Deny discards the named submission.
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	owner, title, err := h.target(r, ActionDeny)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.Deny(r.Context(), owner, title)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, decisionResponse{
		Status:     string(result.Decision.Outcome),
		Message:    "Song '" + title + "' denied",
		StorageKey: result.Decision.StorageKey,
		Warnings:   result.Warnings,
	})
}

// Status reports the workflow state of a submission.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	report, err := h.sys.Status(r.Context(), q.Get("email"), q.Get("title"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// target resolves the submission a decision link refers to. Signed links
// are mandatory once a link secret is configured.
func (h *Handler) target(r *http.Request, action Action) (string, string, error) {
	q := r.URL.Query()

	if h.links.Signed() {
		token := q.Get("token")
		if token == "" {
			return "", "", ErrInvalidLink
		}
		return h.links.Verify(action, token)
	}

	return q.Get("email"), q.Get("title"), nil
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, h.homeURL+"?"+q.Encode(), http.StatusSeeOther)
}

// formFile returns the named upload, or nil when the field is absent.
// The returned func closes the underlying file.
func formFile(r *http.Request, name string) (*File, func()) {
	file, header, err := r.FormFile(name)
	if err != nil {
		return nil, func() {}
	}

	return &File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, func() { file.Close() }
}

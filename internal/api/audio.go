package api

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/handlers"
	"github.com/JaimeStill/casse/pkg/routes"
	"github.com/JaimeStill/casse/pkg/storage"
)

type audioHandler struct {
	store  storage.System
	logger *zap.Logger
}

func newAudioHandler(store storage.System, logger *zap.Logger) *audioHandler {
	return &audioHandler{
		store:  store,
		logger: logger.With(zap.String("handler", "audio")),
	}
}

func (h *audioHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/audio",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/stream", Handler: h.stream},
			{Method: "GET", Pattern: "/artwork/{filename}", Handler: h.artwork},
			{Method: "GET", Pattern: "/files", Handler: h.files},
		},
	}
}

// stream serves a primary blob addressed by the play link in approval emails.
func (h *audioHandler) stream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("email")
	key := q.Get("key")

	obj, err := h.store.Get(r.Context(), owner, storage.CategoryPrimary, key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer obj.Body.Close()

	name := storage.Filename(key)
	if title := q.Get("title"); title != "" {
		name = title + path.Ext(name)
	}

	w.Header().Set("Accept-Ranges", "bytes")
	h.write(w, obj, name)
}

func (h *audioHandler) artwork(w http.ResponseWriter, r *http.Request) {
	owner, ok := handlers.Owner(r)
	if !ok {
		owner = r.URL.Query().Get("email")
	}
	filename := r.PathValue("filename")

	obj, err := h.store.Get(r.Context(), owner, storage.CategoryArtwork, filename)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer obj.Body.Close()

	h.write(w, obj, filename)
}

func (h *audioHandler) files(w http.ResponseWriter, r *http.Request) {
	owner, ok := handlers.Owner(r)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, errMissingOwner)
		return
	}

	names, err := h.store.List(r.Context(), owner)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, names)
}

func (h *audioHandler) write(w http.ResponseWriter, obj *storage.Object, filename string) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if obj.ContentLength > 0 {
		w.Header().Set(
			"Content-Length",
			strconv.FormatInt(obj.ContentLength, 10),
		)
	}
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filename),
	)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn("stream interrupted", zap.String("filename", filename), zap.Error(err))
	}
}

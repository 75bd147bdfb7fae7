package approvals

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/casse/internal/pending"
)

// Validation errors. Returned before any store is touched.
var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrInvalidTitle   = errors.New("title is empty or contains a reserved character")
	ErrInvalidOwner   = errors.New("owner is empty or contains a reserved character")
	ErrNoOwner        = errors.New("owner header required")
	ErrInvalidLink    = errors.New("invalid or expired decision link")
)

// ErrNotFound means no submission is awaiting a decision for the key.
var ErrNotFound = errors.New("no pending submission")

// Store errors.
var (
	ErrFileUploadFailed = errors.New("file upload failed")
	ErrCatalogInsert    = errors.New("catalog insert failed")
	ErrPendingStore     = errors.New("pending store failed")
)

// Warnings reported when a best-effort step fails.
const (
	WarnArtworkUpload = "album_art_upload_failed"
	WarnPrimaryDelete = "primary_delete_failed"
	WarnArtworkDelete = "artwork_delete_failed"
	WarnTombstone     = "tombstone_failed"
)

// DecidedError is returned in place of ErrNotFound when the submission
// was already approved or denied and its tombstone is still retained.
type DecidedError struct {
	Decision pending.Decision
}

func (e *DecidedError) Error() string {
	return fmt.Sprintf(
		"submission %q by %s was already %s at %s",
		e.Decision.Title,
		e.Decision.Owner,
		e.Decision.Outcome,
		e.Decision.DecidedAt.Format("2006-01-02T15:04:05Z07:00"),
	)
}

// Is reports DecidedError as ErrNotFound.
func (e *DecidedError) Is(target error) bool {
	return target == ErrNotFound
}

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoFileSelected),
		errors.Is(err, ErrInvalidTitle),
		errors.Is(err, ErrInvalidOwner):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoOwner):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidLink):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RedirectCode maps a Submit error to the error code carried by the
// post-submission redirect.
func RedirectCode(err error) string {
	switch {
	case errors.Is(err, ErrNoFileSelected):
		return "no_file_selected"
	case errors.Is(err, ErrInvalidTitle):
		return "invalid_title"
	case errors.Is(err, ErrInvalidOwner):
		return "invalid_owner"
	default:
		return "file_upload_failed"
	}
}

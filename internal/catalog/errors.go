package catalog

import (
	"errors"
	"net/http"
)

// Domain errors for catalog operations.
var (
	ErrNotFound     = errors.New("catalog entry not found")
	ErrDuplicate    = errors.New("catalog entry already exists")
	ErrInvalidField = errors.New("unknown search field")
	ErrInvalidID    = errors.New("invalid catalog entry id")
	ErrNoOwner      = errors.New("owner header required")
)

// MapHTTPStatus maps catalog domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidField), errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoOwner):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

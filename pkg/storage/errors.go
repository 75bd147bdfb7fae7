package storage

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey indicates an empty storage key or key segment was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates the storage key contains a path traversal segment
	// or falls outside the requested owner and category scope.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
	// ErrInvalidCategory indicates an unknown blob category.
	ErrInvalidCategory = errors.New("unknown blob category")
)

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrInvalidCategory) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

package pending

import "errors"

// Errors returned by Store implementations.
var (
	ErrNotFound   = errors.New("pending submission not found")
	ErrInvalidKey = errors.New("owner or title contains a reserved character")
	ErrConflict   = errors.New("a newer submission replaced the claimed record")
)

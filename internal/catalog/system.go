package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/casse/pkg/pagination"
)

// System defines the public contract for catalog operations.
type System interface {
	Handler() *Handler

	// Insert stores an approved entry. A zero ID is generated.
	Insert(ctx context.Context, e Entry) (*Entry, error)
	// Delete removes the entry row only.
	Delete(ctx context.Context, id uuid.UUID) error
	// Remove deletes the entry and then, best-effort, its blobs.
	Remove(ctx context.Context, id uuid.UUID) error

	Find(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Entry], error)

	// Search matches one field. Exact matching ignores case; otherwise
	// the query matches any substring of the field.
	Search(ctx context.Context, field Field, q string, exact bool) ([]Entry, error)
	// SearchAny matches q as a substring of any field. An empty q matches everything.
	SearchAny(ctx context.Context, q string) ([]Entry, error)
	// ListByOwner returns the entries submitted by email.
	ListByOwner(ctx context.Context, email string) ([]Entry, error)
}

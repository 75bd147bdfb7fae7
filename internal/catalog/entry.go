// Package catalog is the durable, searchable record of approved submissions.
// Entries are created only by approval and are never updated; an operator
// may remove an entry together with its blobs.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Entry is an approved submission.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Artists     string    `json:"artists"`
	Album       string    `json:"album"`
	Composer    string    `json:"composer"`
	Tags        string    `json:"tags"`
	Email       string    `json:"email"`
	StorageKey  string    `json:"storage_key"`
	ArtworkKey  string    `json:"artwork_key,omitempty"`
	ContentType string    `json:"content_type"`
	ApprovedAt  time.Time `json:"approved_at"`
}

// Field names a searchable metadata field.
type Field string

// Searchable fields.
const (
	FieldTitle    Field = "title"
	FieldArtists  Field = "artists"
	FieldAlbum    Field = "album"
	FieldComposer Field = "composer"
	FieldTags     Field = "tags"
	FieldEmail    Field = "email"
)

// Fields lists every searchable field in display order.
var Fields = []Field{FieldTitle, FieldArtists, FieldAlbum, FieldComposer, FieldTags, FieldEmail}

// ParseField resolves a field name, returning ErrInvalidField when unknown.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", ErrInvalidField
}

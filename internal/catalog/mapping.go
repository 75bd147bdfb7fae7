package catalog

import (
	"net/url"

	"github.com/JaimeStill/casse/pkg/query"
	"github.com/JaimeStill/casse/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "catalog_entries", "c").
	Project("id", "ID").
	Project("title", "Title").
	Project("artists", "Artists").
	Project("album", "Album").
	Project("composer", "Composer").
	Project("tags", "Tags").
	Project("email", "Email").
	Project("storage_key", "StorageKey").
	Project("artwork_key", "ArtworkKey").
	Project("content_type", "ContentType").
	Project("approved_at", "ApprovedAt")

var defaultSort = query.SortField{
	Field:      "ApprovedAt",
	Descending: true,
}

// columnFor maps a search field to its projected view name.
var columnFor = map[Field]string{
	FieldTitle:    "Title",
	FieldArtists:  "Artists",
	FieldAlbum:    "Album",
	FieldComposer: "Composer",
	FieldTags:     "Tags",
	FieldEmail:    "Email",
}

// searchColumns returns the view names matched by an any-field search.
func searchColumns() []string {
	cols := make([]string, 0, len(Fields))
	for _, f := range Fields {
		cols = append(cols, columnFor[f])
	}
	return cols
}

// Filters narrows a catalog listing. Nil fields are ignored.
// Email and ContentType match exactly ignoring case; the rest match by substring.
type Filters struct {
	Title       *string `json:"title,omitempty"`
	Artists     *string `json:"artists,omitempty"`
	Album       *string `json:"album,omitempty"`
	Composer    *string `json:"composer,omitempty"`
	Tags        *string `json:"tags,omitempty"`
	Email       *string `json:"email,omitempty"`
	ContentType *string `json:"content_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Title", f.Title).
		WhereContains("Artists", f.Artists).
		WhereContains("Album", f.Album).
		WhereContains("Composer", f.Composer).
		WhereContains("Tags", f.Tags).
		WhereLowerEquals("Email", f.Email).
		WhereLowerEquals("ContentType", f.ContentType)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	get := func(name string) *string {
		if v := values.Get(name); v != "" {
			return &v
		}
		return nil
	}

	return Filters{
		Title:       get("title"),
		Artists:     get("artists"),
		Album:       get("album"),
		Composer:    get("composer"),
		Tags:        get("tags"),
		Email:       get("email"),
		ContentType: get("content_type"),
	}
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var e Entry
	err := s.Scan(
		&e.ID,
		&e.Title,
		&e.Artists,
		&e.Album,
		&e.Composer,
		&e.Tags,
		&e.Email,
		&e.StorageKey,
		&e.ArtworkKey,
		&e.ContentType,
		&e.ApprovedAt,
	)
	return e, err
}

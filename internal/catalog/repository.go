package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/pagination"
	"github.com/JaimeStill/casse/pkg/query"
	"github.com/JaimeStill/casse/pkg/repository"
	"github.com/JaimeStill/casse/pkg/storage"
)

const insertEntry = `
		INSERT INTO catalog_entries(id, title, artists, album, composer, tags, email, storage_key, artwork_key, content_type, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, title, artists, album, composer, tags, email, storage_key, artwork_key, content_type, approved_at`

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *zap.Logger
	pagination pagination.Config
}

// New creates a catalog repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *zap.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With(zap.String("system", "catalog")),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Insert(ctx context.Context, e Entry) (*Entry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ApprovedAt.IsZero() {
		e.ApprovedAt = time.Now().UTC()
	}

	args := []any{
		e.ID,
		e.Title,
		e.Artists,
		e.Album,
		e.Composer,
		e.Tags,
		e.Email,
		e.StorageKey,
		e.ArtworkKey,
		e.ContentType,
		e.ApprovedAt,
	}

	created, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Entry, error) {
		return repository.QueryOne(ctx, tx, insertEntry, args, scanEntry)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("catalog entry created",
		zap.Stringer("id", created.ID),
		zap.String("email", created.Email),
		zap.String("title", created.Title),
	)
	return &created, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM catalog_entries WHERE id = $1",
			id,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("catalog entry deleted", zap.Stringer("id", id))
	return nil
}

func (r *repo) Remove(ctx context.Context, id uuid.UUID) error {
	e, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	if err := r.Delete(ctx, id); err != nil {
		return err
	}

	if err := r.storage.Delete(ctx, e.Email, storage.CategoryPrimary, e.StorageKey); err != nil {
		r.logger.Warn("blob delete failed after catalog delete",
			zap.String("key", e.StorageKey),
			zap.Error(err),
		)
	}

	if e.ArtworkKey != "" {
		if err := r.storage.Delete(ctx, e.Email, storage.CategoryArtwork, e.ArtworkKey); err != nil {
			r.logger.Warn("artwork delete failed after catalog delete",
				zap.String("key", e.ArtworkKey),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Entry, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	e, err := repository.QueryOne(ctx, r.db, q, args, scanEntry)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &e, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Entry], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, searchColumns()...)

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count catalog entries: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	entries, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query catalog entries: %w", err)
	}

	result := pagination.NewPageResult(entries, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Search(ctx context.Context, field Field, q string, exact bool) ([]Entry, error) {
	col, ok := columnFor[field]
	if !ok {
		return nil, ErrInvalidField
	}

	qb := query.NewBuilder(projection, defaultSort)
	if exact {
		qb.WhereLowerEquals(col, &q)
	} else {
		qb.WhereContains(col, &q)
	}

	return r.search(ctx, qb)
}

func (r *repo) SearchAny(ctx context.Context, q string) ([]Entry, error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(&q, searchColumns()...)

	return r.search(ctx, qb)
}

func (r *repo) ListByOwner(ctx context.Context, email string) ([]Entry, error) {
	if email == "" {
		return nil, ErrNoOwner
	}

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereLowerEquals("Email", &email)

	return r.search(ctx, qb)
}

// search runs qb capped at the configured maximum page size.
func (r *repo) search(ctx context.Context, qb *query.Builder) ([]Entry, error) {
	q, args := qb.BuildPage(1, r.pagination.MaxPageSize)

	entries, err := repository.QueryMany(ctx, r.db, q, args, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("search catalog entries: %w", err)
	}
	return entries, nil
}

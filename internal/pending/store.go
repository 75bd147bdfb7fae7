package pending

import (
	"context"
	"time"
)

// Store persists pending submissions with a time-to-live.
type Store interface {
	// Put stores sub under (Owner, Title), overwriting any existing record.
	// The replaced submission is returned, or nil when there was none.
	// Any decision tombstone for the pair is cleared.
	Put(ctx context.Context, sub Submission, ttl time.Duration) (*Submission, error)
	// Get returns the pending submission or ErrNotFound.
	Get(ctx context.Context, owner, title string) (*Submission, error)
	// Delete removes the record and reports whether one existed.
	Delete(ctx context.Context, owner, title string) (bool, error)
	// Take atomically reads and deletes the record. Of any number of
	// concurrent callers only one receives the claim; the rest get ErrNotFound.
	Take(ctx context.Context, owner, title string) (*Claim, error)
	// Restore puts a claimed record back with its remaining TTL.
	// It returns ErrConflict when a newer record already occupies the key.
	Restore(ctx context.Context, claim *Claim) error
	// MarkDecided writes a decision tombstone that lives for grace.
	MarkDecided(ctx context.Context, d Decision, grace time.Duration) error
	// Decided returns the tombstone for (owner, title) or ErrNotFound.
	Decided(ctx context.Context, owner, title string) (*Decision, error)
}

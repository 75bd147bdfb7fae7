// Package pending holds submissions awaiting a moderation decision.
// Records live in Redis with a time-to-live; once the TTL elapses the
// submission is gone and only a decision tombstone (if any) remains.
package pending

import (
	"strings"
	"time"
)

// Submission is a media artifact awaiting approval.
// It is identified by the pair (Owner, Title).
type Submission struct {
	Owner       string    `json:"owner"`
	Title       string    `json:"title"`
	Artists     string    `json:"artists,omitempty"`
	Album       string    `json:"album,omitempty"`
	Composer    string    `json:"composer,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	StorageKey  string    `json:"storage_key"`
	ArtworkKey  string    `json:"artwork_key,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Claim is a submission removed from the store by Take, together with the
// time it had left to live. Restore uses Remaining to put it back.
type Claim struct {
	Submission Submission
	Remaining  time.Duration
}

// Outcome is the terminal state a submission reached.
type Outcome string

// Decision outcomes.
const (
	OutcomeApproved Outcome = "approved"
	OutcomeDenied   Outcome = "denied"
)

// Decision is the tombstone written after a submission is approved or denied.
type Decision struct {
	Owner      string    `json:"owner"`
	Title      string    `json:"title"`
	Outcome    Outcome   `json:"outcome"`
	DecidedAt  time.Time `json:"decided_at"`
	StorageKey string    `json:"storage_key,omitempty"`
	CatalogID  string    `json:"catalog_id,omitempty"`
}

// ValidKeyPart reports whether s can be used as an owner or title.
// The record key joins both with ':' and blob keys use them as path
// segments, so delimiters and the dot segments are rejected.
func ValidKeyPart(s string) bool {
	if strings.TrimSpace(s) == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, ":/\\\x00")
}

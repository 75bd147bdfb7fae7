// Package approvals runs the moderation workflow for media submissions.
//
// A submission's blobs are written first, then its pending record, then
// approvers are notified. Approve and Deny each begin by taking the
// pending record; the store hands it to exactly one caller, so of any
// number of concurrent decisions on the same submission only one acts.
// Approve's point of no return is the catalog insert: if it fails the
// record is restored and the error is surfaced. Every step after a
// decision commits (blob cleanup, tombstone, notification) is best-effort.
package approvals

import (
	"context"
	"io"
	"time"

	"github.com/JaimeStill/casse/internal/catalog"
	"github.com/JaimeStill/casse/internal/notifications"
	"github.com/JaimeStill/casse/internal/pending"
	"github.com/JaimeStill/casse/pkg/storage"
)

// System defines the public contract for the approval workflow.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Submit uploads the submission's blobs, records it as pending, and
	// asks the approvers for a decision.
	Submit(ctx context.Context, cmd SubmitCommand) (*Receipt, error)
	// Approve moves a pending submission into the catalog.
	Approve(ctx context.Context, owner, title string) (*Result, error)
	// Deny discards a pending submission and its blobs.
	Deny(ctx context.Context, owner, title string) (*Result, error)
	// Status reports where a submission is in the workflow.
	Status(ctx context.Context, owner, title string) (*StatusReport, error)
}

// Blobs is the subset of storage.System the workflow writes through.
type Blobs interface {
	Put(ctx context.Context, owner string, category storage.Category, filename string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, owner string, category storage.Category, key string) error
}

// Catalog receives approved submissions.
type Catalog interface {
	Insert(ctx context.Context, e catalog.Entry) (*catalog.Entry, error)
}

// Notifier delivers moderation emails.
type Notifier interface {
	ApprovalRequested(ctx context.Context, req notifications.Request) error
	Approved(ctx context.Context, owner, title string) error
	Denied(ctx context.Context, owner, title string) error
}

// File is an uploaded binary.
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (f *File) empty() bool {
	return f == nil || f.Body == nil || f.Size <= 0
}

// SubmitCommand carries a new submission.
type SubmitCommand struct {
	Owner    string
	Title    string
	Artists  string
	Album    string
	Composer string
	Tags     string
	Primary  *File
	Artwork  *File
}

// Receipt is the result of a successful Submit.
type Receipt struct {
	Submission pending.Submission `json:"submission"`
	// Replaced is true when an earlier pending submission was overwritten.
	Replaced   bool               `json:"replaced"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// Result is the outcome of Approve or Deny.
type Result struct {
	Decision pending.Decision `json:"decision"`
	Warnings []string         `json:"warnings,omitempty"`
}

// State is a submission's position in the workflow.
type State string

// Workflow states. StateUnknown covers both expired and never-submitted.
const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateDenied   State = "denied"
	StateUnknown  State = "unknown"
)

// StatusReport describes a submission's state.
type StatusReport struct {
	Owner      string              `json:"owner"`
	Title      string              `json:"title"`
	State      State               `json:"state"`
	Submission *pending.Submission `json:"submission,omitempty"`
	Decision   *pending.Decision   `json:"decision,omitempty"`
	ExpiresAt  *time.Time          `json:"expires_at,omitempty"`
}

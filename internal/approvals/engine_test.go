package approvals_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/casse/internal/approvals"
	"github.com/JaimeStill/casse/internal/pending"
	"github.com/JaimeStill/casse/pkg/storage"
)

func TestSubmitThenApprove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	receipt := h.submit(t, submitCmd("a@x.com", "Track1", "track.mp3"))
	assert.Equal(t, "a@x.com/primary/Track1.mp3", receipt.Submission.StorageKey)
	assert.Empty(t, receipt.Warnings)
	assert.False(t, receipt.Replaced)
	assert.True(t, h.mr.Exists("casse:pending:a@x.com:Track1"))
	assert.Equal(t, 720*time.Hour, h.mr.TTL("casse:pending:a@x.com:Track1"))

	result, err := h.sys.Approve(ctx, "a@x.com", "Track1")
	require.NoError(t, err)

	entries := h.catalog.byTitle("Track1")
	require.Len(t, entries, 1)
	assert.Equal(t, "a@x.com", entries[0].Email)
	assert.Equal(t, "a@x.com/primary/Track1.mp3", entries[0].StorageKey)
	assert.Equal(t, "audio/mpeg", entries[0].ContentType)

	assert.Equal(t, pending.OutcomeApproved, result.Decision.Outcome)
	assert.Equal(t, entries[0].ID.String(), result.Decision.CatalogID)
	assert.Equal(t, "a@x.com/primary/Track1.mp3", result.Decision.StorageKey)

	_, err = h.pending.Get(ctx, "a@x.com", "Track1")
	assert.ErrorIs(t, err, pending.ErrNotFound)
	assert.True(t, h.blobs.Exists("a@x.com/primary/Track1.mp3"), "approved blob is kept")

	assert.Equal(t, [][]string{{approver}, {"a@x.com"}}, h.recipients())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Transitions.WithLabelValues("submit", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Transitions.WithLabelValues("approve", "success")))
}

func TestSubmitThenDeny(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cmd := submitCmd("a@x.com", "Track2", "track.mp3")
	cmd.Artwork = file("cover.png", "image/png", "png-bytes")
	receipt := h.submit(t, cmd)
	assert.Equal(t, "a@x.com/artwork/Track2.png", receipt.Submission.ArtworkKey)
	assert.Equal(t, 2, h.blobs.Len())

	result, err := h.sys.Deny(ctx, "a@x.com", "Track2")
	require.NoError(t, err)
	assert.Equal(t, pending.OutcomeDenied, result.Decision.Outcome)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, 0, h.catalog.len())
	assert.Equal(t, 0, h.blobs.Len())
	assert.False(t, h.mr.Exists("casse:pending:a@x.com:Track2"))

	msgs := h.mail.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"a@x.com"}, msgs[1].To)
	assert.Equal(t, "Your Song 'Track2' Has Been Denied", msgs[1].Subject)
}

func TestDenyTwice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.submit(t, submitCmd("a@x.com", "Track2", "track.mp3"))

	_, err := h.sys.Deny(ctx, "a@x.com", "Track2")
	require.NoError(t, err)
	sent := len(h.mail.Messages())

	_, err = h.sys.Deny(ctx, "a@x.com", "Track2")
	assert.ErrorIs(t, err, approvals.ErrNotFound)

	var decided *approvals.DecidedError
	require.ErrorAs(t, err, &decided)
	assert.Equal(t, pending.OutcomeDenied, decided.Decision.Outcome)

	assert.Len(t, h.mail.Messages(), sent, "no further notifications")
	assert.Equal(t, 0, h.blobs.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Transitions.WithLabelValues("deny", "not_found")))
}

func TestApproveAfterDenyNamesDecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.submit(t, submitCmd("a@x.com", "Track3", "track.mp3"))
	_, err := h.sys.Deny(ctx, "a@x.com", "Track3")
	require.NoError(t, err)

	_, err = h.sys.Approve(ctx, "a@x.com", "Track3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already denied")
	assert.Equal(t, 0, h.catalog.len())
}

func TestApproveUnknownSubmission(t *testing.T) {
	h := newHarness(t)

	_, err := h.sys.Approve(context.Background(), "nobody@x.com", "Ghost")
	assert.ErrorIs(t, err, approvals.ErrNotFound)

	var decided *approvals.DecidedError
	assert.False(t, errors.As(err, &decided))
	assert.Equal(t, 0, h.catalog.len())
	assert.Empty(t, h.mail.Messages())
}

func TestResubmissionOrphansEarlierBlob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.submit(t, submitCmd("u1", "Song", "song.mp3"))
	second := h.submit(t, submitCmd("u1", "Song", "song.wav"))

	assert.False(t, first.Replaced)
	assert.True(t, second.Replaced)

	sub, err := h.pending.Get(ctx, "u1", "Song")
	require.NoError(t, err)
	assert.Equal(t, "u1/primary/Song.wav", sub.StorageKey)

	assert.True(t, h.blobs.Exists("u1/primary/Song.mp3"), "first blob is orphaned, not deleted")
	assert.True(t, h.blobs.Exists("u1/primary/Song.wav"))

	orphans := h.logs.FilterMessage("replaced submission left an orphaned blob").All()
	require.Len(t, orphans, 1)
	assert.Equal(t, "u1/primary/Song.mp3", orphans[0].ContextMap()["storage_key"])
}

func TestConcurrentApproveAndDeny(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const rounds = 20

	for i := range rounds {
		title := fmt.Sprintf("Race%d", i)
		h.submit(t, submitCmd("a@x.com", title, "race.mp3"))

		var (
			wg       sync.WaitGroup
			approveE error
			denyE    error
		)
		wg.Go(func() { _, approveE = h.sys.Approve(ctx, "a@x.com", title) })
		wg.Go(func() { _, denyE = h.sys.Deny(ctx, "a@x.com", title) })
		wg.Wait()

		approved := len(h.catalog.byTitle(title)) == 1
		deleted := !h.blobs.Exists("a@x.com/primary/" + title + ".mp3")

		assert.NotEqual(t, approved, deleted, "round %d: exactly one decision applies", i)
		assert.True(t, (approveE == nil) != (denyE == nil), "round %d: exactly one caller succeeds", i)

		loser := approveE
		if loser == nil {
			loser = denyE
		}
		assert.ErrorIs(t, loser, approvals.ErrNotFound)
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  approvals.SubmitCommand
		want error
	}{
		{"no primary", approvals.SubmitCommand{Owner: "a@x.com", Title: "Track1"}, approvals.ErrNoFileSelected},
		{"empty primary", approvals.SubmitCommand{Owner: "a@x.com", Title: "Track1", Primary: file("x.mp3", "audio/mpeg", "")}, approvals.ErrNoFileSelected},
		{"delimiter in title", submitCmd("a@x.com", "Side:A", "x.mp3"), approvals.ErrInvalidTitle},
		{"slash in title", submitCmd("a@x.com", "a/b", "x.mp3"), approvals.ErrInvalidTitle},
		{"blank title", submitCmd("a@x.com", "  ", "x.mp3"), approvals.ErrInvalidTitle},
		{"blank owner", submitCmd("", "Track1", "x.mp3"), approvals.ErrInvalidOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.sys.Submit(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, 0, h.blobs.Len())
			assert.Empty(t, h.mr.Keys())
			assert.Empty(t, h.mail.Messages())
		})
	}
}

func TestSubmitPrimaryUploadFailure(t *testing.T) {
	h := newHarness(t)
	h.blobs.putErr[storage.CategoryPrimary] = errors.New("bucket unavailable")

	cmd := submitCmd("a@x.com", "Track1", "track.mp3")
	cmd.Artwork = file("cover.png", "image/png", "png-bytes")

	_, err := h.sys.Submit(context.Background(), cmd)
	assert.ErrorIs(t, err, approvals.ErrFileUploadFailed)

	assert.Equal(t, 0, h.blobs.Len(), "artwork written alongside is removed")
	assert.Empty(t, h.mr.Keys())
	assert.Empty(t, h.mail.Messages())
}

func TestSubmitArtworkUploadFailure(t *testing.T) {
	h := newHarness(t)
	h.blobs.putErr[storage.CategoryArtwork] = errors.New("bucket unavailable")

	cmd := submitCmd("a@x.com", "Track1", "track.mp3")
	cmd.Artwork = file("cover.png", "image/png", "png-bytes")

	receipt := h.submit(t, cmd)
	assert.Equal(t, []string{approvals.WarnArtworkUpload}, receipt.Warnings)
	assert.Empty(t, receipt.Submission.ArtworkKey)

	sub, err := h.pending.Get(context.Background(), "a@x.com", "Track1")
	require.NoError(t, err)
	assert.Empty(t, sub.ArtworkKey)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StepFailures.WithLabelValues("artwork_upload")))
}

func TestSubmitPendingStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.mr.SetError("LOADING redis is loading")

	cmd := submitCmd("a@x.com", "Track1", "track.mp3")
	cmd.Artwork = file("cover.png", "image/png", "png-bytes")

	_, err := h.sys.Submit(context.Background(), cmd)
	assert.ErrorIs(t, err, approvals.ErrPendingStore)

	assert.Equal(t, 0, h.blobs.Len(), "nothing is uploaded while the store is unreachable")
	assert.Empty(t, h.mail.Messages())
}

func TestSubmitPutFailureRemovesBlobs(t *testing.T) {
	h := newHarness(t)
	h.store.putErr = errors.New("connection reset")

	cmd := submitCmd("a@x.com", "Track1", "track.mp3")
	cmd.Artwork = file("cover.png", "image/png", "png-bytes")

	_, err := h.sys.Submit(context.Background(), cmd)
	assert.ErrorIs(t, err, approvals.ErrPendingStore)

	assert.Equal(t, 0, h.blobs.Len(), "uploaded blobs are compensated")
	assert.Empty(t, h.mail.Messages())
}

func TestResubmitPutFailureKeepsPendingBlobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cmd := submitCmd("u1", "Song", "song.mp3")
	cmd.Artwork = file("cover.png", "image/png", "png-bytes")
	h.submit(t, cmd)

	h.store.putErr = errors.New("connection reset")

	again := submitCmd("u1", "Song", "song.mp3")
	again.Artwork = file("cover.png", "image/png", "png-bytes")
	_, err := h.sys.Submit(ctx, again)
	require.ErrorIs(t, err, approvals.ErrPendingStore)

	assert.True(t, h.blobs.Exists("u1/primary/Song.mp3"))
	assert.True(t, h.blobs.Exists("u1/artwork/Song.png"))

	_, err = h.sys.Submit(ctx, submitCmd("u1", "Song", "song.wav"))
	require.ErrorIs(t, err, approvals.ErrPendingStore)
	assert.False(t, h.blobs.Exists("u1/primary/Song.wav"), "blob of the failed submission is removed")

	h.store.putErr = nil

	result, err := h.sys.Approve(ctx, "u1", "Song")
	require.NoError(t, err)
	assert.Equal(t, "u1/primary/Song.mp3", result.Decision.StorageKey)
	assert.True(t, h.blobs.Exists("u1/primary/Song.mp3"), "approved entry points at a live blob")
}

func TestResubmitWhileStoreUnavailableKeepsPendingBlob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.submit(t, submitCmd("u1", "Song", "song.mp3"))

	h.mr.SetError("LOADING redis is loading")
	_, err := h.sys.Submit(ctx, submitCmd("u1", "Song", "song.mp3"))
	require.ErrorIs(t, err, approvals.ErrPendingStore)
	h.mr.SetError("")

	sub, err := h.pending.Get(ctx, "u1", "Song")
	require.NoError(t, err)
	assert.True(t, h.blobs.Exists(sub.StorageKey))

	result, err := h.sys.Approve(ctx, "u1", "Song")
	require.NoError(t, err)
	assert.True(t, h.blobs.Exists(result.Decision.StorageKey))
}

func TestResubmitAfterDecisionExpiresAsUnknown(t *testing.T) {
	h := newHarness(t, func(cfg *approvals.Config) {
		cfg.PendingTTL = "1h"
		cfg.DecisionTTL = "72h"
	})
	ctx := context.Background()

	h.submit(t, submitCmd("a@x.com", "Track1", "track.mp3"))
	_, err := h.sys.Approve(ctx, "a@x.com", "Track1")
	require.NoError(t, err)

	h.submit(t, submitCmd("a@x.com", "Track1", "track.mp3"))
	h.mr.FastForward(2 * time.Hour)

	report, err := h.sys.Status(ctx, "a@x.com", "Track1")
	require.NoError(t, err)
	assert.Equal(t, approvals.StateUnknown, report.State)

	_, err = h.sys.Approve(ctx, "a@x.com", "Track1")
	assert.ErrorIs(t, err, approvals.ErrNotFound)
	var decided *approvals.DecidedError
	assert.False(t, errors.As(err, &decided), "the earlier approval no longer answers for the title")
}

func TestSubmitDottedTitle(t *testing.T) {
	h := newHarness(t)

	receipt := h.submit(t, submitCmd("a@x.com", "Wait...", "wait.mp3"))
	assert.Equal(t, "a@x.com/primary/Wait....mp3", receipt.Submission.StorageKey)

	_, err := h.sys.Approve(context.Background(), "a@x.com", "Wait...")
	require.NoError(t, err)

	_, err = h.sys.Submit(context.Background(), submitCmd("a@x.com", "..", "x.mp3"))
	assert.ErrorIs(t, err, approvals.ErrInvalidTitle)
}

func TestApproveCatalogFailureRestoresRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.submit(t, submitCmd("a@x.com", "Track1", "track.mp3"))
	h.mr.FastForward(24 * time.Hour)

	h.catalog.setErr(errors.New("connection refused"))
	_, err := h.sys.Approve(ctx, "a@x.com", "Track1")
	assert.ErrorIs(t, err, approvals.ErrCatalogInsert)
	assert.Equal(t, 500, approvals.MapHTTPStatus(err))

	sub, err := h.pending.Get(ctx, "a@x.com", "Track1")
	require.NoError(t, err, "record is restored for a retry")
	assert.Equal(t, "a@x.com/primary/Track1.mp3", sub.StorageKey)
	assert.Equal(t, 696*time.Hour, h.mr.TTL("casse:pending:a@x.com:Track1"))

	assert.True(t, h.blobs.Exists("a@x.com/primary/Track1.mp3"))
	assert.Len(t, h.mail.Messages(), 1, "owner is not notified")

	h.catalog.setErr(nil)
	_, err = h.sys.Approve(ctx, "a@x.com", "Track1")
	require.NoError(t, err)
	assert.Len(t, h.catalog.byTitle("Track1"), 1)
}

func TestDenyContinuesPastDeleteFailure(t *testing.T) {
	h := newHarness(t)
	h.blobs.deleteErr[storage.CategoryPrimary] = errors.New("timeout")

	cmd := submitCmd("a@x.com", "Track2", "track.mp3")
	cmd.Artwork = file("cover.png", "image/png", "png-bytes")
	h.submit(t, cmd)

	result, err := h.sys.Deny(context.Background(), "a@x.com", "Track2")
	require.NoError(t, err)
	assert.Equal(t, []string{approvals.WarnPrimaryDelete}, result.Warnings)

	assert.True(t, h.blobs.Exists("a@x.com/primary/Track2.mp3"))
	assert.False(t, h.blobs.Exists("a@x.com/artwork/Track2.png"))
	assert.False(t, h.mr.Exists("casse:pending:a@x.com:Track2"))
	assert.Len(t, h.mail.Messages(), 2, "owner is still notified")
}

func TestNotificationFailureIsNotSurfaced(t *testing.T) {
	h := newHarness(t)
	h.mail.Err = errors.New("smtp down")
	ctx := context.Background()

	h.submit(t, submitCmd("a@x.com", "Track1", "track.mp3"))
	_, err := h.sys.Approve(ctx, "a@x.com", "Track1")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StepFailures.WithLabelValues("notify_approvers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StepFailures.WithLabelValues("notify_owner")))
	assert.Len(t, h.catalog.byTitle("Track1"), 1)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	report, err := h.sys.Status(ctx, "a@x.com", "Track1")
	require.NoError(t, err)
	assert.Equal(t, approvals.StateUnknown, report.State)

	h.submit(t, submitCmd("a@x.com", "Track1", "track.mp3"))
	report, err = h.sys.Status(ctx, "a@x.com", "Track1")
	require.NoError(t, err)
	assert.Equal(t, approvals.StatePending, report.State)
	require.NotNil(t, report.Submission)
	require.NotNil(t, report.ExpiresAt)
	assert.Equal(t, report.Submission.SubmittedAt.Add(720*time.Hour), *report.ExpiresAt)

	_, err = h.sys.Approve(ctx, "a@x.com", "Track1")
	require.NoError(t, err)
	report, err = h.sys.Status(ctx, "a@x.com", "Track1")
	require.NoError(t, err)
	assert.Equal(t, approvals.StateApproved, report.State)
	require.NotNil(t, report.Decision)

	h.mr.FastForward(73 * time.Hour)
	report, err = h.sys.Status(ctx, "a@x.com", "Track1")
	require.NoError(t, err)
	assert.Equal(t, approvals.StateUnknown, report.State, "tombstone expires after the grace period")
}

func TestExpiredSubmissionIsNotFound(t *testing.T) {
	h := newHarness(t)

	h.submit(t, submitCmd("a@x.com", "Track1", "track.mp3"))
	h.mr.FastForward(721 * time.Hour)

	_, err := h.sys.Approve(context.Background(), "a@x.com", "Track1")
	assert.ErrorIs(t, err, approvals.ErrNotFound)
	assert.True(t, h.blobs.Exists("a@x.com/primary/Track1.mp3"), "expired blobs are left for an external sweep")
}

func TestDecisionRejectsInvalidKey(t *testing.T) {
	h := newHarness(t)

	_, err := h.sys.Approve(context.Background(), "a@x.com", "bad:title")
	assert.ErrorIs(t, err, approvals.ErrInvalidTitle)

	_, err = h.sys.Deny(context.Background(), "", "Track1")
	assert.ErrorIs(t, err, approvals.ErrInvalidOwner)
}

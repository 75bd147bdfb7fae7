package approvals

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JaimeStill/casse/internal/catalog"
	"github.com/JaimeStill/casse/internal/pending"
	"github.com/JaimeStill/casse/pkg/metrics"
	"github.com/JaimeStill/casse/pkg/storage"
)

func (e *engine) Approve(ctx context.Context, owner, title string) (*Result, error) {
	log := e.logger.With(zap.String("owner", owner), zap.String("title", title))

	claim, err := e.take(ctx, "approve", owner, title)
	if err != nil {
		return nil, err
	}
	sub := claim.Submission

	entry, err := e.catalog.Insert(ctx, catalog.Entry{
		Title:       sub.Title,
		Artists:     sub.Artists,
		Album:       sub.Album,
		Composer:    sub.Composer,
		Tags:        sub.Tags,
		Email:       sub.Owner,
		StorageKey:  sub.StorageKey,
		ArtworkKey:  sub.ArtworkKey,
		ContentType: sub.ContentType,
		ApprovedAt:  e.now(),
	})
	if err != nil {
		e.restore(ctx, log, claim)
		e.metrics.Transition("approve", metrics.OutcomeError)
		log.Error("catalog insert failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCatalogInsert, err)
	}

	result := &Result{Decision: pending.Decision{
		Owner:      sub.Owner,
		Title:      sub.Title,
		Outcome:    pending.OutcomeApproved,
		DecidedAt:  entry.ApprovedAt,
		StorageKey: sub.StorageKey,
		CatalogID:  entry.ID.String(),
	}}

	e.finish(ctx, log, result, e.notifier.Approved)

	e.metrics.Transition("approve", metrics.OutcomeSuccess)
	log.Info("submission approved", zap.String("catalog_id", result.Decision.CatalogID))
	return result, nil
}

func (e *engine) Deny(ctx context.Context, owner, title string) (*Result, error) {
	log := e.logger.With(zap.String("owner", owner), zap.String("title", title))

	claim, err := e.take(ctx, "deny", owner, title)
	if err != nil {
		return nil, err
	}
	sub := claim.Submission

	result := &Result{Decision: pending.Decision{
		Owner:      sub.Owner,
		Title:      sub.Title,
		Outcome:    pending.OutcomeDenied,
		DecidedAt:  e.now(),
		StorageKey: sub.StorageKey,
	}}

	if sub.StorageKey != "" {
		if err := e.deleteBlob(ctx, log, sub.Owner, storage.CategoryPrimary, sub.StorageKey); err != nil {
			result.Warnings = append(result.Warnings, WarnPrimaryDelete)
		}
	}
	if sub.ArtworkKey != "" {
		if err := e.deleteBlob(ctx, log, sub.Owner, storage.CategoryArtwork, sub.ArtworkKey); err != nil {
			result.Warnings = append(result.Warnings, WarnArtworkDelete)
		}
	}

	e.finish(ctx, log, result, e.notifier.Denied)

	e.metrics.Transition("deny", metrics.OutcomeSuccess)
	log.Info("submission denied", zap.Strings("warnings", result.Warnings))
	return result, nil
}

func (e *engine) Status(ctx context.Context, owner, title string) (*StatusReport, error) {
	if err := validateKey(owner, title); err != nil {
		return nil, err
	}

	report := &StatusReport{Owner: owner, Title: title, State: StateUnknown}

	sub, err := e.pending.Get(ctx, owner, title)
	switch {
	case err == nil:
		expires := sub.SubmittedAt.Add(e.pendingTTL)
		report.State = StatePending
		report.Submission = sub
		report.ExpiresAt = &expires
		return report, nil
	case !errors.Is(err, pending.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", ErrPendingStore, err)
	}

	d, err := e.pending.Decided(ctx, owner, title)
	switch {
	case err == nil:
		report.Decision = d
		if d.Outcome == pending.OutcomeApproved {
			report.State = StateApproved
		} else {
			report.State = StateDenied
		}
	case !errors.Is(err, pending.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", ErrPendingStore, err)
	}

	return report, nil
}

// take claims the pending record for a decision. When no record exists
// the returned error names a prior decision if its tombstone survives.
func (e *engine) take(ctx context.Context, transition, owner, title string) (*pending.Claim, error) {
	if err := validateKey(owner, title); err != nil {
		e.metrics.Transition(transition, metrics.OutcomeInvalid)
		return nil, err
	}

	claim, err := e.pending.Take(ctx, owner, title)
	if err == nil {
		return claim, nil
	}

	if !errors.Is(err, pending.ErrNotFound) {
		e.metrics.Transition(transition, metrics.OutcomeError)
		return nil, fmt.Errorf("%w: %w", ErrPendingStore, err)
	}

	e.metrics.Transition(transition, metrics.OutcomeNotFound)

	d, derr := e.pending.Decided(ctx, owner, title)
	if derr == nil {
		return nil, &DecidedError{Decision: *d}
	}
	if !errors.Is(derr, pending.ErrNotFound) {
		e.logger.Warn("tombstone lookup failed", zap.Error(derr))
	}
	return nil, ErrNotFound
}

// restore returns a claimed record to the store after a failed approval
// so the decision can be retried.
func (e *engine) restore(ctx context.Context, log *zap.Logger, claim *pending.Claim) {
	if claim.Remaining <= 0 {
		claim.Remaining = e.pendingTTL
	}

	err := e.pending.Restore(ctx, claim)
	switch {
	case err == nil:
		log.Info("pending record restored", zap.Duration("remaining", claim.Remaining))
	case errors.Is(err, pending.ErrConflict):
		log.Warn("pending record not restored; a newer submission exists")
	default:
		e.metrics.StepFailed("restore")
		log.Error("pending record lost after failed approval", zap.Error(err))
	}
}

// finish runs the best-effort steps after a decision commits.
func (e *engine) finish(
	ctx context.Context,
	log *zap.Logger,
	result *Result,
	notify func(ctx context.Context, owner, title string) error,
) {
	d := result.Decision

	if err := e.pending.MarkDecided(ctx, d, e.decisionTTL); err != nil {
		e.metrics.StepFailed("tombstone")
		log.Warn("decision tombstone not written", zap.Error(err))
		result.Warnings = append(result.Warnings, WarnTombstone)
	}

	if err := notify(ctx, d.Owner, d.Title); err != nil {
		e.metrics.StepFailed("notify_owner")
		log.Warn("owner notification not sent", zap.Error(err))
	}
}

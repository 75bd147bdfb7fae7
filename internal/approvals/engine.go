package approvals

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/casse/internal/notifications"
	"github.com/JaimeStill/casse/internal/pending"
	"github.com/JaimeStill/casse/pkg/metrics"
	"github.com/JaimeStill/casse/pkg/storage"
)

const defaultContentType = "application/octet-stream"

// Deps are the stores and gateways the workflow coordinates.
type Deps struct {
	Pending  pending.Store
	Blobs    Blobs
	Catalog  Catalog
	Notifier Notifier
	Links    *Links
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

type engine struct {
	pending  pending.Store
	blobs    Blobs
	catalog  Catalog
	notifier Notifier
	links    *Links
	metrics  *metrics.Metrics
	logger   *zap.Logger

	homeURL     string
	pendingTTL  time.Duration
	decisionTTL time.Duration
	now         func() time.Time
}

// New creates the approval workflow.
func New(cfg *Config, deps Deps) System {
	return &engine{
		pending:     deps.Pending,
		blobs:       deps.Blobs,
		catalog:     deps.Catalog,
		notifier:    deps.Notifier,
		links:       deps.Links,
		metrics:     deps.Metrics,
		logger:      deps.Logger.With(zap.String("system", "approvals")),
		homeURL:     cfg.BaseURL + "/home",
		pendingTTL:  cfg.PendingTTLDuration(),
		decisionTTL: cfg.DecisionTTLDuration(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (e *engine) Handler(maxUploadSize int64) *Handler {
	return NewHandler(e, e.links, e.homeURL, maxUploadSize, e.logger)
}

func (e *engine) Submit(ctx context.Context, cmd SubmitCommand) (*Receipt, error) {
	if cmd.Primary.empty() {
		e.metrics.Transition("submit", metrics.OutcomeInvalid)
		return nil, ErrNoFileSelected
	}
	if err := validateKey(cmd.Owner, cmd.Title); err != nil {
		e.metrics.Transition("submit", metrics.OutcomeInvalid)
		return nil, err
	}

	log := e.logger.With(zap.String("owner", cmd.Owner), zap.String("title", cmd.Title))
	receipt := &Receipt{}

	prior, err := e.pending.Get(ctx, cmd.Owner, cmd.Title)
	if err != nil && !errors.Is(err, pending.ErrNotFound) {
		e.metrics.Transition("submit", metrics.OutcomeError)
		return nil, fmt.Errorf("%w: %w", ErrPendingStore, err)
	}

	primaryKey, artworkKey, err := e.upload(ctx, cmd, receipt, log)
	if err != nil {
		e.metrics.Transition("submit", metrics.OutcomeError)
		return nil, err
	}

	sub := pending.Submission{
		Owner:       cmd.Owner,
		Title:       cmd.Title,
		Artists:     cmd.Artists,
		Album:       cmd.Album,
		Composer:    cmd.Composer,
		Tags:        cmd.Tags,
		StorageKey:  primaryKey,
		ArtworkKey:  artworkKey,
		ContentType: contentType(cmd.Primary),
		SubmittedAt: e.now(),
	}

	replaced, err := e.pending.Put(ctx, sub, e.pendingTTL)
	if err != nil {
		e.discard(ctx, log, prior, sub)
		e.metrics.Transition("submit", metrics.OutcomeError)
		return nil, fmt.Errorf("%w: %w", ErrPendingStore, err)
	}

	if replaced != nil {
		receipt.Replaced = true
		e.logOrphans(log, *replaced, sub)
	}

	receipt.Submission = sub
	e.requestApproval(ctx, log, sub)

	e.metrics.Transition("submit", metrics.OutcomeSuccess)
	log.Info("submission pending approval",
		zap.String("storage_key", primaryKey),
		zap.Bool("replaced", receipt.Replaced),
	)
	return receipt, nil
}

// upload writes the primary and artwork blobs concurrently. A primary
// failure is fatal and removes any artwork already written; an artwork
// failure only adds a warning to the receipt.
func (e *engine) upload(ctx context.Context, cmd SubmitCommand, receipt *Receipt, log *zap.Logger) (string, string, error) {
	var (
		primaryKey string
		artworkKey string
		artworkErr error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		key, err := e.blobs.Put(
			gctx,
			cmd.Owner,
			storage.CategoryPrimary,
			cmd.Title+extension(cmd.Primary.Filename),
			cmd.Primary.Body,
			cmd.Primary.Size,
			contentType(cmd.Primary),
		)
		if err != nil {
			return err
		}
		primaryKey = key
		return nil
	})

	if !cmd.Artwork.empty() {
		g.Go(func() error {
			key, err := e.blobs.Put(
				gctx,
				cmd.Owner,
				storage.CategoryArtwork,
				cmd.Title+extension(cmd.Artwork.Filename),
				cmd.Artwork.Body,
				cmd.Artwork.Size,
				contentType(cmd.Artwork),
			)
			if err != nil {
				artworkErr = err
				return nil
			}
			artworkKey = key
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if artworkKey != "" {
			e.deleteBlob(ctx, log, cmd.Owner, storage.CategoryArtwork, artworkKey)
		}
		log.Error("primary upload failed", zap.Error(err))
		return "", "", fmt.Errorf("%w: %w", ErrFileUploadFailed, err)
	}

	if artworkErr != nil {
		log.Warn("artwork upload failed; continuing without artwork", zap.Error(artworkErr))
		e.metrics.StepFailed("artwork_upload")
		receipt.Warnings = append(receipt.Warnings, WarnArtworkUpload)
	}

	return primaryKey, artworkKey, nil
}

// discard removes the blobs of a submission that never became pending.
// Keys shared with the earlier pending record stay, since that record
// may still be approved.
func (e *engine) discard(ctx context.Context, log *zap.Logger, prior *pending.Submission, sub pending.Submission) {
	if prior != nil && prior.StorageKey == sub.StorageKey {
		log.Warn("blob kept for earlier pending submission", zap.String("storage_key", sub.StorageKey))
	} else {
		e.deleteBlob(ctx, log, sub.Owner, storage.CategoryPrimary, sub.StorageKey)
	}

	if sub.ArtworkKey == "" {
		return
	}
	if prior != nil && prior.ArtworkKey == sub.ArtworkKey {
		log.Warn("artwork kept for earlier pending submission", zap.String("artwork_key", sub.ArtworkKey))
		return
	}
	e.deleteBlob(ctx, log, sub.Owner, storage.CategoryArtwork, sub.ArtworkKey)
}

// logOrphans reports blobs referenced only by a replaced submission.
// They are left in place.
func (e *engine) logOrphans(log *zap.Logger, old, current pending.Submission) {
	if old.StorageKey != "" && old.StorageKey != current.StorageKey {
		log.Warn("replaced submission left an orphaned blob", zap.String("storage_key", old.StorageKey))
	}
	if old.ArtworkKey != "" && old.ArtworkKey != current.ArtworkKey {
		log.Warn("replaced submission left orphaned artwork", zap.String("artwork_key", old.ArtworkKey))
	}
}

func (e *engine) requestApproval(ctx context.Context, log *zap.Logger, sub pending.Submission) {
	now := e.now()

	approveURL, err := e.links.DecisionURL(ActionApprove, sub.Owner, sub.Title, now)
	if err == nil {
		var denyURL string
		denyURL, err = e.links.DecisionURL(ActionDeny, sub.Owner, sub.Title, now)
		if err == nil {
			err = e.notifier.ApprovalRequested(ctx, notifications.Request{
				Owner:      sub.Owner,
				Title:      sub.Title,
				PlayURL:    e.links.PlayURL(sub),
				ApproveURL: approveURL,
				DenyURL:    denyURL,
			})
		}
	}

	if err != nil {
		e.metrics.StepFailed("notify_approvers")
		log.Warn("approval request not sent", zap.Error(err))
	}
}

func (e *engine) deleteBlob(ctx context.Context, log *zap.Logger, owner string, category storage.Category, key string) error {
	err := e.blobs.Delete(ctx, owner, category, key)
	if err != nil {
		e.metrics.StepFailed(string(category) + "_delete")
		log.Warn("blob delete failed",
			zap.String("category", string(category)),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return err
}

func validateKey(owner, title string) error {
	if !pending.ValidKeyPart(owner) {
		return ErrInvalidOwner
	}
	if !pending.ValidKeyPart(title) {
		return ErrInvalidTitle
	}
	return nil
}

// extension returns the original file's extension when it is a plain
// alphanumeric suffix, and "" otherwise.
func extension(filename string) string {
	ext := path.Ext(strings.ReplaceAll(filename, "\\", "/"))
	if len(ext) < 2 {
		return ""
	}
	for _, r := range ext[1:] {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9') {
			return ""
		}
	}
	return ext
}

func contentType(f *File) string {
	if f.ContentType == "" {
		return defaultContentType
	}
	return f.ContentType
}

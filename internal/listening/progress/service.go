// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package progress

import (
	"context"
	"log/slog"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/pkg/pointer"
)

// Service implements the listening progress use cases.
type Service struct {
	repository Repository
	badges     BadgeChecker
	logger     *slog.Logger
}

// NewService constructs a new progress [Service].
//
// badges may be nil; badge evaluation is then skipped entirely.
func NewService(repository Repository, badges BadgeChecker, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		badges:     badges,
		logger:     logger,
	}
}

// UpdateInput is a playback report from the player.
//
// For single-file books TrackID is empty and PlayedSeconds is the furthest
// point reached in the stream. For playlist books TrackID names the track,
// PlayedSeconds is the furthest point inside it, and PositionSeconds is the
// current resume position (which may be behind PlayedSeconds after a seek
// backwards).
type UpdateInput struct {
	UserID          string
	BookID          string
	TrackID         string
	PlayedSeconds   int
	PositionSeconds int
}

/*
UpdateProgress records a playback report and re-evaluates book completion.

Description:

	The playback high-water mark only grows; duplicate or out-of-order
	reports are safe to replay. Single-file books cross into "read" at the
	95% listened threshold (subject to the quiz gate); dropping back below
	the threshold later never clears the flag.

Returns:
  - [*Result] with the current completion verdict and any new badges.
  - [apperr.ValidationError] when the report shape does not match the book.
*/
func (service *Service) UpdateProgress(ctx context.Context, input UpdateInput) (*Result, error) {
	// ── 1. Shape Check Against The Catalog ────────────────────────────────

	meta, err := service.repository.BookMeta(ctx, input.BookID)
	if err != nil {
		return nil, err
	}

	if meta.IsPlaylist && input.TrackID == "" {
		return nil, apperr.ValidationError("Playlist books require a track_id")
	}
	if !meta.IsPlaylist && input.TrackID != "" {
		return nil, apperr.ValidationError("Single-file books do not have tracks")
	}

	// ── 2. Record The Report ──────────────────────────────────────────────

	if err := service.repository.EnsureBookStarted(ctx, input.UserID, input.BookID); err != nil {
		return nil, err
	}

	var trackID *string
	if input.TrackID != "" {
		trackID = pointer.To(input.TrackID)
	}

	if err := service.repository.UpsertPlayback(ctx, input.UserID, input.BookID, trackID, input.PlayedSeconds); err != nil {
		return nil, err
	}

	if trackID != nil {
		if err := service.repository.UpsertTrackProgress(ctx, input.UserID, *trackID, input.PositionSeconds); err != nil {
			return nil, err
		}
	}

	// ── 3. Completion Evaluation ──────────────────────────────────────────

	return service.evaluateBook(ctx, input.UserID, meta)
}

/*
CompleteTrack marks a playlist track as finished and re-evaluates the book.

Description:

	The completion insert is idempotent: a flaky client retrying the call
	changes nothing. Completion of the final track hands the verdict to the
	quiz gate; the book becomes read only once every attached quiz has a
	passing attempt.
*/
func (service *Service) CompleteTrack(ctx context.Context, userID, trackID string) (*Result, error) {
	bookID, err := service.repository.TrackBook(ctx, trackID)
	if err != nil {
		return nil, err
	}

	meta, err := service.repository.BookMeta(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if err := service.repository.EnsureBookStarted(ctx, userID, bookID); err != nil {
		return nil, err
	}

	if _, err := service.repository.InsertCompletedTrack(ctx, userID, trackID); err != nil {
		return nil, err
	}

	return service.evaluateBook(ctx, userID, meta)
}

// EvaluateBook re-runs the completion verdict for a book. The quiz service
// calls this after storing a new result, so passing the last pending quiz
// completes the book without another playback event.
func (service *Service) EvaluateBook(ctx context.Context, userID, bookID string) (*Result, error) {
	meta, err := service.repository.BookMeta(ctx, bookID)
	if err != nil {
		return nil, err
	}

	return service.evaluateBook(ctx, userID, meta)
}

/*
evaluateBook is the single convergence point for the completion verdict.

Description:

	Steps, in order:

	 1. A book already read stays read (sticky flag).
	 2. Content gate: every track completed (playlist) or the 95% threshold
	    reached (single-file). Failing this yields a normal incomplete
	    result.
	 3. Quiz gate: every quiz attached to the book needs a passing attempt.
	    Pending quizzes are reported in the result, never as an error.
	 4. Both gates passed: the book is marked read and badges re-checked.

	Badge evaluation also runs on incomplete results (listening badges like
	first_listen and night_owl do not require completion), and its failure
	never fails the caller's request.
*/
func (service *Service) evaluateBook(ctx context.Context, userID string, meta *BookMeta) (*Result, error) {
	// ── 1. Sticky Read Flag ───────────────────────────────────────────────

	readBooks, err := service.repository.ReadBooks(ctx, userID, []string{meta.ID})
	if err != nil {
		return nil, err
	}
	if readBooks[meta.ID] {
		return &Result{IsBookCompleted: true, NewBadges: service.checkBadges(ctx, userID)}, nil
	}

	// ── 2. Content Gate ───────────────────────────────────────────────────

	contentComplete, err := service.contentComplete(ctx, userID, meta)
	if err != nil {
		return nil, err
	}
	if !contentComplete {
		return &Result{IsBookCompleted: false, NewBadges: service.checkBadges(ctx, userID)}, nil
	}

	// ── 3. Quiz Gate ──────────────────────────────────────────────────────

	pending, err := service.repository.PendingQuizzes(ctx, userID, meta.ID)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return &Result{
			IsBookCompleted: false,
			PendingQuizzes:  pending,
			NewBadges:       service.checkBadges(ctx, userID),
		}, nil
	}

	// ── 4. Completion ─────────────────────────────────────────────────────

	if err := service.repository.MarkBookRead(ctx, userID, meta.ID); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "book_completed",
		slog.String("user_id", userID),
		slog.String("book_id", meta.ID),
	)

	return &Result{IsBookCompleted: true, NewBadges: service.checkBadges(ctx, userID)}, nil
}

// contentComplete answers the content gate for either book shape.
func (service *Service) contentComplete(ctx context.Context, userID string, meta *BookMeta) (bool, error) {
	if meta.IsPlaylist {
		completed, total, err := service.repository.TrackCounts(ctx, userID, meta.ID)
		if err != nil {
			return false, err
		}
		return total > 0 && completed == total, nil
	}

	if meta.DurationSeconds <= 0 {
		return false, nil
	}

	played, err := service.repository.SingleFilePlayed(ctx, userID, []string{meta.ID})
	if err != nil {
		return false, err
	}

	fraction := float64(min(played[meta.ID], meta.DurationSeconds)) / float64(meta.DurationSeconds)
	return fraction >= singleFileReadThreshold, nil
}

// checkBadges runs the badge engine, swallowing failures. A broken badge
// query must never turn a successful progress write into a 500.
func (service *Service) checkBadges(ctx context.Context, userID string) []string {
	if service.badges == nil {
		return []string{}
	}

	newBadges, err := service.badges.Check(ctx, userID)
	if err != nil {
		service.logger.WarnContext(ctx, "badge_check_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return []string{}
	}

	if newBadges == nil {
		newBadges = []string{}
	}
	return newBadges
}

// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package progress

import (
	"context"
)

// Repository defines the data access contract for listening state.
//
// # Batch Shape
//
// The aggregation methods take book-id sets and return maps, so callers
// like the catalog listing resolve percentages for a whole page in a fixed
// number of queries.
type Repository interface {
	// UpsertPlayback records a playback high-water mark. The stored value
	// never decreases. trackID is nil for single-file books.
	UpsertPlayback(ctx context.Context, userID, bookID string, trackID *string, playedSeconds int) error

	// UpsertTrackProgress records the resume position inside a track.
	// Last write wins.
	UpsertTrackProgress(ctx context.Context, userID, trackID string, positionSeconds int) error

	// InsertCompletedTrack marks a track as finished. Returns false when the
	// track was already completed (the insert is idempotent).
	InsertCompletedTrack(ctx context.Context, userID, trackID string) (bool, error)

	// EnsureBookStarted creates the book state row on first contact and
	// refreshes lastaccessedat on every later one.
	EnsureBookStarted(ctx context.Context, userID, bookID string) error

	// MarkBookRead sets the sticky read flag, stamping completedat only the
	// first time.
	MarkBookRead(ctx context.Context, userID, bookID string) error

	// BookMeta returns the catalog facts about one book.
	//
	// Returns [apperr.NotFound] for unknown book IDs.
	BookMeta(ctx context.Context, bookID string) (*BookMeta, error)

	// TrackBook resolves the book a track belongs to.
	//
	// Returns [apperr.NotFound] for unknown track IDs.
	TrackBook(ctx context.Context, trackID string) (string, error)

	// TrackCounts returns (completed by the user, total) for a book's tracks.
	TrackCounts(ctx context.Context, userID, bookID string) (completed, total int, err error)

	// PendingQuizzes lists the IDs of the book's quizzes (book-level and
	// track-level) without a passing result from the user.
	PendingQuizzes(ctx context.Context, userID, bookID string) ([]string, error)

	// BookDurations returns catalog metadata for a set of books.
	BookDurations(ctx context.Context, bookIDs []string) (map[string]BookMeta, error)

	// ReadBooks returns the subset of bookIDs the user has finished.
	ReadBooks(ctx context.Context, userID string, bookIDs []string) (map[string]bool, error)

	// SingleFilePlayed returns the playback high-water mark per single-file
	// book in the set.
	SingleFilePlayed(ctx context.Context, userID string, bookIDs []string) (map[string]int, error)

	// PlaylistListened returns, per playlist book in the set, the summed
	// listened seconds: full track duration for completed tracks, the
	// playback high-water mark clamped to duration for the rest. Resume
	// positions never feed this sum.
	PlaylistListened(ctx context.Context, userID string, bookIDs []string) (map[string]int, error)
}

// BadgeChecker evaluates badge criteria after progress events. Implemented
// by the badge engine; declared here so progress does not depend on it.
type BadgeChecker interface {
	// Check awards any newly earned badges and returns their codes.
	Check(ctx context.Context, userID string) ([]string, error)
}

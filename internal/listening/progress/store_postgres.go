// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/postgres"
)

// PostgresRepository implements the progress Repository using pgx.
type PostgresRepository struct {
	db postgres.DB
}

// NewRepository creates a new PostgreSQL implementation of the progress Repository.
func NewRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// # Write Paths

// UpsertPlayback records a high-water mark. GREATEST keeps the stored value
// monotonic even when reports arrive late or out of order.
//
// The unique index on (userid, bookid, trackid) treats NULLs as equal, so
// single-file rows (trackid NULL) collapse into one row per book.
func (repository *PostgresRepository) UpsertPlayback(ctx context.Context, userID, bookID string, trackID *string, playedSeconds int) error {
	const query = `
		INSERT INTO listening.playback (userid, bookid, trackid, playedseconds, startedat, updatedat)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (userid, bookid, trackid) DO UPDATE SET
			playedseconds = GREATEST(listening.playback.playedseconds, EXCLUDED.playedseconds),
			updatedat     = NOW()`

	if _, err := repository.db.Exec(ctx, query, userID, bookID, trackID, playedSeconds); err != nil {
		return fmt.Errorf("postgres_progress_repo_upsert_playback_failed: %w", err)
	}

	return nil
}

// UpsertTrackProgress records the resume position. Last write wins: the
// resume point must follow the user backwards too.
func (repository *PostgresRepository) UpsertTrackProgress(ctx context.Context, userID, trackID string, positionSeconds int) error {
	const query = `
		INSERT INTO listening.trackprogress (userid, trackid, positionseconds, updatedat)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (userid, trackid) DO UPDATE SET
			positionseconds = EXCLUDED.positionseconds,
			updatedat       = NOW()`

	if _, err := repository.db.Exec(ctx, query, userID, trackID, positionSeconds); err != nil {
		return fmt.Errorf("postgres_progress_repo_upsert_track_progress_failed: %w", err)
	}

	return nil
}

// InsertCompletedTrack is idempotent; replays and double-taps award nothing
// twice. The bool reports whether this call was the first completion.
func (repository *PostgresRepository) InsertCompletedTrack(ctx context.Context, userID, trackID string) (bool, error) {
	const query = `
		INSERT INTO listening.completedtrack (userid, trackid, completedat)
		VALUES ($1, $2, NOW())
		ON CONFLICT (userid, trackid) DO NOTHING`

	tag, err := repository.db.Exec(ctx, query, userID, trackID)
	if err != nil {
		return false, fmt.Errorf("postgres_progress_repo_insert_completed_failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// EnsureBookStarted stamps first contact and refreshes lastaccessedat.
func (repository *PostgresRepository) EnsureBookStarted(ctx context.Context, userID, bookID string) error {
	const query = `
		INSERT INTO listening.bookstate (userid, bookid, isread, startedat, lastaccessedat)
		VALUES ($1, $2, FALSE, NOW(), NOW())
		ON CONFLICT (userid, bookid) DO UPDATE SET
			lastaccessedat = NOW()`

	if _, err := repository.db.Exec(ctx, query, userID, bookID); err != nil {
		return fmt.Errorf("postgres_progress_repo_ensure_started_failed: %w", err)
	}

	return nil
}

// MarkBookRead sets the sticky read flag. completedat is written once; a
// re-listen never moves the original completion date.
func (repository *PostgresRepository) MarkBookRead(ctx context.Context, userID, bookID string) error {
	const query = `
		INSERT INTO listening.bookstate (userid, bookid, isread, startedat, completedat, lastaccessedat)
		VALUES ($1, $2, TRUE, NOW(), NOW(), NOW())
		ON CONFLICT (userid, bookid) DO UPDATE SET
			isread         = TRUE,
			completedat    = COALESCE(listening.bookstate.completedat, EXCLUDED.completedat),
			lastaccessedat = NOW()`

	if _, err := repository.db.Exec(ctx, query, userID, bookID); err != nil {
		return fmt.Errorf("postgres_progress_repo_mark_read_failed: %w", err)
	}

	return nil
}

// # Catalog Lookups

// BookMeta returns the catalog facts about one book.
func (repository *PostgresRepository) BookMeta(ctx context.Context, bookID string) (*BookMeta, error) {
	const query = `SELECT id, isplaylist, durationseconds FROM catalog.book WHERE id = $1`

	meta := &BookMeta{}
	err := repository.db.QueryRow(ctx, query, bookID).Scan(&meta.ID, &meta.IsPlaylist, &meta.DurationSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Book")
		}
		return nil, fmt.Errorf("postgres_progress_repo_book_meta_failed: %w", err)
	}

	return meta, nil
}

// TrackBook resolves the owning book of a track.
func (repository *PostgresRepository) TrackBook(ctx context.Context, trackID string) (string, error) {
	const query = `SELECT bookid FROM catalog.track WHERE id = $1`

	var bookID string
	if err := repository.db.QueryRow(ctx, query, trackID).Scan(&bookID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("Track")
		}
		return "", fmt.Errorf("postgres_progress_repo_track_book_failed: %w", err)
	}

	return bookID, nil
}

// TrackCounts returns (completed by the user, total) for a book's tracks.
func (repository *PostgresRepository) TrackCounts(ctx context.Context, userID, bookID string) (int, int, error) {
	const query = `
		SELECT COUNT(ct.trackid), COUNT(*)
		FROM catalog.track t
		LEFT JOIN listening.completedtrack ct
			ON ct.trackid = t.id AND ct.userid = $1
		WHERE t.bookid = $2`

	var completed, total int
	if err := repository.db.QueryRow(ctx, query, userID, bookID).Scan(&completed, &total); err != nil {
		return 0, 0, fmt.Errorf("postgres_progress_repo_track_counts_failed: %w", err)
	}

	return completed, total, nil
}

// PendingQuizzes lists quiz IDs still blocking the user's completion of the
// book. A quiz counts as passed when ANY of the user's attempts passed.
func (repository *PostgresRepository) PendingQuizzes(ctx context.Context, userID, bookID string) ([]string, error) {
	const query = `
		SELECT q.id
		FROM listening.quiz q
		WHERE q.bookid = $2
		AND NOT EXISTS (
			SELECT 1 FROM listening.quizresult r
			WHERE r.quizid = q.id AND r.userid = $1 AND r.ispassed
		)
		ORDER BY q.id`

	rows, err := repository.db.Query(ctx, query, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_pending_quizzes_failed: %w", err)
	}
	defer rows.Close()

	var pending []string
	for rows.Next() {
		var quizID string
		if err := rows.Scan(&quizID); err != nil {
			return nil, fmt.Errorf("postgres_progress_repo_pending_quizzes_scan_failed: %w", err)
		}
		pending = append(pending, quizID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_pending_quizzes_rows_failed: %w", err)
	}

	return pending, nil
}

// # Batch Aggregation Queries

// BookDurations returns catalog metadata for a set of books in one query.
func (repository *PostgresRepository) BookDurations(ctx context.Context, bookIDs []string) (map[string]BookMeta, error) {
	const query = `SELECT id, isplaylist, durationseconds FROM catalog.book WHERE id = ANY($1)`

	rows, err := repository.db.Query(ctx, query, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_book_durations_failed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]BookMeta, len(bookIDs))
	for rows.Next() {
		var meta BookMeta
		if err := rows.Scan(&meta.ID, &meta.IsPlaylist, &meta.DurationSeconds); err != nil {
			return nil, fmt.Errorf("postgres_progress_repo_book_durations_scan_failed: %w", err)
		}
		result[meta.ID] = meta
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_book_durations_rows_failed: %w", err)
	}

	return result, nil
}

// ReadBooks returns the subset of bookIDs the user has finished.
func (repository *PostgresRepository) ReadBooks(ctx context.Context, userID string, bookIDs []string) (map[string]bool, error) {
	const query = `
		SELECT bookid FROM listening.bookstate
		WHERE userid = $1 AND bookid = ANY($2) AND isread`

	rows, err := repository.db.Query(ctx, query, userID, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_read_books_failed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var bookID string
		if err := rows.Scan(&bookID); err != nil {
			return nil, fmt.Errorf("postgres_progress_repo_read_books_scan_failed: %w", err)
		}
		result[bookID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_read_books_rows_failed: %w", err)
	}

	return result, nil
}

// SingleFilePlayed returns the per-book playback high-water mark for
// single-file rows (trackid IS NULL).
func (repository *PostgresRepository) SingleFilePlayed(ctx context.Context, userID string, bookIDs []string) (map[string]int, error) {
	const query = `
		SELECT bookid, MAX(playedseconds)
		FROM listening.playback
		WHERE userid = $1 AND bookid = ANY($2) AND trackid IS NULL
		GROUP BY bookid`

	rows, err := repository.db.Query(ctx, query, userID, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_single_file_played_failed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var bookID string
		var played int
		if err := rows.Scan(&bookID, &played); err != nil {
			return nil, fmt.Errorf("postgres_progress_repo_single_file_played_scan_failed: %w", err)
		}
		result[bookID] = played
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_single_file_played_rows_failed: %w", err)
	}

	return result, nil
}

// PlaylistListened sums the listened seconds per playlist book: completed
// tracks count their full duration, the rest count the playback high-water
// mark clamped to the track duration. The high-water mark never decreases,
// so a seek backwards cannot shrink the sum; the resume position in
// trackprogress exists only for "continue where you left off" and never
// feeds aggregation. The per-track LEAST bounds each term, so the sum can
// never exceed the book total.
func (repository *PostgresRepository) PlaylistListened(ctx context.Context, userID string, bookIDs []string) (map[string]int, error) {
	const query = `
		SELECT t.bookid,
			COALESCE(SUM(
				CASE WHEN ct.trackid IS NOT NULL THEN t.durationseconds
				ELSE LEAST(COALESCE(pb.playedseconds, 0), t.durationseconds)
				END
			), 0)
		FROM catalog.track t
		LEFT JOIN listening.completedtrack ct
			ON ct.trackid = t.id AND ct.userid = $1
		LEFT JOIN listening.playback pb
			ON pb.trackid = t.id AND pb.bookid = t.bookid AND pb.userid = $1
		WHERE t.bookid = ANY($2)
		GROUP BY t.bookid`

	rows, err := repository.db.Query(ctx, query, userID, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_playlist_listened_failed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var bookID string
		var listened int
		if err := rows.Scan(&bookID, &listened); err != nil {
			return nil, fmt.Errorf("postgres_progress_repo_playlist_listened_scan_failed: %w", err)
		}
		result[bookID] = listened
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_progress_repo_playlist_listened_rows_failed: %w", err)
	}

	return result, nil
}

// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package progress

import (
	"context"
	"fmt"
	"math"
)

/*
ListenPercentages computes the listen percentage for a set of books.

Description:

	Resolves a whole page of books in four grouped queries (metadata, read
	flags, single-file marks, playlist sums) regardless of the set size.
	Per-book rules:

	  - A read book is 100, permanently. Percentages can look lower after
	    completion (quiz-gated completion, rounded sums); the sticky flag
	    wins.
	  - A book with nonpositive duration is 0; there is nothing to divide by.
	  - Single-file: high-water mark over duration, clamped to the duration
	    first so a client reporting past the end cannot exceed 100.
	  - Playlist: summed listened seconds over duration. Each track's term
	    is already bounded by its own duration, so no final clamp is needed.

	Results are rounded to two decimals. Books absent from the map were not
	in the catalog.

Parameters:
  - userID: The listener whose progress is computed.
  - bookIDs: The books to resolve. Duplicates are harmless.

Returns:
  - A bookID -> percentage map covering every catalog-known input ID.
*/
func (service *Service) ListenPercentages(ctx context.Context, userID string, bookIDs []string) (map[string]float64, error) {
	if len(bookIDs) == 0 {
		return map[string]float64{}, nil
	}

	// ── 1. Batch Loads ────────────────────────────────────────────────────

	metas, err := service.repository.BookDurations(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("progress_aggregate_durations_failed: %w", err)
	}

	readBooks, err := service.repository.ReadBooks(ctx, userID, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("progress_aggregate_read_books_failed: %w", err)
	}

	singleFilePlayed, err := service.repository.SingleFilePlayed(ctx, userID, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("progress_aggregate_single_file_failed: %w", err)
	}

	playlistListened, err := service.repository.PlaylistListened(ctx, userID, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("progress_aggregate_playlist_failed: %w", err)
	}

	// ── 2. Per-Book Rules ─────────────────────────────────────────────────

	percentages := make(map[string]float64, len(metas))
	for bookID, meta := range metas {
		switch {
		case readBooks[bookID]:
			percentages[bookID] = 100

		case meta.DurationSeconds <= 0:
			percentages[bookID] = 0

		case meta.IsPlaylist:
			percentages[bookID] = round2(float64(playlistListened[bookID]) / float64(meta.DurationSeconds) * 100)

		default:
			played := min(singleFilePlayed[bookID], meta.DurationSeconds)
			percentages[bookID] = round2(float64(played) / float64(meta.DurationSeconds) * 100)
		}
	}

	return percentages, nil
}

// ListenPercentage computes the listen percentage for a single book.
func (service *Service) ListenPercentage(ctx context.Context, userID, bookID string) (float64, error) {
	percentages, err := service.ListenPercentages(ctx, userID, []string{bookID})
	if err != nil {
		return 0, err
	}

	// Unknown books read as 0 rather than an error; listings may race
	// against catalog deletions.
	return percentages[bookID], nil
}

// round2 rounds to two decimal places, half away from zero.
func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package badge

import (
	"context"
	"time"
)

// Repository provides access to badge definitions and awards.
type Repository interface {
	// Description:
	//
	//	Unearned returns the badge definitions the user has not been
	//	awarded yet. The engine only evaluates these.
	Unearned(ctx context.Context, userID string) ([]Badge, error)

	// Description:
	//
	//	Earned returns the user's awarded badges, newest first.
	Earned(ctx context.Context, userID string) ([]UserBadge, error)

	// Description:
	//
	//	Award records an award. A concurrent or repeated award of the
	//	same badge is absorbed silently; the return value reports
	//	whether this call created the row.
	Award(ctx context.Context, userID, badgeID string) (bool, error)
}

// StatsRepository reads the listening aggregates the criteria compare
// against. Each method is a single grouped query; the engine calls only
// the ones the user's unearned kinds need.
type StatsRepository interface {
	// HasPlayback reports whether the user has reported any playback.
	HasPlayback(ctx context.Context, userID string) (bool, error)

	// ListenDates returns the distinct UTC dates the user listened on,
	// in ascending order, truncated to midnight.
	ListenDates(ctx context.Context, userID string) ([]time.Time, error)

	// TotalListenSeconds returns the sum of reported playback seconds.
	TotalListenSeconds(ctx context.Context, userID string) (int64, error)

	// BooksRead returns the number of books the user has finished.
	BooksRead(ctx context.Context, userID string) (int, error)

	// GenresRead returns the number of distinct categories among the
	// user's finished books.
	GenresRead(ctx context.Context, userID string) (int, error)

	// FastestFinishSeconds returns the smallest completedat-startedat
	// interval among finished books, and false when no book carries
	// both timestamps.
	FastestFinishSeconds(ctx context.Context, userID string) (int64, bool, error)

	// CompletionTimes returns the completion timestamps of finished
	// books in ascending order.
	CompletionTimes(ctx context.Context, userID string) ([]time.Time, error)

	// HasNightListen reports whether any playback session started
	// between 00:00 and 04:59 UTC.
	HasNightListen(ctx context.Context, userID string) (bool, error)

	// HasWeekendFinish reports whether any book was completed on a
	// Saturday or Sunday.
	HasWeekendFinish(ctx context.Context, userID string) (bool, error)
}

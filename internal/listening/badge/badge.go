// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

// Package badge implements the achievement engine.
//
// # Architecture
//
// Badges are data: rows in listening.badge with a Kind (the criterion
// family) and a Threshold (the number the criterion compares against).
// Adding a new badge of an existing kind is an INSERT, not a deploy. The
// engine re-checks a user's unearned badges after progress events and
// awards idempotently.
package badge

import (
	"fmt"
	"time"
)

// Kind selects the criterion family a badge is evaluated with.
type Kind string

const (
	// KindFirstListen fires on the user's first playback report.
	KindFirstListen Kind = "first_listen"

	// KindWeeklySessions requires listening on N distinct days within the
	// last 7 days.
	KindWeeklySessions Kind = "weekly_sessions"

	// KindDailyStreak requires a run of N consecutive listen dates.
	KindDailyStreak Kind = "daily_streak"

	// KindListenTime requires N total listened seconds.
	KindListenTime Kind = "listen_time"

	// KindBooksRead requires N finished books.
	KindBooksRead Kind = "books_read"

	// KindGenreDiversity requires finished books across N distinct categories.
	KindGenreDiversity Kind = "genre_diversity"

	// KindFastFinish requires finishing some book within N hours of starting it.
	KindFastFinish Kind = "fast_finish"

	// KindBinge requires N book completions inside any 7-day window.
	KindBinge Kind = "binge"

	// KindNightOwl fires on a listening session started between 00:00 and 04:59.
	KindNightOwl Kind = "night_owl"

	// KindWeekendFinish fires on a book completed on a Saturday or Sunday.
	KindWeekendFinish Kind = "weekend_finish"
)

// ParseKind validates a kind string loaded from storage.
func ParseKind(raw string) (Kind, error) {
	switch kind := Kind(raw); kind {
	case KindFirstListen, KindWeeklySessions, KindDailyStreak, KindListenTime,
		KindBooksRead, KindGenreDiversity, KindFastFinish, KindBinge,
		KindNightOwl, KindWeekendFinish:
		return kind, nil
	}
	return "", fmt.Errorf("badge: unknown kind %q", raw)
}

// Badge is an achievement definition.
//
// Threshold units depend on Kind: days for streaks and weekly sessions,
// seconds for listen time, hours for fast finish, counts for the rest.
// Kinds with an inherent criterion (first_listen, night_owl,
// weekend_finish) ignore it.
type Badge struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Threshold int    `json:"threshold"`
}

// UserBadge is an awarded achievement.
type UserBadge struct {
	Badge
	AwardedAt time.Time `json:"awarded_at"`
}

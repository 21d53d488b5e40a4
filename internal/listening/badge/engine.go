// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package badge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// bingeWindow is the sliding window binge badges count completions in.
const bingeWindow = 7 * 24 * time.Hour

// Engine evaluates badge criteria against a user's listening history.
type Engine struct {
	repository Repository
	stats      StatsRepository
	logger     *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewEngine(repository Repository, stats StatsRepository, logger *slog.Logger) *Engine {
	return &Engine{
		repository: repository,
		stats:      stats,
		logger:     logger,
		now:        time.Now,
	}
}

// Description:
//
//	Check evaluates every badge the user has not earned yet and awards
//	the ones whose criterion is now met. Stats are loaded lazily; a
//	user whose unearned badges are all streak-based costs one query.
//
// Parameters:
//   - ctx: Request context.
//   - userID: Account to evaluate.
//
// Returns:
//   - []string: Codes of badges awarded by this call, never nil.
//   - error: Storage failure while loading definitions or stats.
func (e *Engine) Check(ctx context.Context, userID string) ([]string, error) {
	unearned, err := e.repository.Unearned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("badge_engine_check_failed: %w", err)
	}

	awarded := []string{}
	loader := &statsLoader{stats: e.stats, userID: userID}

	for _, b := range unearned {
		kind, err := ParseKind(string(b.Kind))
		if err != nil {
			e.logger.Warn("badge definition skipped", "badge_code", b.Code, "error", err)
			continue
		}

		met, err := e.evaluate(ctx, loader, kind, b.Threshold)
		if err != nil {
			return nil, fmt.Errorf("badge_engine_check_failed: %w", err)
		}
		if !met {
			continue
		}

		created, err := e.repository.Award(ctx, userID, b.ID)
		if err != nil {
			return nil, fmt.Errorf("badge_engine_check_failed: %w", err)
		}
		if created {
			e.logger.Info("badge awarded", "user_id", userID, "badge_code", b.Code)
			awarded = append(awarded, b.Code)
		}
	}
	return awarded, nil
}

func (e *Engine) evaluate(ctx context.Context, loader *statsLoader, kind Kind, threshold int) (bool, error) {
	switch kind {
	case KindFirstListen:
		return loader.hasPlayback(ctx)

	case KindWeeklySessions:
		dates, err := loader.listenDates(ctx)
		if err != nil {
			return false, err
		}
		return recentDays(dates, e.now().UTC()) >= threshold, nil

	case KindDailyStreak:
		dates, err := loader.listenDates(ctx)
		if err != nil {
			return false, err
		}
		return longestStreak(dates) >= threshold, nil

	case KindListenTime:
		total, err := loader.totalSeconds(ctx)
		if err != nil {
			return false, err
		}
		return total >= int64(threshold), nil

	case KindBooksRead:
		count, err := loader.booksRead(ctx)
		if err != nil {
			return false, err
		}
		return count >= threshold, nil

	case KindGenreDiversity:
		count, err := loader.genresRead(ctx)
		if err != nil {
			return false, err
		}
		return count >= threshold, nil

	case KindFastFinish:
		fastest, ok, err := loader.fastestFinish(ctx)
		if err != nil {
			return false, err
		}
		return ok && fastest < int64(threshold)*3600, nil

	case KindBinge:
		times, err := loader.completionTimes(ctx)
		if err != nil {
			return false, err
		}
		return maxInWindow(times, bingeWindow) >= threshold, nil

	case KindNightOwl:
		return loader.hasNightListen(ctx)

	case KindWeekendFinish:
		return loader.hasWeekendFinish(ctx)
	}
	return false, nil
}

// #############################################################################
// # Criterion math
// #############################################################################

// recentDays counts the distinct listen dates falling within the last
// 7 days, the current date included.
func recentDays(dates []time.Time, now time.Time) int {
	cutoff := now.Truncate(24 * time.Hour).AddDate(0, 0, -6)
	count := 0
	for _, d := range dates {
		if !d.Before(cutoff) {
			count++
		}
	}
	return count
}

// longestStreak returns the length of the longest run of consecutive
// dates. The input must be sorted ascending and free of duplicates.
func longestStreak(dates []time.Time) int {
	longest, run := 0, 0
	for i, d := range dates {
		if i > 0 && d.Sub(dates[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// maxInWindow returns the largest number of timestamps whose spread is
// at most the window width. The window is inclusive at both ends.
func maxInWindow(times []time.Time, window time.Duration) int {
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	best, lo := 0, 0
	for hi := range times {
		for times[hi].Sub(times[lo]) > window {
			lo++
		}
		if n := hi - lo + 1; n > best {
			best = n
		}
	}
	return best
}

// #############################################################################
// # Lazy stats
// #############################################################################

// statsLoader memoizes stat queries for the duration of one Check so
// that several badges of the same kind share a single query.
type statsLoader struct {
	stats  StatsRepository
	userID string

	playback      *bool
	dates         []time.Time
	datesLoaded   bool
	seconds       *int64
	books         *int
	genres        *int
	fastest       *int64
	fastestOK     bool
	fastestLoaded bool
	completions   []time.Time
	compLoaded    bool
	night         *bool
	weekend       *bool
}

func (l *statsLoader) hasPlayback(ctx context.Context) (bool, error) {
	if l.playback == nil {
		v, err := l.stats.HasPlayback(ctx, l.userID)
		if err != nil {
			return false, err
		}
		l.playback = &v
	}
	return *l.playback, nil
}

func (l *statsLoader) listenDates(ctx context.Context) ([]time.Time, error) {
	if !l.datesLoaded {
		v, err := l.stats.ListenDates(ctx, l.userID)
		if err != nil {
			return nil, err
		}
		l.dates, l.datesLoaded = v, true
	}
	return l.dates, nil
}

func (l *statsLoader) totalSeconds(ctx context.Context) (int64, error) {
	if l.seconds == nil {
		v, err := l.stats.TotalListenSeconds(ctx, l.userID)
		if err != nil {
			return 0, err
		}
		l.seconds = &v
	}
	return *l.seconds, nil
}

func (l *statsLoader) booksRead(ctx context.Context) (int, error) {
	if l.books == nil {
		v, err := l.stats.BooksRead(ctx, l.userID)
		if err != nil {
			return 0, err
		}
		l.books = &v
	}
	return *l.books, nil
}

func (l *statsLoader) genresRead(ctx context.Context) (int, error) {
	if l.genres == nil {
		v, err := l.stats.GenresRead(ctx, l.userID)
		if err != nil {
			return 0, err
		}
		l.genres = &v
	}
	return *l.genres, nil
}

func (l *statsLoader) fastestFinish(ctx context.Context) (int64, bool, error) {
	if !l.fastestLoaded {
		v, ok, err := l.stats.FastestFinishSeconds(ctx, l.userID)
		if err != nil {
			return 0, false, err
		}
		l.fastest, l.fastestOK, l.fastestLoaded = &v, ok, true
	}
	return *l.fastest, l.fastestOK, nil
}

func (l *statsLoader) completionTimes(ctx context.Context) ([]time.Time, error) {
	if !l.compLoaded {
		v, err := l.stats.CompletionTimes(ctx, l.userID)
		if err != nil {
			return nil, err
		}
		l.completions, l.compLoaded = v, true
	}
	return l.completions, nil
}

func (l *statsLoader) hasNightListen(ctx context.Context) (bool, error) {
	if l.night == nil {
		v, err := l.stats.HasNightListen(ctx, l.userID)
		if err != nil {
			return false, err
		}
		l.night = &v
	}
	return *l.night, nil
}

func (l *statsLoader) hasWeekendFinish(ctx context.Context) (bool, error) {
	if l.weekend == nil {
		v, err := l.stats.HasWeekendFinish(ctx, l.userID)
		if err != nil {
			return false, err
		}
		l.weekend = &v
	}
	return *l.weekend, nil
}

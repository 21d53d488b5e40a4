// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package badge

import (
	"context"
	"fmt"
	"time"

	"github.com/audira/audira/internal/platform/postgres"
)

// #############################################################################
// # Badge repository
// #############################################################################

type PostgresRepository struct {
	db postgres.DB
}

func NewPostgresRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Unearned(ctx context.Context, userID string) ([]Badge, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.id, b.code, b.name, b.kind, b.threshold
		FROM listening.badge b
		WHERE NOT EXISTS (
			SELECT 1 FROM listening.userbadge ub
			WHERE ub.badgeid = b.id AND ub.userid = $1
		)
		ORDER BY b.code`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("badge_repository_unearned_failed: %w", err)
	}
	defer rows.Close()

	var badges []Badge
	for rows.Next() {
		var b Badge
		var kind string
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &kind, &b.Threshold); err != nil {
			return nil, fmt.Errorf("badge_repository_unearned_failed: %w", err)
		}
		b.Kind = Kind(kind)
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("badge_repository_unearned_failed: %w", err)
	}
	return badges, nil
}

func (r *PostgresRepository) Earned(ctx context.Context, userID string) ([]UserBadge, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.id, b.code, b.name, b.kind, b.threshold, ub.awardedat
		FROM listening.userbadge ub
		JOIN listening.badge b ON b.id = ub.badgeid
		WHERE ub.userid = $1
		ORDER BY ub.awardedat DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("badge_repository_earned_failed: %w", err)
	}
	defer rows.Close()

	var earned []UserBadge
	for rows.Next() {
		var ub UserBadge
		var kind string
		if err := rows.Scan(&ub.ID, &ub.Code, &ub.Name, &kind, &ub.Threshold, &ub.AwardedAt); err != nil {
			return nil, fmt.Errorf("badge_repository_earned_failed: %w", err)
		}
		ub.Kind = Kind(kind)
		earned = append(earned, ub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("badge_repository_earned_failed: %w", err)
	}
	return earned, nil
}

func (r *PostgresRepository) Award(ctx context.Context, userID, badgeID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO listening.userbadge (userid, badgeid, awardedat)
		VALUES ($1, $2, NOW())
		ON CONFLICT (userid, badgeid) DO NOTHING`,
		userID, badgeID,
	)
	if err != nil {
		return false, fmt.Errorf("badge_repository_award_failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// #############################################################################
// # Stats repository
// #############################################################################

type PostgresStatsRepository struct {
	db postgres.DB
}

func NewPostgresStatsRepository(db postgres.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

func (r *PostgresStatsRepository) HasPlayback(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM listening.playback WHERE userid = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("badge_stats_has_playback_failed: %w", err)
	}
	return exists, nil
}

func (r *PostgresStatsRepository) ListenDates(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT DATE_TRUNC('day', updatedat AT TIME ZONE 'UTC') AS day
		FROM listening.playback
		WHERE userid = $1
		ORDER BY day`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("badge_stats_listen_dates_failed: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("badge_stats_listen_dates_failed: %w", err)
		}
		dates = append(dates, day.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("badge_stats_listen_dates_failed: %w", err)
	}
	return dates, nil
}

func (r *PostgresStatsRepository) TotalListenSeconds(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(playedseconds), 0)
		FROM listening.playback
		WHERE userid = $1`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("badge_stats_total_listen_seconds_failed: %w", err)
	}
	return total, nil
}

func (r *PostgresStatsRepository) BooksRead(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM listening.bookstate
		WHERE userid = $1 AND isread`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("badge_stats_books_read_failed: %w", err)
	}
	return count, nil
}

func (r *PostgresStatsRepository) GenresRead(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT b.categoryid)
		FROM listening.bookstate bs
		JOIN catalog.book b ON b.id = bs.bookid
		WHERE bs.userid = $1 AND bs.isread`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("badge_stats_genres_read_failed: %w", err)
	}
	return count, nil
}

func (r *PostgresStatsRepository) FastestFinishSeconds(ctx context.Context, userID string) (int64, bool, error) {
	var seconds *int64
	err := r.db.QueryRow(ctx, `
		SELECT MIN(EXTRACT(EPOCH FROM (completedat - startedat)))::BIGINT
		FROM listening.bookstate
		WHERE userid = $1 AND isread
			AND completedat IS NOT NULL AND startedat IS NOT NULL`,
		userID,
	).Scan(&seconds)
	if err != nil {
		return 0, false, fmt.Errorf("badge_stats_fastest_finish_failed: %w", err)
	}
	if seconds == nil {
		return 0, false, nil
	}
	return *seconds, true, nil
}

func (r *PostgresStatsRepository) CompletionTimes(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT completedat
		FROM listening.bookstate
		WHERE userid = $1 AND isread AND completedat IS NOT NULL
		ORDER BY completedat`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("badge_stats_completion_times_failed: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("badge_stats_completion_times_failed: %w", err)
		}
		times = append(times, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("badge_stats_completion_times_failed: %w", err)
	}
	return times, nil
}

func (r *PostgresStatsRepository) HasNightListen(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM listening.playback
			WHERE userid = $1
				AND EXTRACT(HOUR FROM startedat AT TIME ZONE 'UTC') BETWEEN 0 AND 4
		)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("badge_stats_has_night_listen_failed: %w", err)
	}
	return exists, nil
}

func (r *PostgresStatsRepository) HasWeekendFinish(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM listening.bookstate
			WHERE userid = $1 AND isread AND completedat IS NOT NULL
				AND EXTRACT(ISODOW FROM completedat AT TIME ZONE 'UTC') >= 6
		)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("badge_stats_has_weekend_finish_failed: %w", err)
	}
	return exists, nil
}

// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package book

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/postgres"
)

const bookColumns = "id, title, slug, categoryid, isplaylist, durationseconds, createdat"

type PostgresRepository struct {
	db postgres.DB
}

func NewPostgresRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListBooks(ctx context.Context, categorySlug string, limit, offset int) ([]Book, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.`+bookColumns+`
		FROM catalog.book b
		JOIN catalog.category c ON c.id = b.categoryid
		WHERE $1 = '' OR c.slug = $1
		ORDER BY b.createdat DESC, b.id
		LIMIT $2 OFFSET $3`,
		categorySlug, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("book_repository_list_failed: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Slug, &b.CategoryID, &b.IsPlaylist, &b.DurationSeconds, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("book_repository_list_failed: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("book_repository_list_failed: %w", err)
	}
	return books, nil
}

func (r *PostgresRepository) CountBooks(ctx context.Context, categorySlug string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM catalog.book b
		JOIN catalog.category c ON c.id = b.categoryid
		WHERE $1 = '' OR c.slug = $1`,
		categorySlug,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("book_repository_count_failed: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) FindBook(ctx context.Context, bookID string) (*Book, error) {
	var b Book
	err := r.db.QueryRow(ctx, `
		SELECT `+bookColumns+`
		FROM catalog.book
		WHERE id = $1`,
		bookID,
	).Scan(&b.ID, &b.Title, &b.Slug, &b.CategoryID, &b.IsPlaylist, &b.DurationSeconds, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Book")
	}
	if err != nil {
		return nil, fmt.Errorf("book_repository_find_failed: %w", err)
	}
	return &b, nil
}

func (r *PostgresRepository) TracksWithListening(ctx context.Context, userID, bookID string) ([]TrackListening, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.title, t.durationseconds, t.position,
			COALESCE(tp.positionseconds, 0),
			ct.trackid IS NOT NULL
		FROM catalog.track t
		LEFT JOIN listening.trackprogress tp
			ON tp.trackid = t.id AND tp.userid = $1
		LEFT JOIN listening.completedtrack ct
			ON ct.trackid = t.id AND ct.userid = $1
		WHERE t.bookid = $2
		ORDER BY t.position`,
		userID, bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("book_repository_tracks_failed: %w", err)
	}
	defer rows.Close()

	tracks := []TrackListening{}
	for rows.Next() {
		var t TrackListening
		if err := rows.Scan(&t.ID, &t.Title, &t.DurationSeconds, &t.Position, &t.PositionSeconds, &t.IsCompleted); err != nil {
			return nil, fmt.Errorf("book_repository_tracks_failed: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("book_repository_tracks_failed: %w", err)
	}
	return tracks, nil
}

func (r *PostgresRepository) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, parentid, name, slug
		FROM catalog.category
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("book_repository_categories_failed: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("book_repository_categories_failed: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("book_repository_categories_failed: %w", err)
	}
	return categories, nil
}

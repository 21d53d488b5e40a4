// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/internal/platform/postgres"
)

// PostgresRepository implements the quiz Repository using pgx.
type PostgresRepository struct {
	db postgres.DB
}

// NewRepository creates a new PostgreSQL implementation of the quiz Repository.
func NewRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindQuiz returns the quiz with the given ID.
func (repository *PostgresRepository) FindQuiz(ctx context.Context, quizID string) (*Quiz, error) {
	const query = `SELECT id, bookid, trackid, title FROM listening.quiz WHERE id = $1`

	quiz := &Quiz{}
	err := repository.db.QueryRow(ctx, query, quizID).Scan(&quiz.ID, &quiz.BookID, &quiz.TrackID, &quiz.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Quiz")
		}
		return nil, fmt.Errorf("postgres_quiz_repo_find_failed: %w", err)
	}

	return quiz, nil
}

// ListByBook returns the book's quizzes, book-level first.
func (repository *PostgresRepository) ListByBook(ctx context.Context, bookID string) ([]Quiz, error) {
	const query = `
		SELECT id, bookid, trackid, title
		FROM listening.quiz
		WHERE bookid = $1
		ORDER BY trackid NULLS FIRST, id`

	rows, err := repository.db.Query(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("postgres_quiz_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var quizzes []Quiz
	for rows.Next() {
		var quiz Quiz
		if err := rows.Scan(&quiz.ID, &quiz.BookID, &quiz.TrackID, &quiz.Title); err != nil {
			return nil, fmt.Errorf("postgres_quiz_repo_list_scan_failed: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_quiz_repo_list_rows_failed: %w", err)
	}

	return quizzes, nil
}

// InsertResult appends an attempt row.
func (repository *PostgresRepository) InsertResult(ctx context.Context, result *Result) error {
	const query = `
		INSERT INTO listening.quizresult (userid, quizid, ispassed, score, createdat)
		VALUES ($1, $2, $3, $4, $5)`

	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	if _, err := repository.db.Exec(ctx, query,
		result.UserID,
		result.QuizID,
		result.IsPassed,
		result.Score,
		result.CreatedAt,
	); err != nil {
		return fmt.Errorf("postgres_quiz_repo_insert_result_failed: %w", err)
	}

	return nil
}

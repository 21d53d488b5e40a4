// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package quiz

import (
	"context"
)

// Repository defines the data access contract for quizzes and attempts.
type Repository interface {
	// FindQuiz returns the quiz with the given ID.
	//
	// Returns [apperr.NotFound] if the quiz does not exist.
	FindQuiz(ctx context.Context, quizID string) (*Quiz, error)

	// ListByBook returns the book's quizzes, book-level first.
	ListByBook(ctx context.Context, bookID string) ([]Quiz, error)

	// InsertResult appends an attempt. Attempts are never overwritten;
	// history is kept for score display.
	InsertResult(ctx context.Context, result *Result) error
}

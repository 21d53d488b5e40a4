// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package quiz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/audira/audira/internal/listening/progress"
)

// BookEvaluator re-runs the completion verdict for a book. Implemented by
// the progress service.
type BookEvaluator interface {
	EvaluateBook(ctx context.Context, userID, bookID string) (*progress.Result, error)
}

// Service implements quiz submission use cases.
type Service struct {
	repository Repository
	evaluator  BookEvaluator
	logger     *slog.Logger
}

// NewService constructs a new quiz [Service].
func NewService(repository Repository, evaluator BookEvaluator, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		evaluator:  evaluator,
		logger:     logger,
	}
}

// SubmitInput is one quiz attempt from the client.
type SubmitInput struct {
	UserID string
	QuizID string
	Score  int // percent, 0-100
}

// Submission is the outcome of a quiz attempt: the graded attempt plus the
// book's refreshed completion verdict.
type Submission struct {
	IsPassed   bool             `json:"is_passed"`
	Score      int              `json:"score"`
	Evaluation *progress.Result `json:"evaluation"`
}

/*
SubmitResult grades and stores a quiz attempt, then re-evaluates the book.

Description:

	Pass/fail is decided server-side from the score so a tampered client
	cannot mark itself passed. Failing is not an error: the attempt is
	stored (history feeds score displays) and the book verdict simply
	stays incomplete. Passing the last pending quiz of a fully listened
	book flips it to read in the same request.
*/
func (service *Service) SubmitResult(ctx context.Context, input SubmitInput) (*Submission, error) {
	quiz, err := service.repository.FindQuiz(ctx, input.QuizID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		UserID:   input.UserID,
		QuizID:   quiz.ID,
		Score:    input.Score,
		IsPassed: input.Score >= PassingScore,
	}

	if err := service.repository.InsertResult(ctx, result); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "quiz_attempt_recorded",
		slog.String("user_id", input.UserID),
		slog.String("quiz_id", quiz.ID),
		slog.Int("score", input.Score),
		slog.Bool("passed", result.IsPassed),
	)

	evaluation, err := service.evaluator.EvaluateBook(ctx, input.UserID, quiz.BookID)
	if err != nil {
		return nil, fmt.Errorf("quiz_service_evaluation_failed: %w", err)
	}

	return &Submission{
		IsPassed:   result.IsPassed,
		Score:      result.Score,
		Evaluation: evaluation,
	}, nil
}

// ListByBook returns the quizzes attached to a book.
func (service *Service) ListByBook(ctx context.Context, bookID string) ([]Quiz, error) {
	return service.repository.ListByBook(ctx, bookID)
}

// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

// Package quiz stores comprehension quiz results and feeds them into the
// book completion gate.
package quiz

import (
	"time"
)

// PassingScore is the minimum score (percent) that counts as passing.
const PassingScore = 70

// Quiz is a comprehension check attached to a book, or to one of its
// tracks (TrackID set).
type Quiz struct {
	ID      string  `json:"id"`
	BookID  string  `json:"book_id"`
	TrackID *string `json:"track_id,omitempty"`
	Title   string  `json:"title"`
}

// Result is one attempt at a quiz. Attempts accumulate; the completion gate
// asks only whether any attempt passed.
type Result struct {
	UserID    string    `json:"user_id"`
	QuizID    string    `json:"quiz_id"`
	IsPassed  bool      `json:"is_passed"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

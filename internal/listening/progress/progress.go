// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

// Package progress tracks what a user has listened to and decides when a
// book counts as finished.
//
// # Architecture
//
// Three write paths feed this package: periodic playback reports from the
// player, explicit track completions, and quiz submissions (via the quiz
// package). All three converge on the same evaluation: a book is read when
// every piece of content is consumed AND every attached quiz has been
// passed. The read flag is sticky; nothing un-reads a book.
package progress

import (
	"time"
)

// PlaybackRecord is the high-water mark of listening on one playable unit.
// TrackID is nil for single-file books, whose audio is one stream.
//
// # Rules
//   - PlayedSeconds only grows. A client reporting a lower value (seek
//     backwards, delayed retry) never shrinks the stored mark.
type PlaybackRecord struct {
	UserID        string    `json:"user_id"`
	BookID        string    `json:"book_id"`
	TrackID       *string   `json:"track_id,omitempty"`
	PlayedSeconds int       `json:"played_seconds"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TrackProgress is the resume position inside a playlist track. Unlike the
// playback high-water mark it is last-write-wins: seeking backwards moves
// the resume point backwards.
type TrackProgress struct {
	UserID          string    `json:"user_id"`
	TrackID         string    `json:"track_id"`
	PositionSeconds int       `json:"position_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookState is the per-user lifecycle of one book.
type BookState struct {
	UserID         string     `json:"user_id"`
	BookID         string     `json:"book_id"`
	IsRead         bool       `json:"is_read"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
}

// BookMeta is the slice of catalog data the evaluator and aggregator need.
type BookMeta struct {
	ID              string
	IsPlaylist      bool
	DurationSeconds int
}

// Result is the outcome of a progress-affecting operation.
//
// PendingQuizzes is informational, never an error: the client shows the
// user which quizzes still stand between them and book completion.
type Result struct {
	IsBookCompleted bool     `json:"is_book_completed"`
	PendingQuizzes  []string `json:"pending_quizzes,omitempty"`
	NewBadges       []string `json:"new_badges"`
}

// singleFileReadThreshold is the fraction of a single-file book that counts
// as having listened to the whole thing. Outros and credits mean almost
// nobody reaches the literal last second.
const singleFileReadThreshold = 0.95

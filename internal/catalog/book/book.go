// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

// Package book serves the audiobook catalog: paginated listings with
// per-caller listen percentages, book detail with resume positions, and
// the category tree.
package book

import "time"

// Category is a catalog category. Categories form a tree via ParentID;
// root categories carry a nil parent.
type Category struct {
	ID       int    `json:"id"`
	ParentID *int   `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}

// CategoryNode is a category with its resolved children, as served by
// the tree endpoint.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

// Book is an audiobook. A playlist book is consumed track by track; a
// single-file book has no tracks and is consumed as one stream.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	CategoryID      int       `json:"category_id"`
	IsPlaylist      bool      `json:"is_playlist"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListItem is a catalog listing row: the book plus the caller's listen
// percentage.
type ListItem struct {
	Book
	ListenPercentage float64 `json:"listen_percentage"`
}

// TrackListening is a track annotated with the caller's progress
// against it.
type TrackListening struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	Position        int    `json:"position"`
	PositionSeconds int    `json:"position_seconds"`
	IsCompleted     bool   `json:"is_completed"`
}

// Detail is the book detail payload: the book, its tracks with the
// caller's resume positions, and the caller's overall percentage.
type Detail struct {
	Book
	Tracks           []TrackListening `json:"tracks"`
	ListenPercentage float64          `json:"listen_percentage"`
}

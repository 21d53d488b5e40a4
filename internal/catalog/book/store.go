// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package book

import "context"

// Repository provides access to the audiobook catalog.
type Repository interface {
	// Description:
	//
	//	ListBooks returns one page of books ordered by creation time,
	//	newest first. An empty categorySlug disables the category filter.
	ListBooks(ctx context.Context, categorySlug string, limit, offset int) ([]Book, error)

	// Description:
	//
	//	CountBooks returns the total row count the same filter would
	//	produce, for pagination metadata.
	CountBooks(ctx context.Context, categorySlug string) (int, error)

	// Description:
	//
	//	FindBook returns a book by ID, or apperr.NotFound.
	FindBook(ctx context.Context, bookID string) (*Book, error)

	// Description:
	//
	//	TracksWithListening returns the book's tracks in playlist order,
	//	each annotated with the user's resume position and completion
	//	flag. Single-file books yield an empty slice.
	TracksWithListening(ctx context.Context, userID, bookID string) ([]TrackListening, error)

	// Description:
	//
	//	Categories returns every category, parents before children is
	//	not guaranteed; callers group them.
	Categories(ctx context.Context) ([]Category, error)
}

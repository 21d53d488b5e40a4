// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package book

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audira/audira/internal/platform/apperr"
	"github.com/audira/audira/pkg/pointer"
)

// #############################################################################
// # Fakes
// #############################################################################

type fakeRepo struct {
	books      []Book
	tracks     map[string][]TrackListening
	categories []Category

	categoryReads int
}

func (r *fakeRepo) ListBooks(_ context.Context, categorySlug string, limit, offset int) ([]Book, error) {
	filtered := r.filter(categorySlug)
	if offset >= len(filtered) {
		return nil, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], nil
}

func (r *fakeRepo) CountBooks(_ context.Context, categorySlug string) (int, error) {
	return len(r.filter(categorySlug)), nil
}

func (r *fakeRepo) filter(categorySlug string) []Book {
	if categorySlug == "" {
		return r.books
	}
	var out []Book
	for _, b := range r.books {
		for _, c := range r.categories {
			if c.ID == b.CategoryID && c.Slug == categorySlug {
				out = append(out, b)
			}
		}
	}
	return out
}

func (r *fakeRepo) FindBook(_ context.Context, bookID string) (*Book, error) {
	for _, b := range r.books {
		if b.ID == bookID {
			found := b
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Book")
}

func (r *fakeRepo) TracksWithListening(_ context.Context, _, bookID string) ([]TrackListening, error) {
	tracks := r.tracks[bookID]
	if tracks == nil {
		tracks = []TrackListening{}
	}
	return tracks, nil
}

func (r *fakeRepo) Categories(_ context.Context) ([]Category, error) {
	r.categoryReads++
	return r.categories, nil
}

type fakeProgress struct {
	percentages map[string]float64
	batchCalls  int
	lastBatch   []string
}

func (p *fakeProgress) ListenPercentages(_ context.Context, _ string, bookIDs []string) (map[string]float64, error) {
	p.batchCalls++
	p.lastBatch = bookIDs
	out := map[string]float64{}
	for _, id := range bookIDs {
		if v, ok := p.percentages[id]; ok {
			out[id] = v
		} else {
			out[id] = 0
		}
	}
	return out, nil
}

// #############################################################################
// # Tests
// #############################################################################

func TestListBooks_AnnotatesPercentagesInOneBatch(t *testing.T) {
	repo := &fakeRepo{
		books: []Book{
			{ID: "book-1", Title: "First", CategoryID: 1, CreatedAt: time.Now()},
			{ID: "book-2", Title: "Second", CategoryID: 1, CreatedAt: time.Now()},
			{ID: "book-3", Title: "Third", CategoryID: 1, CreatedAt: time.Now()},
		},
		categories: []Category{{ID: 1, Name: "Fiction", Slug: "fiction"}},
	}
	progress := &fakeProgress{percentages: map[string]float64{"book-1": 33.33, "book-3": 100}}
	service := NewService(repo, progress)

	items, total, err := service.ListBooks(context.Background(), "user-1", "", 20, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, 33.33, items[0].ListenPercentage)
	assert.Equal(t, 0.0, items[1].ListenPercentage)
	assert.Equal(t, 100.0, items[2].ListenPercentage)

	assert.Equal(t, 1, progress.batchCalls, "page must resolve in a single batch")
	assert.Equal(t, []string{"book-1", "book-2", "book-3"}, progress.lastBatch)
}

func TestListBooks_CategoryFilterAndPagination(t *testing.T) {
	repo := &fakeRepo{
		books: []Book{
			{ID: "book-1", CategoryID: 1},
			{ID: "book-2", CategoryID: 2},
			{ID: "book-3", CategoryID: 1},
		},
		categories: []Category{
			{ID: 1, Name: "Fiction", Slug: "fiction"},
			{ID: 2, Name: "History", Slug: "history"},
		},
	}
	service := NewService(repo, &fakeProgress{})

	items, total, err := service.ListBooks(context.Background(), "user-1", "fiction", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, total, "total reflects the filter, not the page")
	require.Len(t, items, 1)
	assert.Equal(t, "book-3", items[0].ID)
}

func TestGetBook_DetailCarriesTracksAndResumePositions(t *testing.T) {
	repo := &fakeRepo{
		books: []Book{{ID: "book-1", Title: "Album", IsPlaylist: true, DurationSeconds: 900}},
		tracks: map[string][]TrackListening{
			"book-1": {
				{ID: "track-1", Position: 1, DurationSeconds: 300, PositionSeconds: 300, IsCompleted: true},
				{ID: "track-2", Position: 2, DurationSeconds: 600, PositionSeconds: 120},
			},
		},
	}
	progress := &fakeProgress{percentages: map[string]float64{"book-1": 46.67}}
	service := NewService(repo, progress)

	detail, err := service.GetBook(context.Background(), "user-1", "book-1")
	require.NoError(t, err)

	assert.Equal(t, "Album", detail.Title)
	assert.Equal(t, 46.67, detail.ListenPercentage)
	require.Len(t, detail.Tracks, 2)
	assert.True(t, detail.Tracks[0].IsCompleted)
	assert.Equal(t, 120, detail.Tracks[1].PositionSeconds)
}

func TestGetBook_UnknownBook(t *testing.T) {
	service := NewService(&fakeRepo{}, &fakeProgress{})

	_, err := service.GetBook(context.Background(), "user-1", "missing")
	require.Error(t, err)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestCategoryTree_GroupsByParent(t *testing.T) {
	repo := &fakeRepo{categories: []Category{
		{ID: 1, Name: "Fiction", Slug: "fiction"},
		{ID: 2, Name: "Science Fiction", Slug: "science-fiction", ParentID: pointer.To(1)},
		{ID: 3, Name: "Fantasy", Slug: "fantasy", ParentID: pointer.To(1)},
		{ID: 4, Name: "History", Slug: "history"},
		{ID: 5, Name: "Ancient", Slug: "ancient", ParentID: pointer.To(4)},
	}}
	service := NewService(repo, &fakeProgress{})

	tree, err := service.CategoryTree(context.Background())
	require.NoError(t, err)

	require.Len(t, tree, 2)
	assert.Equal(t, "Fiction", tree[0].Name)
	assert.Equal(t, "History", tree[1].Name)

	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, "Fantasy", tree[0].Children[0].Name)
	assert.Equal(t, "Science Fiction", tree[0].Children[1].Name)

	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "Ancient", tree[1].Children[0].Name)
}

func TestCategoryTree_OrphanBecomesRoot(t *testing.T) {
	repo := &fakeRepo{categories: []Category{
		{ID: 1, Name: "Fiction", Slug: "fiction"},
		{ID: 2, Name: "Dangling", Slug: "dangling", ParentID: pointer.To(99)},
	}}
	service := NewService(repo, &fakeProgress{})

	tree, err := service.CategoryTree(context.Background())
	require.NoError(t, err)

	require.Len(t, tree, 2)
	assert.Equal(t, "Dangling", tree[0].Name)
}

func TestCategoryTree_IsCached(t *testing.T) {
	repo := &fakeRepo{categories: []Category{{ID: 1, Name: "Fiction", Slug: "fiction"}}}
	service := NewService(repo, &fakeProgress{})

	for i := 0; i < 5; i++ {
		_, err := service.CategoryTree(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, repo.categoryReads)
}

// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package book

import (
	"context"
	"fmt"
	"sort"

	"github.com/audira/audira/internal/platform/cache"
	"github.com/audira/audira/internal/platform/constants"
)

// categoryTreeKey is the single key the category tree is cached under.
const categoryTreeKey = "category-tree"

// ProgressReader resolves listen percentages for a user over a set of
// books. Satisfied by the listening progress service.
type ProgressReader interface {
	ListenPercentages(ctx context.Context, userID string, bookIDs []string) (map[string]float64, error)
}

// Service implements the catalog read operations.
type Service struct {
	repository Repository
	progress   ProgressReader

	treeCache *cache.TTL[string, []*CategoryNode]
}

func NewService(repository Repository, progress ProgressReader) *Service {
	return &Service{
		repository: repository,
		progress:   progress,
		treeCache:  cache.NewTTL[string, []*CategoryNode](constants.CategoryTreeCacheTTL),
	}
}

/*
ListBooks returns one page of the catalog with the caller's listen
percentage attached to every row.

Description:

	The page is loaded first, then all percentages for the page are
	resolved in one batch call, so the cost is constant in the page
	size: one listing query, one count, four aggregate queries.

Parameters:
  - userID: The caller, whose progress annotates the rows.
  - categorySlug: Optional category filter; empty means all books.
  - limit, offset: Page bounds, already clamped by the HTTP layer.

Returns:
  - []ListItem: The page rows, never nil.
  - int: Total row count for pagination metadata.
  - error: Storage failure.
*/
func (service *Service) ListBooks(ctx context.Context, userID, categorySlug string, limit, offset int) ([]ListItem, int, error) {
	books, err := service.repository.ListBooks(ctx, categorySlug, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("book_list_failed: %w", err)
	}

	total, err := service.repository.CountBooks(ctx, categorySlug)
	if err != nil {
		return nil, 0, fmt.Errorf("book_list_failed: %w", err)
	}

	bookIDs := make([]string, len(books))
	for i, b := range books {
		bookIDs[i] = b.ID
	}

	percentages, err := service.progress.ListenPercentages(ctx, userID, bookIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("book_list_failed: %w", err)
	}

	items := make([]ListItem, len(books))
	for i, b := range books {
		items[i] = ListItem{Book: b, ListenPercentage: percentages[b.ID]}
	}
	return items, total, nil
}

/*
GetBook returns the detail payload for one book.

Description:

	Tracks come back in playlist order with the caller's resume
	position and completion flag joined in; single-file books carry an
	empty track list. The overall percentage uses the same aggregation
	rules as the listing.

Parameters:
  - userID: The caller.
  - bookID: The book to resolve.

Returns:
  - *Detail: The book with tracks and progress.
  - error: apperr.NotFound when the book does not exist.
*/
func (service *Service) GetBook(ctx context.Context, userID, bookID string) (*Detail, error) {
	b, err := service.repository.FindBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	tracks, err := service.repository.TracksWithListening(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("book_detail_failed: %w", err)
	}

	percentage, err := service.progress.ListenPercentages(ctx, userID, []string{bookID})
	if err != nil {
		return nil, fmt.Errorf("book_detail_failed: %w", err)
	}

	return &Detail{
		Book:             *b,
		Tracks:           tracks,
		ListenPercentage: percentage[bookID],
	}, nil
}

/*
CategoryTree returns the category hierarchy as a forest of root nodes.

Description:

	The flat category rows are grouped into a tree with a single
	adjacency-map pass: every node is indexed by ID first, then each
	node is appended to its parent's children (or to the roots when the
	parent is nil or missing). The grouping is iterative, so a
	pathological parent chain cannot exhaust the stack, and an orphaned
	parent reference degrades to a root instead of disappearing.

	The assembled forest is cached for five minutes; catalog edits
	become visible on the next cache miss.

Returns:
  - []*CategoryNode: Root categories with children resolved, never nil.
  - error: Storage failure on a cache miss.
*/
func (service *Service) CategoryTree(ctx context.Context) ([]*CategoryNode, error) {
	if tree, ok := service.treeCache.Get(categoryTreeKey); ok {
		return tree, nil
	}

	categories, err := service.repository.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("book_category_tree_failed: %w", err)
	}

	tree := buildCategoryTree(categories)
	service.treeCache.Set(categoryTreeKey, tree)
	return tree, nil
}

// buildCategoryTree groups flat category rows into a forest in two
// passes over an adjacency map.
func buildCategoryTree(categories []Category) []*CategoryNode {
	nodes := make(map[int]*CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &CategoryNode{Category: c, Children: []*CategoryNode{}}
	}

	roots := []*CategoryNode{}
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok || *c.ParentID == c.ID {
			// Orphaned or self-referencing rows surface as roots rather
			// than vanishing from the tree.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortNodes(roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}
	return roots
}

func sortNodes(nodes []*CategoryNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
}

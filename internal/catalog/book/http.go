// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package book

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/audira/audira/internal/platform/request"
	"github.com/audira/audira/internal/platform/respond"
	"github.com/audira/audira/pkg/pagination"
)

// Handler implements the catalog HTTP endpoints.
type Handler struct {
	bookService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{bookService: service}
}

// Routes returns the authenticated catalog routes mounted under /books.
//
// # Endpoints
//   - GET /          : Paginated listing with the caller's listen percentages.
//   - GET /{bookID}  : Book detail with tracks and resume positions.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/{bookID}", handler.detail)

	return router
}

// CategoryRoutes returns the public category routes mounted under
// /categories.
//
// # Endpoints
//   - GET / : The full category tree.
func (handler *Handler) CategoryRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.categories)

	return router
}

// list handles GET /api/v1/books requests.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {

	// ── 1. Identify Caller ────────────────────────────────────────────────

	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Parse Page ─────────────────────────────────────────────────────

	params := pagination.FromRequest(request)
	categorySlug := request.URL.Query().Get("category")

	// ── 3. Load Page ──────────────────────────────────────────────────────

	items, total, err := handler.bookService.ListBooks(
		request.Context(), userID, categorySlug, params.Limit, params.Offset(),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, items, pagination.NewMeta(params.Page, params.Limit, total))
}

// detail handles GET /api/v1/books/{bookID} requests.
func (handler *Handler) detail(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	detail, err := handler.bookService.GetBook(request.Context(), userID, requestutil.Param(request, "bookID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, detail)
}

// categories handles GET /api/v1/categories requests.
func (handler *Handler) categories(writer http.ResponseWriter, request *http.Request) {
	tree, err := handler.bookService.CategoryTree(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"categories": tree})
}

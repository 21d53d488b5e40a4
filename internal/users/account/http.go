// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/audira/audira/internal/platform/request"
	"github.com/audira/audira/internal/platform/respond"
)

// Handler implements the authenticated account HTTP endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns the routes mounted under /users/{userID}. Ownership is
// enforced by the RequireOwner middleware at the mount point.
//
// # Endpoints
//   - GET /             : The user's own profile.
//   - GET /content-key  : The user's content encryption key (lazy-generated).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.profile)
	router.Get("/content-key", handler.contentKey)

	return router
}

// profile handles GET /api/v1/users/{userID} requests.
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userID")

	profile, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// contentKey handles GET /api/v1/users/{userID}/content-key requests.
func (handler *Handler) contentKey(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userID")

	key, err := handler.accountService.ContentKey(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"content_key": key})
}

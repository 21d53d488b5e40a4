// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package badge

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/audira/audira/internal/platform/request"
	"github.com/audira/audira/internal/platform/respond"
)

// Handler implements the badge HTTP endpoints.
type Handler struct {
	repository Repository
}

// NewHandler constructs a new [Handler] with its repository dependency.
func NewHandler(repository Repository) *Handler {
	return &Handler{repository: repository}
}

// Routes returns the routes mounted under /users/{userID}/badges.
// Ownership is enforced by the RequireOwner middleware at the mount
// point.
//
// # Endpoints
//   - GET / : The user's earned badges, newest first.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)

	return router
}

// list handles GET /api/v1/users/{userID}/badges requests.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userID")

	earned, err := handler.repository.Earned(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if earned == nil {
		earned = []UserBadge{}
	}

	respond.OK(writer, map[string]any{"badges": earned})
}

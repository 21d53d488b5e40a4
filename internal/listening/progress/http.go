// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package progress

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/audira/audira/internal/platform/request"
	"github.com/audira/audira/internal/platform/respond"
	"github.com/audira/audira/internal/platform/validate"
)

// Handler implements the listening progress HTTP endpoints.
type Handler struct {
	progressService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{progressService: service}
}

// Routes returns the routes mounted under /listening (authenticated).
//
// # Endpoints
//   - POST /progress       : Playback report (high-water mark + resume point).
//   - POST /complete-track : Explicit track completion.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/progress", handler.updateProgress)
	router.Post("/complete-track", handler.completeTrack)

	return router
}

// progressRequest is a playback report from the player.
type progressRequest struct {
	BookID          string `json:"book_id"`
	TrackID         string `json:"track_id,omitempty"`
	PlayedSeconds   int    `json:"played_seconds"`
	PositionSeconds int    `json:"position_seconds"`
}

// updateProgress handles POST /api/v1/listening/progress requests.
//
// # Returns
//   - Writes HTTP 200 OK with the completion verdict and any new badges.
//   - Writes HTTP 400 Bad Request when the report shape is invalid.
func (handler *Handler) updateProgress(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input progressRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("book_id", input.BookID).
		NonNegative("played_seconds", input.PlayedSeconds).
		NonNegative("position_seconds", input.PositionSeconds)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.progressService.UpdateProgress(request.Context(), UpdateInput{
		UserID:          userID,
		BookID:          input.BookID,
		TrackID:         input.TrackID,
		PlayedSeconds:   input.PlayedSeconds,
		PositionSeconds: input.PositionSeconds,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// completeTrackRequest names the track the player finished.
type completeTrackRequest struct {
	TrackID string `json:"track_id"`
}

// completeTrack handles POST /api/v1/listening/complete-track requests.
func (handler *Handler) completeTrack(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input completeTrackRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.TrackID == "" {
		respond.Error(writer, request, validate.RequiredError("track_id", "is required"))
		return
	}

	result, err := handler.progressService.CompleteTrack(request.Context(), userID, input.TrackID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

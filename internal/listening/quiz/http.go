// Copyright (c) 2026 Audira. All rights reserved.
// Author: contact@audira.fm

package quiz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/audira/audira/internal/platform/request"
	"github.com/audira/audira/internal/platform/respond"
	"github.com/audira/audira/internal/platform/validate"
)

// Handler implements the quiz HTTP endpoints.
type Handler struct {
	quizService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{quizService: service}
}

// Routes returns the routes mounted under /quizzes (authenticated).
//
// # Endpoints
//   - POST /result         : Submit a quiz attempt.
//   - GET  /book/{bookID}  : The quizzes attached to a book.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/result", handler.submitResult)
	router.Get("/book/{bookID}", handler.listByBook)

	return router
}

// submitRequest is one quiz attempt payload.
type submitRequest struct {
	QuizID string `json:"quiz_id"`
	Score  int    `json:"score"`
}

// submitResult handles POST /api/v1/quizzes/result requests.
//
// # Returns
//   - Writes HTTP 200 OK with the graded attempt and the book's refreshed
//     completion verdict (is_book_completed, pending_quizzes, new_badges).
func (handler *Handler) submitResult(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input submitRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("quiz_id", input.QuizID).
		Range("score", input.Score, 0, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	submission, err := handler.quizService.SubmitResult(request.Context(), SubmitInput{
		UserID: userID,
		QuizID: input.QuizID,
		Score:  input.Score,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, submission)
}

// listByBook handles GET /api/v1/quizzes/book/{bookID} requests.
func (handler *Handler) listByBook(writer http.ResponseWriter, request *http.Request) {
	quizzes, err := handler.quizService.ListByBook(request.Context(), requestutil.Param(request, "bookID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if quizzes == nil {
		quizzes = []Quiz{}
	}

	respond.OK(writer, map[string]any{"quizzes": quizzes})
}

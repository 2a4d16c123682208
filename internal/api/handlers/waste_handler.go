package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/freshkeep/hub/internal/api/response"
	"github.com/freshkeep/hub/internal/huberrors"
	"github.com/freshkeep/hub/internal/models"
)

// WasteAnswerer defines the waste question-answering pipeline used by the handler.
type WasteAnswerer interface {
	Answer(ctx context.Context, question string) (models.Answer, error)
}

// WasteQuestionRequest is the body of POST /v1/waste/qa.
type WasteQuestionRequest struct {
	Question string `json:"question" validate:"required,max=2000,no_null_bytes"`
}

// WasteAnswerResponse echoes the question next to the answer and its sources.
type WasteAnswerResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
}

// WasteHandler handles HTTP requests for waste disposal questions.
type WasteHandler struct {
	answerer WasteAnswerer
	logger   *slog.Logger
}

// NewWasteHandler creates a waste question handler.
func NewWasteHandler(answerer WasteAnswerer, logger *slog.Logger) *WasteHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &WasteHandler{answerer: answerer, logger: logger}
}

// Ask handles POST /v1/waste/qa.
func (h *WasteHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req WasteQuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	answer, err := h.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, huberrors.ErrValidation) {
			response.RespondBadRequest(w, err.Error())

			return
		}

		h.logger.ErrorContext(r.Context(), "waste question failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}

	response.RespondJSON(w, http.StatusOK, WasteAnswerResponse{
		Question: req.Question,
		Answer:   answer.Text,
		Sources:  sources,
	})
}

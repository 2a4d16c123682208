package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/freshkeep/hub/internal/api/response"
	"github.com/freshkeep/hub/internal/huberrors"
	"github.com/freshkeep/hub/internal/models"
)

// RecipeSuggester defines the recipe suggestion pipeline used by the handler.
type RecipeSuggester interface {
	Suggest(ctx context.Context, ingredients []string) ([]models.Suggestion, error)
}

// SuggestionHistoryLister defines the suggestion history queries used by the handler.
type SuggestionHistoryLister interface {
	ListHistory(ctx context.Context, filters *models.ListSuggestionRecordsFilters) (*models.ListSuggestionRecordsResponse, error)
}

// SuggestRecipesRequest is the body of POST /v1/recipes/suggest.
type SuggestRecipesRequest struct {
	Ingredients []string `json:"ingredients" validate:"required,min=1,max=50,dive,required,max=100,no_null_bytes"`
}

// RecipesHandler handles HTTP requests for recipe suggestions.
type RecipesHandler struct {
	suggester RecipeSuggester
	history   SuggestionHistoryLister
	logger    *slog.Logger
}

// NewRecipesHandler creates a recipes handler. history may be nil when no database is configured;
// the history endpoint then answers 404.
func NewRecipesHandler(suggester RecipeSuggester, history SuggestionHistoryLister, logger *slog.Logger) *RecipesHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &RecipesHandler{suggester: suggester, history: history, logger: logger}
}

// Suggest handles POST /v1/recipes/suggest.
// Generation failures are absorbed by the pipeline (fallback suggestions), so the only
// client error is an invalid ingredient list.
func (h *RecipesHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRecipesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	suggestions, err := h.suggester.Suggest(r.Context(), req.Ingredients)
	if err != nil {
		if errors.Is(err, huberrors.ErrValidation) {
			response.RespondBadRequest(w, err.Error())

			return
		}

		h.logger.ErrorContext(r.Context(), "recipe suggestion failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, suggestions)
}

// History handles GET /v1/recipes/history.
func (h *RecipesHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response.RespondNotFound(w, "Suggestion history is not enabled")

		return
	}

	query := r.URL.Query()
	filters := &models.ListSuggestionRecordsFilters{}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			response.RespondBadRequest(w, "Invalid limit parameter")

			return
		}

		filters.Limit = limit
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			response.RespondBadRequest(w, "Invalid offset parameter")

			return
		}

		filters.Offset = offset
	}

	result, err := h.history.ListHistory(r.Context(), filters)
	if err != nil {
		if errors.Is(err, huberrors.ErrUnavailable) {
			response.RespondNotFound(w, err.Error())

			return
		}

		h.logger.ErrorContext(r.Context(), "list suggestion history failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

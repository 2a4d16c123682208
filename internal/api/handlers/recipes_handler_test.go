package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshkeep/hub/internal/api/response"
	"github.com/freshkeep/hub/internal/huberrors"
	"github.com/freshkeep/hub/internal/models"
)

func strPtr(s string) *string { return &s }

func TestRecipesHandler_Suggest(t *testing.T) {
	t.Run("success returns suggestions as a JSON array", func(t *testing.T) {
		mock := &mockRecipeSuggester{
			suggestFunc: func(_ context.Context, ingredients []string) ([]models.Suggestion, error) {
				assert.Equal(t, []string{"egg", "onion"}, ingredients)

				return []models.Suggestion{{Title: strPtr("Onion egg fry"), Ingredients: []string{"egg", "onion"}}}, nil
			},
		}
		h := NewRecipesHandler(mock, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/recipes/suggest", strings.NewReader(`{"ingredients":["egg","onion"]}`))
		rec := httptest.NewRecorder()

		h.Suggest(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var out []models.Suggestion
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out, 1)
		assert.Equal(t, "Onion egg fry", *out[0].Title)
	})

	t.Run("empty ingredient list is rejected before the pipeline", func(t *testing.T) {
		mock := &mockRecipeSuggester{}
		h := NewRecipesHandler(mock, nil, nil)

		for _, body := range []string{`{"ingredients":[]}`, `{}`, `{"ingredients":[""]}`} {
			rec := httptest.NewRecorder()
			h.Suggest(rec, httptest.NewRequest(http.MethodPost, "/v1/recipes/suggest", strings.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		}

		assert.Equal(t, int32(0), mock.calls.Load())
	})

	t.Run("validation errors carry field details", func(t *testing.T) {
		h := NewRecipesHandler(&mockRecipeSuggester{}, nil, nil)

		rec := httptest.NewRecorder()
		h.Suggest(rec, httptest.NewRequest(http.MethodPost, "/v1/recipes/suggest", strings.NewReader(`{"ingredients":[]}`)))

		var problem response.ProblemDetails
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, "Validation Error", problem.Title)
		require.NotEmpty(t, problem.Errors)
		assert.Contains(t, problem.Errors[0].Message, "ingredients")
	})

	t.Run("malformed JSON and unknown fields return 400", func(t *testing.T) {
		h := NewRecipesHandler(&mockRecipeSuggester{}, nil, nil)

		for _, body := range []string{`{"ingredients":`, `{"ingredients":["egg"],"extra":1}`, ``} {
			rec := httptest.NewRecorder()
			h.Suggest(rec, httptest.NewRequest(http.MethodPost, "/v1/recipes/suggest", strings.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
	})

	t.Run("whitespace-only ingredients rejected by the pipeline return 400", func(t *testing.T) {
		mock := &mockRecipeSuggester{
			suggestFunc: func(context.Context, []string) ([]models.Suggestion, error) {
				return nil, huberrors.NewValidationError("ingredients", "at least one ingredient is required")
			},
		}
		h := NewRecipesHandler(mock, nil, nil)

		rec := httptest.NewRecorder()
		h.Suggest(rec, httptest.NewRequest(http.MethodPost, "/v1/recipes/suggest", strings.NewReader(`{"ingredients":["  "]}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unexpected error returns 500 without leaking details", func(t *testing.T) {
		mock := &mockRecipeSuggester{
			suggestFunc: func(context.Context, []string) ([]models.Suggestion, error) {
				return nil, errors.New("boom: internal detail")
			},
		}
		h := NewRecipesHandler(mock, nil, nil)

		rec := httptest.NewRecorder()
		h.Suggest(rec, httptest.NewRequest(http.MethodPost, "/v1/recipes/suggest", strings.NewReader(`{"ingredients":["egg"]}`)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "internal detail")
	})
}

func TestRecipesHandler_History(t *testing.T) {
	t.Run("disabled history returns 404", func(t *testing.T) {
		h := NewRecipesHandler(&mockRecipeSuggester{}, nil, nil)

		rec := httptest.NewRecorder()
		h.History(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes/history", http.NoBody))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("passes paging parameters to the service", func(t *testing.T) {
		var captured models.ListSuggestionRecordsFilters

		history := &mockHistoryLister{
			listFunc: func(_ context.Context, filters *models.ListSuggestionRecordsFilters) (*models.ListSuggestionRecordsResponse, error) {
				captured = *filters

				return &models.ListSuggestionRecordsResponse{
					Data:  []models.SuggestionRecord{{SourceType: "generated", Query: []string{"egg"}}},
					Total: 7, Limit: filters.Limit, Offset: filters.Offset,
				}, nil
			},
		}
		h := NewRecipesHandler(&mockRecipeSuggester{}, history, nil)

		rec := httptest.NewRecorder()
		h.History(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes/history?limit=10&offset=5", http.NoBody))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.ListSuggestionRecordsFilters{Limit: 10, Offset: 5}, captured)

		var out models.ListSuggestionRecordsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, int64(7), out.Total)
		require.Len(t, out.Data, 1)
		assert.Equal(t, "generated", out.Data[0].SourceType)
	})

	t.Run("invalid paging parameters return 400", func(t *testing.T) {
		h := NewRecipesHandler(&mockRecipeSuggester{}, &mockHistoryLister{}, nil)

		for _, q := range []string{"limit=abc", "limit=0", "limit=-1", "offset=-3", "offset=x"} {
			rec := httptest.NewRecorder()
			h.History(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes/history?"+q, http.NoBody))

			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("unavailable history returns 404", func(t *testing.T) {
		history := &mockHistoryLister{
			listFunc: func(context.Context, *models.ListSuggestionRecordsFilters) (*models.ListSuggestionRecordsResponse, error) {
				return nil, huberrors.NewUnavailableError("Suggestion history is not enabled")
			},
		}
		h := NewRecipesHandler(&mockRecipeSuggester{}, history, nil)

		rec := httptest.NewRecorder()
		h.History(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes/history", http.NoBody))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "not enabled")
	})

	t.Run("repository failure returns 500", func(t *testing.T) {
		history := &mockHistoryLister{
			listFunc: func(context.Context, *models.ListSuggestionRecordsFilters) (*models.ListSuggestionRecordsResponse, error) {
				return nil, errors.New("db down")
			},
		}
		h := NewRecipesHandler(&mockRecipeSuggester{}, history, nil)

		rec := httptest.NewRecorder()
		h.History(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes/history", http.NoBody))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

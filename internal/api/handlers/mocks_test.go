package handlers

import (
	"context"
	"sync/atomic"

	"github.com/freshkeep/hub/internal/models"
	"github.com/freshkeep/hub/internal/service"
)

type mockRecipeSuggester struct {
	suggestFunc func(ctx context.Context, ingredients []string) ([]models.Suggestion, error)
	calls       atomic.Int32
}

func (m *mockRecipeSuggester) Suggest(ctx context.Context, ingredients []string) ([]models.Suggestion, error) {
	m.calls.Add(1)

	if m.suggestFunc != nil {
		return m.suggestFunc(ctx, ingredients)
	}

	return []models.Suggestion{}, nil
}

type mockHistoryLister struct {
	listFunc func(ctx context.Context, filters *models.ListSuggestionRecordsFilters) (*models.ListSuggestionRecordsResponse, error)
}

func (m *mockHistoryLister) ListHistory(
	ctx context.Context, filters *models.ListSuggestionRecordsFilters,
) (*models.ListSuggestionRecordsResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filters)
	}

	return &models.ListSuggestionRecordsResponse{Data: []models.SuggestionRecord{}}, nil
}

type mockWasteAnswerer struct {
	answerFunc func(ctx context.Context, question string) (models.Answer, error)
	calls      atomic.Int32
}

func (m *mockWasteAnswerer) Answer(ctx context.Context, question string) (models.Answer, error) {
	m.calls.Add(1)

	if m.answerFunc != nil {
		return m.answerFunc(ctx, question)
	}

	return models.Answer{}, nil
}

type staticStatus service.PipelineStatus

func (s staticStatus) Status() service.PipelineStatus { return service.PipelineStatus(s) }

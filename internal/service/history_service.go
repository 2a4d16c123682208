package service

import (
	"context"
	"fmt"

	"github.com/freshkeep/hub/internal/huberrors"
	"github.com/freshkeep/hub/internal/models"
)

// History listing limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// SuggestionHistoryRepository defines the data access needed for suggestion history.
type SuggestionHistoryRepository interface {
	CreateBatch(ctx context.Context, query []string, sourceType string, suggestions []models.Suggestion) ([]models.SuggestionRecord, error)
	List(ctx context.Context, filters *models.ListSuggestionRecordsFilters) ([]models.SuggestionRecord, error)
	Count(ctx context.Context) (int64, error)
}

// SuggestionHistoryService records and lists suggestions returned by the recipe pipeline.
// It implements SuggestionRecorder. Without a repository recording is a no-op and listing
// fails with huberrors.ErrUnavailable.
type SuggestionHistoryService struct {
	repo SuggestionHistoryRepository
}

// NewSuggestionHistoryService creates a new suggestion history service.
func NewSuggestionHistoryService(repo SuggestionHistoryRepository) *SuggestionHistoryService {
	return &SuggestionHistoryService{repo: repo}
}

// RecordSuggestions stores one history record per suggestion.
func (s *SuggestionHistoryService) RecordSuggestions(
	ctx context.Context, query []string, sourceType string, suggestions []models.Suggestion,
) error {
	if s.repo == nil || len(suggestions) == 0 {
		return nil
	}

	if _, err := s.repo.CreateBatch(ctx, query, sourceType, suggestions); err != nil {
		return fmt.Errorf("record suggestions: %w", err)
	}

	return nil
}

// ListHistory returns recorded suggestions, newest first.
func (s *SuggestionHistoryService) ListHistory(
	ctx context.Context, filters *models.ListSuggestionRecordsFilters,
) (*models.ListSuggestionRecordsResponse, error) {
	if s.repo == nil {
		return nil, huberrors.NewUnavailableError("Suggestion history is not enabled")
	}

	if filters.Limit <= 0 {
		filters.Limit = DefaultHistoryLimit
	}

	if filters.Limit > MaxHistoryLimit {
		filters.Limit = MaxHistoryLimit
	}

	if filters.Offset < 0 {
		filters.Offset = 0
	}

	records, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list suggestion history: %w", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count suggestion history: %w", err)
	}

	return &models.ListSuggestionRecordsResponse{
		Data:   records,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

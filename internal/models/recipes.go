package models

import (
	"time"

	"github.com/google/uuid"
)

// CorpusItem is one reference recipe loaded from the recipe CSV.
// Items are built once at startup and never mutated.
type CorpusItem struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Ingredients    []string `json:"ingredients"`
	RawIngredients string   `json:"raw_ingredients"`
	Steps          string   `json:"steps"`
}

// Suggestion is one recipe returned by the suggestion pipeline, either parsed from
// generation output or synthesized from a CorpusItem.
// Title is a pointer because generation output may carry a null title, which is passed through.
type Suggestion struct {
	Title        *string  `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions *string  `json:"instructions"`
	SourceURL    *string  `json:"source_url"`
	ImageURL     *string  `json:"image_url"`
	Calories     float64  `json:"calories"`
}

// SuggestionRecord is a persisted suggestion (history of what the service returned).
type SuggestionRecord struct {
	ID         uuid.UUID  `json:"id"`
	Suggestion Suggestion `json:"suggestion"`
	Query      []string   `json:"query"`
	SourceType string     `json:"source_type"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ListSuggestionRecordsFilters holds paging options for suggestion history.
type ListSuggestionRecordsFilters struct {
	Limit  int
	Offset int
}

// ListSuggestionRecordsResponse is one page of suggestion history.
type ListSuggestionRecordsResponse struct {
	Data   []SuggestionRecord `json:"data"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

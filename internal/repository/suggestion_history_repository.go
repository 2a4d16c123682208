// Package repository provides data access for recipe suggestion history.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshkeep/hub/internal/models"
)

// suggestionHistorySchema is applied by EnsureSchema. Statements are idempotent.
const suggestionHistorySchema = `
	CREATE TABLE IF NOT EXISTS recipe_suggestions (
		id          UUID PRIMARY KEY,
		suggestion  JSONB NOT NULL,
		query       TEXT[] NOT NULL DEFAULT '{}',
		source_type TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS recipe_suggestions_created_at_idx
		ON recipe_suggestions (created_at DESC, id DESC);
`

// SuggestionHistoryRepository handles data access for recorded suggestions.
type SuggestionHistoryRepository struct {
	db *pgxpool.Pool
}

// NewSuggestionHistoryRepository creates a new suggestion history repository.
func NewSuggestionHistoryRepository(db *pgxpool.Pool) *SuggestionHistoryRepository {
	return &SuggestionHistoryRepository{db: db}
}

// EnsureSchema creates the history table when it does not exist.
func (r *SuggestionHistoryRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, suggestionHistorySchema); err != nil {
		return fmt.Errorf("failed to ensure suggestion history schema: %w", err)
	}

	return nil
}

// CreateBatch stores one row per suggestion in a single transaction.
// All rows share the query and source type of the request that produced them.
func (r *SuggestionHistoryRepository) CreateBatch(
	ctx context.Context, query []string, sourceType string, suggestions []models.Suggestion,
) ([]models.SuggestionRecord, error) {
	if query == nil {
		query = []string{}
	}

	const insert = `
		INSERT INTO recipe_suggestions (id, suggestion, query, source_type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	records := make([]models.SuggestionRecord, 0, len(suggestions))

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, s := range suggestions {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generate id: %w", err)
			}

			payload, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("encode suggestion: %w", err)
			}

			record := models.SuggestionRecord{ID: id, Suggestion: s, Query: query, SourceType: sourceType}
			if err := tx.QueryRow(ctx, insert, id, payload, query, sourceType).Scan(&record.CreatedAt); err != nil {
				return fmt.Errorf("insert suggestion: %w", err)
			}

			records = append(records, record)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion records: %w", err)
	}

	return records, nil
}

// List retrieves suggestion records, newest first.
func (r *SuggestionHistoryRepository) List(
	ctx context.Context, filters *models.ListSuggestionRecordsFilters,
) ([]models.SuggestionRecord, error) {
	query := `
		SELECT id, suggestion, query, source_type, created_at
		FROM recipe_suggestions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, filters.Limit, filters.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestion records: %w", err)
	}
	defer rows.Close()

	records := []models.SuggestionRecord{}

	for rows.Next() {
		var (
			record  models.SuggestionRecord
			payload []byte
		)

		if err := rows.Scan(&record.ID, &payload, &record.Query, &record.SourceType, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion record: %w", err)
		}

		if err := json.Unmarshal(payload, &record.Suggestion); err != nil {
			return nil, fmt.Errorf("failed to decode suggestion %s: %w", record.ID, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestion records: %w", err)
	}

	return records, nil
}

// Count returns the number of stored suggestion records.
func (r *SuggestionHistoryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM recipe_suggestions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count suggestion records: %w", err)
	}

	return count, nil
}

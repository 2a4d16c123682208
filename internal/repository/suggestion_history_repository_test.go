package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/freshkeep/hub/internal/models"
	"github.com/freshkeep/hub/pkg/database"
)

func setupTestRepository(t *testing.T) *SuggestionHistoryRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("hub"),
		postgres.WithUsername("hub"),
		postgres.WithPassword("hub"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgresPool(ctx, dsn, database.WithMaxConns(2))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := NewSuggestionHistoryRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))

	return repo
}

func strPtr(s string) *string { return &s }

func TestSuggestionHistoryRepository(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	t.Run("schema is idempotent", func(t *testing.T) {
		require.NoError(t, repo.EnsureSchema(ctx))
	})

	t.Run("create batch then list newest first", func(t *testing.T) {
		first, err := repo.CreateBatch(ctx, []string{"egg"}, "fallback", []models.Suggestion{
			{Title: strPtr("Egg soup"), Ingredients: []string{"egg"}},
		})
		require.NoError(t, err)
		require.Len(t, first, 1)

		time.Sleep(5 * time.Millisecond)

		second, err := repo.CreateBatch(ctx, []string{"egg", "onion"}, "generated", []models.Suggestion{
			{Title: strPtr("Onion egg fry"), Ingredients: []string{"egg", "onion"}, Calories: 320},
			{Title: nil, Ingredients: []string{"onion"}},
		})
		require.NoError(t, err)
		require.Len(t, second, 2)
		assert.NotEqual(t, second[0].ID, second[1].ID)
		assert.False(t, second[0].CreatedAt.IsZero())

		records, err := repo.List(ctx, &models.ListSuggestionRecordsFilters{Limit: 10})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "generated", records[0].SourceType)
		assert.Equal(t, []string{"egg", "onion"}, records[0].Query)
		assert.Equal(t, "fallback", records[2].SourceType)
		assert.Equal(t, "Egg soup", *records[2].Suggestion.Title)

		var calories float64
		for _, r := range records {
			if r.Suggestion.Title != nil && *r.Suggestion.Title == "Onion egg fry" {
				calories = r.Suggestion.Calories
			}
		}
		assert.InDelta(t, 320, calories, 0.001)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("limit and offset page the results", func(t *testing.T) {
		page, err := repo.List(ctx, &models.ListSuggestionRecordsFilters{Limit: 1, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "fallback", page[0].SourceType)
	})

	t.Run("nil query is stored as an empty array", func(t *testing.T) {
		records, err := repo.CreateBatch(ctx, nil, "fallback", []models.Suggestion{{Title: strPtr("x")}})
		require.NoError(t, err)
		assert.Equal(t, []string{}, records[0].Query)
	})
}

package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/freshkeep/hub/internal/models"
)

type mockEmbeddingClient struct {
	createFunc func(ctx context.Context, input string, intent models.EmbeddingIntent) ([]float32, error)
	calls      atomic.Int32
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string, intent models.EmbeddingIntent) ([]float32, error) {
	m.calls.Add(1)

	if m.createFunc != nil {
		return m.createFunc(ctx, input, intent)
	}

	return []float32{1, 0}, nil
}

type mockGenerationClient struct {
	generateFunc func(ctx context.Context, req models.GenerationRequest) (string, error)
	calls        atomic.Int32
}

func (m *mockGenerationClient) GenerateText(ctx context.Context, req models.GenerationRequest) (string, error) {
	m.calls.Add(1)

	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}

	return "", nil
}

type mockRecorder struct {
	recordFunc func(ctx context.Context, query []string, sourceType string, suggestions []models.Suggestion) error
	calls      atomic.Int32
}

func (m *mockRecorder) RecordSuggestions(ctx context.Context, query []string, sourceType string, suggestions []models.Suggestion) error {
	m.calls.Add(1)

	if m.recordFunc != nil {
		return m.recordFunc(ctx, query, sourceType, suggestions)
	}

	return nil
}

type mockPipelineMetrics struct {
	mu        sync.Mutex
	outcomes  []string
	durations []string
}

func (m *mockPipelineMetrics) RecordOutcome(_ context.Context, pipeline, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outcomes = append(m.outcomes, pipeline+":"+outcome)
}

func (m *mockPipelineMetrics) RecordGenerationDuration(_ context.Context, pipeline, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.durations = append(m.durations, pipeline+":"+outcome)
}

type mockCacheMetrics struct {
	hits   atomic.Int32
	misses atomic.Int32
}

func (m *mockCacheMetrics) RecordHit(_ context.Context, _ string)  { m.hits.Add(1) }
func (m *mockCacheMetrics) RecordMiss(_ context.Context, _ string) { m.misses.Add(1) }

package service

import (
	"context"

	"github.com/freshkeep/hub/internal/models"
)

// EmbeddingClient generates embedding vectors for text.
// Implemented by provider-specific clients (e.g. OpenAI, Google Gemini).
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string, intent models.EmbeddingIntent) ([]float32, error)
}

// GenerationClient produces text from a prompt.
// Implemented by provider-specific clients (e.g. OpenAI, Google Gemini).
type GenerationClient interface {
	GenerateText(ctx context.Context, req models.GenerationRequest) (string, error)
}

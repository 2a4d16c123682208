// Package aiprovider builds the embedding and generation clients for the configured AI provider.
package aiprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/freshkeep/hub/internal/config"
	"github.com/freshkeep/hub/internal/googleai"
	"github.com/freshkeep/hub/internal/models"
	"github.com/freshkeep/hub/internal/openai"
)

// ErrUnsupportedProvider is returned for an AI_PROVIDER other than google or openai.
var ErrUnsupportedProvider = errors.New("unsupported AI provider")

// Client embeds text and generates completions. Both provider clients implement it.
type Client interface {
	CreateEmbedding(ctx context.Context, input string, intent models.EmbeddingIntent) ([]float32, error)
	GenerateText(ctx context.Context, req models.GenerationRequest) (string, error)
	EmbeddingModel() string
}

// New returns the client for cfg.AIProvider. It returns (nil, nil) when the provider's credential
// is not set; callers then run their pipelines degraded. httpClient may be nil.
func New(ctx context.Context, cfg *config.Config, httpClient *http.Client) (Client, error) {
	apiKey := cfg.ProviderAPIKey()
	if apiKey == "" {
		slog.Warn("AI backend disabled: no credential for provider", "provider", cfg.AIProvider)

		//nolint:nilnil // intentional: a nil client selects degraded mode
		return nil, nil
	}

	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		opts := []openai.ClientOption{
			openai.WithModel(cfg.GenerationModel),
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		}
		if httpClient != nil {
			opts = append(opts, openai.WithHTTPClient(httpClient))
		}

		client := openai.NewClient(apiKey, opts...)
		logEnabled(cfg, client)

		return client, nil
	case config.ProviderGoogle:
		opts := []googleai.ClientOption{
			googleai.WithModel(cfg.GenerationModel),
			googleai.WithEmbeddingModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		}
		if httpClient != nil {
			opts = append(opts, googleai.WithHTTPClient(httpClient))
		}

		client, err := googleai.NewClient(ctx, apiKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create google client: %w", err)
		}

		logEnabled(cfg, client)

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.AIProvider)
	}
}

func logEnabled(cfg *config.Config, client Client) {
	slog.Info("AI backend enabled",
		"provider", cfg.AIProvider,
		"embedding_model", client.EmbeddingModel(),
		"dimensions", cfg.EmbeddingDimensions,
	)
}

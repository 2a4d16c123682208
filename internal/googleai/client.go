// Package googleai provides a thin wrapper around the Google Gen AI SDK for embeddings and
// text generation (Gemini API).
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/freshkeep/hub/internal/models"
	"github.com/freshkeep/hub/pkg/embeddings"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding or GenerateText is called with empty input.
	ErrEmptyInput = errors.New("googleai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("googleai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("googleai: embedding dimension mismatch")
	// ErrEmptyResponse is returned when a generation response carries no text.
	ErrEmptyResponse = errors.New("googleai: empty generation response")
)

const (
	defaultDimension       = 768
	defaultEmbeddingModel  = "text-embedding-004"
	defaultGenerationModel = "gemini-2.5-flash"

	unitLengthTolerance = 1e-4
)

// Gemini task types per embedding intent.
var taskTypes = map[models.EmbeddingIntent]string{
	models.IntentQuery:    "RETRIEVAL_QUERY",
	models.IntentDocument: "RETRIEVAL_DOCUMENT",
}

// Client calls the Gemini embeddings and generation APIs via the Google Gen AI SDK.
type Client struct {
	client          *genai.Client
	embeddingModel  string
	generationModel string
	dimensions      int
	httpClient      *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the requested embedding dimension (must match the knowledge base file).
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithEmbeddingModel sets the embedding model name (e.g. text-embedding-004). Empty uses default.
func WithEmbeddingModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithModel sets the generation model name (e.g. gemini-2.5-flash). Empty uses default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.generationModel = model
		}
	}
}

// WithHTTPClient sets the HTTP client used by the SDK (e.g. a retrying client).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client := &Client{
		embeddingModel:  defaultEmbeddingModel,
		generationModel: defaultGenerationModel,
		dimensions:      defaultDimension,
	}
	for _, opt := range opts {
		opt(client)
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: client.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	client.client = genaiClient

	return client, nil
}

// EmbeddingModel returns the configured embedding model name.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// CreateEmbedding returns the embedding vector for the given text. The intent selects the
// Gemini task type so query and document vectors come from the matching retrieval mode.
func (c *Client) CreateEmbedding(ctx context.Context, input string, intent models.EmbeddingIntent) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 || c.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}
	//nolint:gosec // G115: c.dimensions is bounded above by math.MaxInt32
	dimInt32 := int32(c.dimensions)

	resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		TaskType:             taskTypes[intent],
		OutputDimensionality: &dimInt32,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Embeddings[0].Values
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	return unitVector(emb), nil
}

// unitVector copies values and scales the copy to unit length when it is not already.
// Gemini only normalizes full-size vectors; truncated ones are scaled here.
func unitVector(values []float32) []float32 {
	out := make([]float32, len(values))
	copy(out, values)

	if !embeddings.IsNormalized(out, unitLengthTolerance) {
		embeddings.NormalizeL2(out)
	}

	return out
}

// GenerateText runs one generation call and returns the response text.
func (c *Client) GenerateText(ctx context.Context, req models.GenerationRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", ErrEmptyInput
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	if req.JSONOutput {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.generationModel, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

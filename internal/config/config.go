// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported AI providers for embeddings and text generation.
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	APIKey   string
	LogLevel string

	// Max request body size in bytes; 0 or negative disables the limit.
	MaxRequestBodyBytes int64

	// AI backend. The credential for the selected provider decides whether the
	// pipelines start configured or degraded.
	AIProvider          string
	GeminiAPIKey        string
	OpenAIAPIKey        string
	GenerationModel     string
	EmbeddingModel      string
	EmbeddingDimensions int
	GenerationTimeout   time.Duration
	ResponseLanguage    string

	// Recipe suggestion pipeline
	RecipeCorpusPath     string
	RecipeTopK           int
	RecipeNumSuggestions int

	// Waste question-answering pipeline
	KnowledgeBasePath string
	KnowledgeTopK     int
	KnowledgeMinScore float64
	QueryCacheSize    int

	// Optional suggestion history store; empty disables it.
	DatabaseURL      string
	DatabaseMaxConns int

	OtelMetricsExporter string
	OtelTracesExporter  string

	// Offline knowledge-base rebuild
	KnowledgeSourceDir string
	EmbeddingRateLimit float64
	ChunkMaxChars      int
	ChunkOverlap       int
	CheckpointEvery    int
}

// ProviderAPIKey returns the credential of the selected AI provider ("" when unset).
func (c *Config) ProviderAPIKey() string {
	if c.AIProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}

	return c.GeminiAPIKey
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat retrieves an environment variable as a float64 or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a time.Duration (e.g. "30s") or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// Load reads configuration from environment variables and returns a Config struct.
// It automatically loads .env file if it exists.
// Returns default values for any missing environment variables. Missing AI credentials are not
// an error: the pipelines start in degraded mode instead.
func Load() (*Config, error) {
	// Load .env file if it exists. Skip logging when absent (e.g. env from secrets/parameter store).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		APIKey:              os.Getenv("API_KEY"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(getEnvAsInt("MAX_REQUEST_BODY_BYTES", 1<<20)),

		AIProvider:          strings.ToLower(getEnv("AI_PROVIDER", ProviderGoogle)),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		GenerationModel:     os.Getenv("GENERATION_MODEL"),
		EmbeddingModel:      os.Getenv("EMBEDDING_MODEL"),
		EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
		GenerationTimeout:   getEnvAsDuration("GENERATION_TIMEOUT", 30*time.Second),
		ResponseLanguage:    getEnv("RESPONSE_LANGUAGE", "Korean"),

		RecipeCorpusPath:     getEnv("RECIPE_CORPUS_PATH", "data/korean_recipes.csv"),
		RecipeTopK:           getEnvAsInt("RECIPE_TOP_K", 5),
		RecipeNumSuggestions: getEnvAsInt("RECIPE_NUM_SUGGESTIONS", 3),

		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", "data/waste_knowledge.json"),
		KnowledgeTopK:     getEnvAsInt("KNOWLEDGE_TOP_K", 5),
		KnowledgeMinScore: getEnvAsFloat("KNOWLEDGE_MIN_SCORE", 0),
		QueryCacheSize:    getEnvAsInt("QUERY_CACHE_SIZE", 1000),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseMaxConns: getEnvAsInt("DATABASE_MAX_CONNS", 4),

		OtelMetricsExporter: strings.ToLower(os.Getenv("OTEL_METRICS_EXPORTER")),
		OtelTracesExporter:  strings.ToLower(os.Getenv("OTEL_TRACES_EXPORTER")),

		KnowledgeSourceDir: getEnv("KNOWLEDGE_SOURCE_DIR", "data/waste_guides"),
		EmbeddingRateLimit: getEnvAsFloat("EMBEDDING_RATE_LIMIT", 5),
		ChunkMaxChars:      getEnvAsInt("CHUNK_MAX_CHARS", 800),
		ChunkOverlap:       getEnvAsInt("CHUNK_OVERLAP", 100),
		CheckpointEvery:    getEnvAsInt("CHECKPOINT_EVERY", 10),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AIProvider != ProviderGoogle && c.AIProvider != ProviderOpenAI {
		return errors.New("AI_PROVIDER must be one of: google, openai")
	}

	if c.EmbeddingDimensions <= 0 {
		return errors.New("EMBEDDING_DIMENSIONS must be a positive integer")
	}

	if c.GenerationTimeout <= 0 {
		return errors.New("GENERATION_TIMEOUT must be a positive duration")
	}

	if c.RecipeTopK <= 0 {
		return errors.New("RECIPE_TOP_K must be a positive integer")
	}

	if c.RecipeNumSuggestions <= 0 {
		return errors.New("RECIPE_NUM_SUGGESTIONS must be a positive integer")
	}

	if c.KnowledgeTopK <= 0 {
		return errors.New("KNOWLEDGE_TOP_K must be a positive integer")
	}

	if c.KnowledgeMinScore < -1 || c.KnowledgeMinScore > 1 {
		return errors.New("KNOWLEDGE_MIN_SCORE must be between -1 and 1")
	}

	if c.QueryCacheSize <= 0 {
		return errors.New("QUERY_CACHE_SIZE must be a positive integer")
	}

	if c.EmbeddingRateLimit <= 0 {
		return errors.New("EMBEDDING_RATE_LIMIT must be positive")
	}

	if c.ChunkMaxChars <= 0 {
		return errors.New("CHUNK_MAX_CHARS must be a positive integer")
	}

	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkMaxChars {
		return errors.New("CHUNK_OVERLAP must be >= 0 and smaller than CHUNK_MAX_CHARS")
	}

	if c.CheckpointEvery <= 0 {
		return errors.New("CHECKPOINT_EVERY must be a positive integer")
	}

	return nil
}

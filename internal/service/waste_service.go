package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/freshkeep/hub/internal/huberrors"
	"github.com/freshkeep/hub/internal/models"
	"github.com/freshkeep/hub/internal/observability"
	"github.com/freshkeep/hub/internal/prompt"
	"github.com/freshkeep/hub/internal/retrieval"
	"github.com/freshkeep/hub/pkg/cache"
)

// QueryEmbeddingCacheName labels the question embedding cache in metrics.
const QueryEmbeddingCacheName = "waste_query_embedding"

var errEmptyGeneration = errors.New("empty generation response")

// DefaultKnowledgeTopK is used when WasteServiceParams.TopK is zero.
const DefaultKnowledgeTopK = 5

// Fixed answers returned without (or instead of) generated text.
const (
	AnswerMissingCredential  = "The waste disposal assistant is not configured on this server (no generation API key)."
	AnswerMissingCorpus      = "The waste disposal knowledge base is not available on this server."
	AnswerIncompatibleCorpus = "The waste disposal knowledge base was built for a different embedding model and cannot be searched."
	AnswerNoRelevantInfo     = "I could not find information about this question in the waste disposal guides."
	AnswerUnverified         = "I couldn't verify an answer right now. Please check your local waste disposal guide."
)

// WasteService answers waste sorting and disposal questions from the pre-embedded knowledge base.
type WasteService struct {
	embedder   EmbeddingClient
	generator  GenerationClient
	chunks     []models.CorpusChunk
	policy     Policy
	topK       int
	minScore   *float64
	language   string
	timeout    time.Duration
	queryCache *cache.LoaderCache[string, []float32]
	cacheStats observability.CacheMetrics
	metrics    observability.PipelineMetrics
	logger     *slog.Logger
}

// WasteServiceParams configures WasteService. Embedder or Generator nil means no credential was
// configured. MinScore <= 0 disables the relevance floor. EmbeddingDimensions is the length of
// query embeddings; chunks of any other length degrade the pipeline. Zero skips that check. QueryCache, CacheMetrics and Metrics
// may be nil.
type WasteServiceParams struct {
	Embedder  EmbeddingClient
	Generator GenerationClient
	Chunks    []models.CorpusChunk
	TopK      int
	MinScore  float64

	EmbeddingDimensions int

	Language     string
	Timeout      time.Duration
	QueryCache   *cache.LoaderCache[string, []float32]
	CacheMetrics observability.CacheMetrics
	Metrics      observability.PipelineMetrics
	Logger       *slog.Logger
}

// NewWasteService creates a WasteService and fixes its degradation policy.
func NewWasteService(p WasteServiceParams) *WasteService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &WasteService{
		embedder:   p.Embedder,
		generator:  p.Generator,
		chunks:     p.Chunks,
		policy:     NewPolicy(p.Embedder != nil && p.Generator != nil, len(p.Chunks)),
		topK:       positiveOr(p.TopK, DefaultKnowledgeTopK),
		language:   p.Language,
		timeout:    p.Timeout,
		queryCache: p.QueryCache,
		cacheStats: p.CacheMetrics,
		metrics:    p.Metrics,
		logger:     logger,
	}

	if p.MinScore > 0 {
		floor := p.MinScore
		s.minScore = &floor
	}

	if s.timeout <= 0 {
		s.timeout = DefaultGenerationTimeout
	}

	var chunkDims int

	s.policy, chunkDims = s.policy.withDimensionCheck(p.Chunks, p.EmbeddingDimensions)

	if s.policy.Degraded() {
		logger.Warn("waste pipeline degraded",
			"reason", string(s.policy.Reason()),
			"corpus_size", len(p.Chunks),
			"corpus_dimensions", chunkDims,
			"query_dimensions", p.EmbeddingDimensions,
		)
	}

	return s
}

// Status reports the pipeline mode for the status endpoint.
func (s *WasteService) Status() PipelineStatus {
	return PipelineStatus{
		Pipeline:   observability.PipelineWaste,
		Mode:       s.policy.Mode(),
		Reason:     s.policy.Reason(),
		CorpusSize: len(s.chunks),
	}
}

// Answer answers a question grounded in the most similar knowledge base chunks. The only error is
// a ValidationError for a blank question; backend failures yield a fixed "couldn't verify" answer.
// Sources lists the distinct sources of the chunks given to the backend, in first-used order.
func (s *WasteService) Answer(ctx context.Context, question string) (models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		s.recordOutcome(ctx, observability.OutcomeRejected)

		return models.Answer{}, huberrors.NewValidationError("question", "question is required and must be non-empty")
	}

	if s.policy.Degraded() {
		s.recordOutcome(ctx, observability.OutcomeDegraded)

		text := AnswerMissingCorpus

		switch s.policy.Reason() {
		case ReasonMissingCredential:
			text = AnswerMissingCredential
		case ReasonCorpusDimensionMismatch:
			text = AnswerIncompatibleCorpus
		}

		return fixedAnswer(text), nil
	}

	queryVec, err := s.embedQuestion(ctx, question)
	if err != nil {
		s.logger.WarnContext(ctx, "waste question embedding failed", "error", err)
		s.recordOutcome(ctx, observability.OutcomeFallback)

		return fixedAnswer(AnswerUnverified), nil
	}

	selected := retrieval.Items(retrieval.Select(
		retrieval.ScoreChunks(queryVec, s.chunks), s.topK, retrieval.SelectOptions{MinScore: s.minScore},
	))
	if len(selected) == 0 {
		s.recordOutcome(ctx, observability.OutcomeNoData)

		return fixedAnswer(AnswerNoRelevantInfo), nil
	}

	start := time.Now()
	text, err := s.generate(ctx, question, selected)

	outcome := observability.OutcomeGenerated
	if err != nil {
		outcome = observability.OutcomeFallback
	}

	if s.metrics != nil {
		s.metrics.RecordGenerationDuration(ctx, observability.PipelineWaste, outcome, time.Since(start))
	}

	s.recordOutcome(ctx, outcome)

	if err != nil {
		s.logger.WarnContext(ctx, "waste answer generation failed", "error", err, "chunks", len(selected))

		return fixedAnswer(AnswerUnverified), nil
	}

	return models.Answer{Text: text, Sources: retrieval.Sources(selected)}, nil
}

func (s *WasteService) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	load := func(ctx context.Context, q string) ([]float32, error) {
		vec, err := s.embedder.CreateEmbedding(ctx, q, models.IntentQuery)
		if err != nil {
			return nil, fmt.Errorf("create embedding: %w", err)
		}

		return vec, nil
	}

	if s.queryCache == nil {
		return load(embedCtx, question)
	}

	vec, hit, err := s.queryCache.GetWithStats(embedCtx, question, load)
	if err != nil {
		return nil, err
	}

	if s.cacheStats != nil {
		if hit {
			s.cacheStats.RecordHit(ctx, QueryEmbeddingCacheName)
		} else {
			s.cacheStats.RecordMiss(ctx, QueryEmbeddingCacheName)
		}
	}

	return vec, nil
}

func (s *WasteService) generate(ctx context.Context, question string, selected []models.CorpusChunk) (string, error) {
	promptText, err := prompt.BuildWastePrompt(prompt.WastePromptInput{
		Question: question,
		Context:  retrieval.AssembleChunkContext(selected),
		Language: s.language,
	})
	if err != nil {
		return "", fmt.Errorf("build waste prompt: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.GenerateText(genCtx, models.GenerationRequest{
		SystemInstruction: prompt.WasteSystemInstruction,
		Prompt:            promptText,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generate answer: %w", errEmptyGeneration)
	}

	return text, nil
}

func (s *WasteService) recordOutcome(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOutcome(ctx, observability.PipelineWaste, outcome)
	}
}

func fixedAnswer(text string) models.Answer {
	return models.Answer{Text: text, Sources: []string{}}
}

// NewQueryEmbeddingCache creates the question embedding cache. Questions are keyed after
// trimming and collapsing internal whitespace. loadTimeout bounds one shared embedding call.
func NewQueryEmbeddingCache(maxEntries int, loadTimeout time.Duration) (*cache.LoaderCache[string, []float32], error) {
	c, err := cache.NewLoaderCache[string, []float32](maxEntries, func(q string) string {
		return strings.Join(strings.Fields(q), " ")
	}, cache.WithLoadTimeout(loadTimeout))
	if err != nil {
		return nil, fmt.Errorf("query embedding cache: %w", err)
	}

	return c, nil
}

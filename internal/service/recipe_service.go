package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/freshkeep/hub/internal/huberrors"
	"github.com/freshkeep/hub/internal/models"
	"github.com/freshkeep/hub/internal/observability"
	"github.com/freshkeep/hub/internal/prompt"
	"github.com/freshkeep/hub/internal/retrieval"
)

// Defaults used when RecipeServiceParams leaves a field zero.
const (
	DefaultRecipeTopK        = 5
	DefaultNumSuggestions    = 3
	DefaultGenerationTimeout = 30 * time.Second
)

// Suggestion source types recorded in history.
const (
	SourceTypeGenerated = "generated"
	SourceTypeFallback  = "fallback"
)

// Titles of the fixed payloads returned without calling the backend.
const (
	DegradedRecipeTitle = "Recipe suggestions unavailable"
	NoDataRecipeTitle   = "No reference recipes available"
)

var recipeSelectOptions = retrieval.SelectOptions{PositiveOnly: true, FallbackToCorpus: true}

// SuggestionRecorder stores suggestions returned to callers. Failures never affect the response.
type SuggestionRecorder interface {
	RecordSuggestions(ctx context.Context, query []string, sourceType string, suggestions []models.Suggestion) error
}

// RecipeService suggests recipes for a list of ingredients, grounded in the reference recipe corpus.
type RecipeService struct {
	generator      GenerationClient
	corpus         []models.CorpusItem
	policy         Policy
	topK           int
	numSuggestions int
	pantryStaples  []string
	language       string
	timeout        time.Duration
	recorder       SuggestionRecorder
	metrics        observability.PipelineMetrics
	logger         *slog.Logger
}

// RecipeServiceParams configures RecipeService. Generator nil means no credential was configured.
// Recorder and Metrics may be nil.
type RecipeServiceParams struct {
	Generator      GenerationClient
	Corpus         []models.CorpusItem
	TopK           int
	NumSuggestions int
	PantryStaples  []string
	Language       string
	Timeout        time.Duration
	Recorder       SuggestionRecorder
	Metrics        observability.PipelineMetrics
	Logger         *slog.Logger
}

// NewRecipeService creates a RecipeService and fixes its degradation policy.
func NewRecipeService(p RecipeServiceParams) *RecipeService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &RecipeService{
		generator:      p.Generator,
		corpus:         p.Corpus,
		policy:         NewPolicy(p.Generator != nil, len(p.Corpus)),
		topK:           positiveOr(p.TopK, DefaultRecipeTopK),
		numSuggestions: positiveOr(p.NumSuggestions, DefaultNumSuggestions),
		pantryStaples:  p.PantryStaples,
		language:       p.Language,
		timeout:        p.Timeout,
		recorder:       p.Recorder,
		metrics:        p.Metrics,
		logger:         logger,
	}

	if s.timeout <= 0 {
		s.timeout = DefaultGenerationTimeout
	}

	if s.policy.Degraded() {
		logger.Warn("recipe pipeline degraded", "reason", string(s.policy.Reason()), "corpus_size", len(p.Corpus))
	}

	return s
}

// Status reports the pipeline mode for the status endpoint.
func (s *RecipeService) Status() PipelineStatus {
	return PipelineStatus{
		Pipeline:   observability.PipelineRecipe,
		Mode:       s.policy.Mode(),
		Reason:     s.policy.Reason(),
		CorpusSize: len(s.corpus),
	}
}

// Suggest returns up to NumSuggestions recipes for the given ingredients. The only error is a
// ValidationError for an ingredient list with no non-blank entry; every backend failure is
// absorbed into fallback suggestions built from the best-matching reference recipes.
func (s *RecipeService) Suggest(ctx context.Context, ingredients []string) ([]models.Suggestion, error) {
	query := cleanIngredients(ingredients)
	if len(query) == 0 {
		s.recordOutcome(ctx, observability.OutcomeRejected)

		return nil, huberrors.NewValidationError("ingredients", "at least one non-blank ingredient is required")
	}

	if s.policy.Degraded() {
		s.recordOutcome(ctx, observability.OutcomeDegraded)

		return degradedSuggestions(s.policy.Reason()), nil
	}

	selected := retrieval.Items(retrieval.Select(retrieval.ScoreRecipes(query, s.corpus), s.topK, recipeSelectOptions))
	if len(selected) == 0 {
		s.recordOutcome(ctx, observability.OutcomeNoData)

		return noDataSuggestions(), nil
	}

	start := time.Now()
	raw, genErr := s.generate(ctx, query, selected)
	outcome := ParseSuggestions(ctx, raw, genErr, selected, s.numSuggestions, s.logger)

	metricOutcome, sourceType := observability.OutcomeGenerated, SourceTypeGenerated
	if outcome.Fallback() {
		metricOutcome, sourceType = observability.OutcomeFallback, SourceTypeFallback
	}

	if s.metrics != nil {
		s.metrics.RecordGenerationDuration(ctx, observability.PipelineRecipe, metricOutcome, time.Since(start))
	}

	s.recordOutcome(ctx, metricOutcome)
	s.logger.InfoContext(ctx, "recipe suggestions produced",
		"ingredients", len(query),
		"candidates", len(selected),
		"suggestions", len(outcome.Suggestions),
		"source_type", sourceType,
	)

	s.record(ctx, query, sourceType, outcome.Suggestions)

	return outcome.Suggestions, nil
}

func (s *RecipeService) generate(ctx context.Context, query []string, selected []models.CorpusItem) (string, error) {
	promptText, err := prompt.BuildRecipePrompt(prompt.RecipePromptInput{
		Ingredients:    query,
		Context:        retrieval.AssembleRecipeContext(selected),
		NumSuggestions: s.numSuggestions,
		PantryStaples:  s.pantryStaples,
		Language:       s.language,
	})
	if err != nil {
		return "", fmt.Errorf("build recipe prompt: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.GenerateText(genCtx, models.GenerationRequest{Prompt: promptText, JSONOutput: true})
	if err != nil {
		return "", fmt.Errorf("generate recipes: %w", err)
	}

	return text, nil
}

func (s *RecipeService) record(ctx context.Context, query []string, sourceType string, suggestions []models.Suggestion) {
	if s.recorder == nil {
		return
	}

	if err := s.recorder.RecordSuggestions(ctx, query, sourceType, suggestions); err != nil {
		s.logger.WarnContext(ctx, "recording suggestion history failed", "error", err)
	}
}

func (s *RecipeService) recordOutcome(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOutcome(ctx, observability.PipelineRecipe, outcome)
	}
}

// cleanIngredients trims entries and drops blank ones, keeping order.
func cleanIngredients(ingredients []string) []string {
	out := make([]string, 0, len(ingredients))

	for _, ing := range ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			out = append(out, ing)
		}
	}

	return out
}

func degradedSuggestions(reason DegradedReason) []models.Suggestion {
	instructions := "Recipe suggestions are not configured on this server."

	switch reason {
	case ReasonMissingCredential:
		instructions = "Recipe suggestions are unavailable because no generation API key is configured."
	case ReasonMissingCorpus:
		instructions = "Recipe suggestions are unavailable because the reference recipe data could not be loaded."
	case ReasonNone:
	}

	return []models.Suggestion{fixedSuggestion(DegradedRecipeTitle, instructions)}
}

func noDataSuggestions() []models.Suggestion {
	return []models.Suggestion{fixedSuggestion(NoDataRecipeTitle, "No reference recipes matched the request.")}
}

func fixedSuggestion(title, instructions string) models.Suggestion {
	return models.Suggestion{
		Title:        &title,
		Ingredients:  []string{},
		Instructions: &instructions,
	}
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}

	return def
}

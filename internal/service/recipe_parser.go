package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/freshkeep/hub/internal/models"
)

// ParseState is a state of the recipe response parser.
type ParseState string

// Parser states. Every run starts in StateAwaitingRawText and ends in StateDone, passing through
// either StateParsedOK or StateParseFailed followed by StateFallbackApplied.
const (
	StateAwaitingRawText ParseState = "awaiting_raw_text"
	StateParsedOK        ParseState = "parsed_ok"
	StateParseFailed     ParseState = "parse_failed"
	StateFallbackApplied ParseState = "fallback_applied"
	StateDone            ParseState = "done"
)

// FallbackInstructionsNote is used as instructions for a fallback suggestion whose reference
// recipe has no steps.
const FallbackInstructionsNote = "Generated from reference recipe data; no cooking steps are recorded for this recipe."

var (
	errNotJSONArray    = errors.New("response is not a JSON array")
	errEmptyArray      = errors.New("response array is empty")
	errNonObjectMember = errors.New("response array contains a non-object element")
)

// ParseOutcome is the result of one parser run.
type ParseOutcome struct {
	Suggestions []models.Suggestion
	// Final is the state that produced Suggestions: StateParsedOK or StateFallbackApplied.
	Final ParseState
	// Trail lists every state visited, in order.
	Trail []ParseState
	// Err is why parsing failed (nil when Final is StateParsedOK).
	Err error
}

// Fallback reports whether the suggestions were synthesized from the candidates.
func (o ParseOutcome) Fallback() bool {
	return o.Final == StateFallbackApplied
}

// recipeParser records the states a run passes through.
type recipeParser struct {
	logger *slog.Logger
	trail  []ParseState
}

func (p *recipeParser) enter(ctx context.Context, state ParseState) {
	p.trail = append(p.trail, state)
	p.logger.DebugContext(ctx, "recipe parser transition", "state", string(state))
}

// ParseSuggestions turns raw generation output into at most limit suggestions. genErr is the
// error of the generation call, if any; a failed or timed-out call is handled exactly like
// unparseable text. When parsing fails the suggestions are built from candidates, so the result
// is non-empty whenever candidates is. It never panics.
func ParseSuggestions(
	ctx context.Context, raw string, genErr error, candidates []models.CorpusItem, limit int, logger *slog.Logger,
) ParseOutcome {
	if logger == nil {
		logger = slog.Default()
	}

	p := &recipeParser{logger: logger}
	p.enter(ctx, StateAwaitingRawText)

	err := genErr
	if err == nil {
		var suggestions []models.Suggestion

		if suggestions, err = safeDecode(raw); err == nil {
			p.enter(ctx, StateParsedOK)
			p.enter(ctx, StateDone)

			return ParseOutcome{Suggestions: truncate(suggestions, limit), Final: StateParsedOK, Trail: p.trail}
		}
	}

	p.enter(ctx, StateParseFailed)
	logger.WarnContext(ctx, "recipe response unusable, falling back to reference recipes",
		"error", err,
		"candidates", len(candidates),
	)

	p.enter(ctx, StateFallbackApplied)

	suggestions := FallbackSuggestions(candidates, limit)
	p.enter(ctx, StateDone)

	return ParseOutcome{Suggestions: suggestions, Final: StateFallbackApplied, Trail: p.trail, Err: err}
}

// safeDecode converts a panic inside decoding into an error.
func safeDecode(raw string) (suggestions []models.Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			suggestions = nil
			err = fmt.Errorf("decode recipe response: panic: %v", r)
		}
	}()

	return decodeSuggestions(raw)
}

func decodeSuggestions(raw string) ([]models.Suggestion, error) {
	body := stripCodeFence(raw)
	if !strings.HasPrefix(body, "[") {
		return nil, errNotJSONArray
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(body), &elements); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotJSONArray, err)
	}

	if len(elements) == 0 {
		return nil, errEmptyArray
	}

	out := make([]models.Suggestion, 0, len(elements))

	for i, el := range elements {
		if !bytes.HasPrefix(bytes.TrimSpace(el), []byte("{")) {
			return nil, fmt.Errorf("%w at index %d", errNonObjectMember, i)
		}

		var rs rawSuggestion
		if err := json.Unmarshal(el, &rs); err != nil {
			return nil, fmt.Errorf("decode recipe %d: %w", i, err)
		}

		out = append(out, rs.toSuggestion())
	}

	return out, nil
}

// stripCodeFence removes surrounding whitespace and a single Markdown code fence
// (``` or ```json) around the payload.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// rawSuggestion is one element of the generation output before defaults are applied.
type rawSuggestion struct {
	Title        *string      `json:"title"`
	Ingredients  stringList   `json:"ingredients"`
	Instructions flexibleText `json:"instructions"`
	SourceURL    *string      `json:"source_url"`
	ImageURL     *string      `json:"image_url"`
	Calories     calories     `json:"calories"`
}

func (r rawSuggestion) toSuggestion() models.Suggestion {
	ingredients := []string(r.Ingredients)
	if ingredients == nil {
		ingredients = []string{}
	}

	return models.Suggestion{
		Title:        r.Title,
		Ingredients:  ingredients,
		Instructions: r.Instructions.ptr,
		SourceURL:    r.SourceURL,
		ImageURL:     r.ImageURL,
		Calories:     float64(r.Calories),
	}
}

// calories accepts a JSON number, a numeric string (optionally suffixed with "kcal") or null.
// Anything else, including NaN and infinities, decodes as 0.
type calories float64

func (c *calories) UnmarshalJSON(data []byte) error {
	*c = 0

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		c.set(n)

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "kcal"))
		if f, convErr := strconv.ParseFloat(s, 64); convErr == nil {
			c.set(f)
		}
	}

	return nil
}

// set keeps only finite values; encoding/json cannot encode NaN or Inf.
func (c *calories) set(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}

	*c = calories(f)
}

// stringList accepts an array of strings, a comma-separated string, or null.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = compact(items)

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ingredients: %w", err)
	}

	*l = compact(strings.Split(s, ","))

	return nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))

	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}

	return out
}

// flexibleText accepts a string, an array of strings (joined by newlines), or null.
type flexibleText struct {
	ptr *string
}

func (f *flexibleText) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		f.ptr = nil

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.ptr = &s

		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("instructions: %w", err)
	}

	joined := strings.Join(lines, "\n")
	f.ptr = &joined

	return nil
}

// FallbackSuggestions builds up to limit suggestions directly from reference recipes.
func FallbackSuggestions(candidates []models.CorpusItem, limit int) []models.Suggestion {
	n := min(len(candidates), max(limit, 0))
	out := make([]models.Suggestion, 0, n)

	for _, item := range candidates[:n] {
		out = append(out, suggestionFromItem(item))
	}

	return out
}

func suggestionFromItem(item models.CorpusItem) models.Suggestion {
	title := item.Name

	instructions := item.Steps
	if strings.TrimSpace(instructions) == "" {
		instructions = FallbackInstructionsNote
	}

	ingredients := slices.Clone(item.Ingredients)
	if ingredients == nil {
		ingredients = []string{}
	}

	return models.Suggestion{
		Title:        &title,
		Ingredients:  ingredients,
		Instructions: &instructions,
	}
}

func truncate(suggestions []models.Suggestion, limit int) []models.Suggestion {
	if limit > 0 && len(suggestions) > limit {
		return suggestions[:limit]
	}

	return suggestions
}

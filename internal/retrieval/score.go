// Package retrieval scores corpus entries against a query, selects the top candidates, and
// renders them into prompt context.
package retrieval

import (
	"math"
	"strings"

	"github.com/freshkeep/hub/internal/models"
)

// Scored pairs a corpus entry with its score for one query. Index is the entry's position in
// the stored corpus and breaks score ties.
type Scored[T any] struct {
	Item  T
	Score float64
	Index int
}

func normalizeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))

	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}

		set[v] = struct{}{}
	}

	return set
}

// LexicalScore returns the number of distinct ingredient names shared by query and item after
// trimming and case folding. An empty query scores 0.
func LexicalScore(query, item []string) int {
	if len(query) == 0 || len(item) == 0 {
		return 0
	}

	q := normalizeSet(query)
	score := 0

	for name := range normalizeSet(item) {
		if _, ok := q[name]; ok {
			score++
		}
	}

	return score
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|), or 0 when either vector has zero norm.
// Vectors of different length are compared over their common prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, normA, normB float64

	for i := range n {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ScoreRecipes scores every corpus item against the query ingredient names.
func ScoreRecipes(query []string, items []models.CorpusItem) []Scored[models.CorpusItem] {
	out := make([]Scored[models.CorpusItem], len(items))

	for i, item := range items {
		out[i] = Scored[models.CorpusItem]{
			Item:  item,
			Score: float64(LexicalScore(query, item.Ingredients)),
			Index: i,
		}
	}

	return out
}

// ScoreChunks scores every knowledge chunk against the query embedding.
func ScoreChunks(query []float32, chunks []models.CorpusChunk) []Scored[models.CorpusChunk] {
	out := make([]Scored[models.CorpusChunk], len(chunks))

	for i, ch := range chunks {
		out[i] = Scored[models.CorpusChunk]{
			Item:  ch,
			Score: CosineSimilarity(query, ch.Embedding),
			Index: i,
		}
	}

	return out
}

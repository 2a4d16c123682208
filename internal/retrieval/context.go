package retrieval

import (
	"strings"

	"github.com/freshkeep/hub/internal/models"
)

// Separators placed between rendered candidates.
const (
	RecipeContextSeparator = "\n"
	ChunkContextSeparator  = "\n\n-----\n\n"
)

// AssembleRecipeContext renders recipes as fixed-shape blocks (name, ingredients, steps).
// The output is a pure function of the input; nothing is truncated here.
func AssembleRecipeContext(items []models.CorpusItem) string {
	blocks := make([]string, len(items))

	for i, item := range items {
		var b strings.Builder

		b.WriteString("- Recipe: ")
		b.WriteString(item.Name)
		b.WriteString("\n  Ingredients: ")
		b.WriteString(item.RawIngredients)
		b.WriteString("\n  Steps: ")
		b.WriteString(item.Steps)
		b.WriteString("\n")

		blocks[i] = b.String()
	}

	return strings.Join(blocks, RecipeContextSeparator)
}

// AssembleChunkContext renders knowledge chunks as "[source: ...]" headed blocks.
func AssembleChunkContext(chunks []models.CorpusChunk) string {
	blocks := make([]string, len(chunks))

	for i, ch := range chunks {
		blocks[i] = "[source: " + ch.Source + "]\n" + ch.Text
	}

	return strings.Join(blocks, ChunkContextSeparator)
}

// Sources returns the distinct source labels of chunks in first-seen order.
func Sources(chunks []models.CorpusChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))

	for _, ch := range chunks {
		if _, ok := seen[ch.Source]; ok {
			continue
		}

		seen[ch.Source] = struct{}{}
		out = append(out, ch.Source)
	}

	return out
}

// Package corpus loads the read-only reference corpora used by the retrieval pipelines:
// the recipe CSV and the pre-embedded knowledge base JSON.
package corpus

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"

	"github.com/freshkeep/hub/internal/models"
)

// Encoding names reported by DecodeText.
const (
	EncodingCP949    = "cp949"
	EncodingUTF8     = "utf-8"
	EncodingFallback = "utf-8-lossy"
)

// ErrMissingColumn is returned when the recipe CSV header lacks a required column.
var ErrMissingColumn = errors.New("recipe corpus: missing required column")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoder tries to decode raw bytes strictly; ok is false when the input is not valid in that encoding.
type decoder struct {
	name   string
	decode func(raw []byte) (text string, ok bool)
}

// candidateEncodings are tried in order. The first one that decodes cleanly wins.
var candidateEncodings = []decoder{
	{name: EncodingCP949, decode: decodeCP949},
	{name: EncodingUTF8, decode: decodeUTF8},
}

func decodeCP949(raw []byte) (string, bool) {
	out, err := korean.EUCKR.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}

	// x/text substitutes U+FFFD for undecodable sequences instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}

	return string(out), true
}

func decodeUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}

	return string(raw), true
}

// DecodeText decodes raw file contents by trying cp949 and then UTF-8. When neither decodes
// cleanly it falls back to a lossy UTF-8 read (invalid bytes replaced) instead of failing.
// A leading UTF-8 byte-order mark is always stripped.
func DecodeText(raw []byte) (text, encoding string) {
	if bytes.HasPrefix(raw, utf8BOM) {
		raw = raw[len(utf8BOM):]
	}

	for _, d := range candidateEncodings {
		if text, ok := d.decode(raw); ok {
			return text, d.name
		}
	}

	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), EncodingFallback
}

// SplitIngredients splits a comma-separated ingredient field into trimmed, non-empty names.
func SplitIngredients(field string) []string {
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// recipeColumns maps accepted header names to the positions of the fields we read.
type recipeColumns struct {
	id, name, ingredients, steps int
}

func resolveColumns(header []string) (recipeColumns, error) {
	cols := recipeColumns{id: -1, name: -1, ingredients: -1, steps: -1}

	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			cols.id = i
		case "name", "recipe_name":
			if cols.name < 0 {
				cols.name = i
			}
		case "ingredients":
			cols.ingredients = i
		case "steps":
			cols.steps = i
		}
	}

	switch {
	case cols.name < 0:
		return cols, fmt.Errorf("%w: name", ErrMissingColumn)
	case cols.ingredients < 0:
		return cols, fmt.Errorf("%w: ingredients", ErrMissingColumn)
	case cols.steps < 0:
		return cols, fmt.Errorf("%w: steps", ErrMissingColumn)
	}

	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
}

// LoadRecipes reads the recipe corpus CSV at path. It needs name (or recipe_name), ingredients
// and steps columns; an optional id column overrides the default id (1-based data row number).
// Rows without any ingredient are skipped. A missing file is returned as a wrapped os.ErrNotExist.
func LoadRecipes(path string) ([]models.CorpusItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe corpus: %w", err)
	}

	text, encoding := DecodeText(raw)

	items, skipped, err := ParseRecipes(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	slog.Info("recipe corpus loaded",
		"path", path,
		"encoding", encoding,
		"items", len(items),
		"skipped", skipped,
	)

	return items, nil
}

// ParseRecipes parses decoded CSV text into corpus items and reports how many rows were skipped.
func ParseRecipes(r io.Reader) ([]models.CorpusItem, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.CorpusItem{}, 0, nil
		}

		return nil, 0, fmt.Errorf("read recipe corpus header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, 0, err
	}

	var (
		items   = make([]models.CorpusItem, 0)
		skipped int
		row     int
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, 0, fmt.Errorf("read recipe corpus row %d: %w", row+1, err)
		}

		row++

		rawIngredients := field(record, cols.ingredients)

		ingredients := SplitIngredients(rawIngredients)
		if len(ingredients) == 0 {
			skipped++

			continue
		}

		id := row
		if v := field(record, cols.id); v != "" {
			if parsed, convErr := strconv.Atoi(v); convErr == nil {
				id = parsed
			}
		}

		items = append(items, models.CorpusItem{
			ID:             id,
			Name:           field(record, cols.name),
			Ingredients:    ingredients,
			RawIngredients: rawIngredients,
			Steps:          field(record, cols.steps),
		})
	}

	return items, skipped, nil
}

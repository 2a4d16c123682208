package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/freshkeep/hub/internal/models"
)

// LoadKnowledgeBase reads the knowledge base JSON array at path.
// Chunks without an embedding are skipped. A missing file is returned as a wrapped os.ErrNotExist.
func LoadKnowledgeBase(path string) ([]models.CorpusChunk, error) {
	chunks, err := ReadKnowledgeBase(path)
	if err != nil {
		return nil, err
	}

	out := make([]models.CorpusChunk, 0, len(chunks))
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			continue
		}

		out = append(out, ch)
	}

	slog.Info("knowledge base loaded",
		"path", path,
		"chunks", len(out),
		"skipped", len(chunks)-len(out),
	)

	return out, nil
}

// ReadKnowledgeBase reads every chunk in the file as stored, without filtering.
func ReadKnowledgeBase(path string) ([]models.CorpusChunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}

	var chunks []models.CorpusChunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, fmt.Errorf("decode knowledge base %s: %w", path, err)
	}

	return chunks, nil
}

// EncodeKnowledgeBase renders chunks as the canonical file contents: a JSON array with
// two-space indentation, unescaped non-ASCII and HTML characters, and a trailing newline.
// The same chunks always encode to the same bytes.
func EncodeKnowledgeBase(chunks []models.CorpusChunk) ([]byte, error) {
	if chunks == nil {
		chunks = []models.CorpusChunk{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(chunks); err != nil {
		return nil, fmt.Errorf("encode knowledge base: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteKnowledgeBase atomically replaces the file at path with the encoded chunks.
// The data is written to a temporary file in the same directory and renamed into place,
// so readers see either the previous file or the new one, never a partial write.
func WriteKnowledgeBase(path string, chunks []models.CorpusChunk) error {
	data, err := EncodeKnowledgeBase(chunks)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create knowledge base directory: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write knowledge base: %w", err)
	}

	return nil
}

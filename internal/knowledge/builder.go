package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/freshkeep/hub/internal/corpus"
	"github.com/freshkeep/hub/internal/models"
)

// DefaultCheckpointEvery is the number of newly embedded chunks between checkpoint writes.
const DefaultCheckpointEvery = 10

// ErrInvalidChunking is returned when overlap is not smaller than the chunk size.
var ErrInvalidChunking = errors.New("chunk overlap must be >= 0 and smaller than chunk size")

// Embedder generates document embeddings.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input string, intent models.EmbeddingIntent) ([]float32, error)
}

// BuilderParams configures Builder. Limiter nil disables rate limiting; Readers nil uses DefaultReaders.
type BuilderParams struct {
	SourceDir       string
	OutputPath      string
	Embedder        Embedder
	Limiter         *rate.Limiter
	MaxChars        int
	Overlap         int
	CheckpointEvery int
	Readers         map[string]DocumentReader
	Logger          *slog.Logger
}

// Summary reports what a rebuild did.
type Summary struct {
	Sources  int `json:"sources"`
	Chunks   int `json:"chunks"`
	Embedded int `json:"embedded"`
	Reused   int `json:"reused"`
	Pruned   int `json:"pruned"`

	// Unreadable counts sources that failed to read; their previous chunks are kept as they were.
	Unreadable int `json:"unreadable"`
}

// Builder rebuilds the knowledge base file incrementally: chunks whose id and text are already
// present in the existing file keep their embedding, only new or changed chunks are embedded.
type Builder struct {
	sourceDir       string
	outputPath      string
	embedder        Embedder
	limiter         *rate.Limiter
	maxChars        int
	overlap         int
	checkpointEvery int
	readers         map[string]DocumentReader
	logger          *slog.Logger
}

// NewBuilder validates params and creates a Builder.
func NewBuilder(p BuilderParams) (*Builder, error) {
	if p.Embedder == nil {
		return nil, errors.New("knowledge builder: embedder is required")
	}

	b := &Builder{
		sourceDir:       p.SourceDir,
		outputPath:      p.OutputPath,
		embedder:        p.Embedder,
		limiter:         p.Limiter,
		maxChars:        p.MaxChars,
		overlap:         p.Overlap,
		checkpointEvery: p.CheckpointEvery,
		readers:         p.Readers,
		logger:          p.Logger,
	}

	if b.maxChars <= 0 {
		b.maxChars = DefaultMaxChars
	}

	if b.overlap < 0 || b.overlap >= b.maxChars {
		return nil, fmt.Errorf("%w: overlap=%d size=%d", ErrInvalidChunking, b.overlap, b.maxChars)
	}

	if b.checkpointEvery <= 0 {
		b.checkpointEvery = DefaultCheckpointEvery
	}

	if b.readers == nil {
		b.readers = DefaultReaders()
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b, nil
}

// sourceDoc is one discovered source file.
type sourceDoc struct {
	path   string
	name   string
	prefix string
}

// Rebuild regenerates the knowledge base. The output lists chunks in source order (file name
// order, then chunk index), so rebuilding unchanged sources yields a byte-identical file.
// Progress is checkpointed with atomic writes; on error or cancellation the file holds the last
// checkpoint and a later run resumes from it.
func (b *Builder) Rebuild(ctx context.Context) (Summary, error) {
	var summary Summary

	existing, err := b.loadExisting()
	if err != nil {
		return summary, err
	}

	docs, err := b.discover()
	if err != nil {
		return summary, err
	}

	summary.Sources = len(docs)

	previous := make(map[string]models.CorpusChunk, len(existing))
	for _, c := range existing {
		previous[c.ID] = c
	}

	out := make([]models.CorpusChunk, 0, len(existing))
	produced := make(map[string]bool, len(existing))
	sinceCheckpoint := 0

	for _, doc := range docs {
		text, err := b.readers[strings.ToLower(filepath.Ext(doc.path))].ReadText(doc.path)
		if err != nil {
			kept := keepPrevious(existing, doc.name)
			b.logger.WarnContext(ctx, "source unreadable, keeping its previous chunks",
				"source", doc.name, "kept", len(kept), "error", err)

			for _, c := range kept {
				out = append(out, c)
				produced[c.ID] = true
			}

			summary.Unreadable++
			summary.Reused += len(kept)

			continue
		}

		chunks := ChunkText(text, b.maxChars, b.overlap)
		b.logger.DebugContext(ctx, "source chunked", "source", doc.name, "chunks", len(chunks))

		for i, chunkText := range chunks {
			chunk := models.CorpusChunk{
				ID:     doc.prefix + "-" + strconv.Itoa(i),
				Source: doc.name,
				Title:  doc.prefix,
				Text:   chunkText,
			}

			if prev, ok := previous[chunk.ID]; ok && prev.Text == chunk.Text && len(prev.Embedding) > 0 {
				chunk.Embedding = prev.Embedding
				summary.Reused++
			} else {
				chunk.Embedding, err = b.embed(ctx, chunk.Text)
				if err != nil {
					return summary, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
				}

				summary.Embedded++
				sinceCheckpoint++
			}

			out = append(out, chunk)
			produced[chunk.ID] = true

			if sinceCheckpoint >= b.checkpointEvery {
				if err := b.checkpoint(out, produced, existing); err != nil {
					return summary, err
				}

				b.logger.InfoContext(ctx, "knowledge base checkpoint written", "chunks", len(out), "embedded", summary.Embedded)
				sinceCheckpoint = 0
			}
		}
	}

	for _, c := range existing {
		if !produced[c.ID] {
			summary.Pruned++
		}
	}

	summary.Chunks = len(out)

	if err := corpus.WriteKnowledgeBase(b.outputPath, out); err != nil {
		return summary, fmt.Errorf("write knowledge base: %w", err)
	}

	b.logger.InfoContext(ctx, "knowledge base rebuilt",
		"path", b.outputPath,
		"sources", summary.Sources,
		"chunks", summary.Chunks,
		"embedded", summary.Embedded,
		"reused", summary.Reused,
		"pruned", summary.Pruned,
	)

	return summary, nil
}

// keepPrevious returns the chunks of source from the previous file, in their stored order.
func keepPrevious(existing []models.CorpusChunk, source string) []models.CorpusChunk {
	var kept []models.CorpusChunk

	for _, c := range existing {
		if c.Source == source && len(c.Embedding) > 0 {
			kept = append(kept, c)
		}
	}

	return kept
}

func (b *Builder) embed(ctx context.Context, text string) ([]float32, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	vec, err := b.embedder.CreateEmbedding(ctx, text, models.IntentDocument)
	if err != nil {
		return nil, err
	}

	if len(vec) == 0 {
		return nil, errors.New("empty embedding")
	}

	return vec, nil
}

// checkpoint writes the chunks built so far followed by the not yet revisited entries of the
// previous file, so no embedding is lost if the run stops here.
func (b *Builder) checkpoint(out []models.CorpusChunk, produced map[string]bool, existing []models.CorpusChunk) error {
	snapshot := slices.Clone(out)

	for _, c := range existing {
		if !produced[c.ID] {
			snapshot = append(snapshot, c)
		}
	}

	if err := corpus.WriteKnowledgeBase(b.outputPath, snapshot); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	return nil
}

func (b *Builder) loadExisting() ([]models.CorpusChunk, error) {
	existing, err := corpus.ReadKnowledgeBase(b.outputPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load existing knowledge base: %w", err)
	}

	return existing, nil
}

// discover lists supported source files in file name order. Chunk ids are prefixed with the file
// stem; when two files share a stem the later one uses its full file name.
func (b *Builder) discover() ([]sourceDoc, error) {
	entries, err := os.ReadDir(b.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	docs := make([]sourceDoc, 0, len(entries))
	prefixes := make(map[string]bool, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		path := filepath.Join(b.sourceDir, e.Name())
		if _, err := readerFor(b.readers, path); err != nil {
			b.logger.Debug("skipping unsupported source", "source", e.Name())

			continue
		}

		prefix := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if prefixes[prefix] {
			b.logger.Warn("duplicate source stem, using full file name as id prefix", "source", e.Name())
			prefix = e.Name()
		}

		prefixes[prefix] = true
		docs = append(docs, sourceDoc{path: path, name: e.Name(), prefix: prefix})
	}

	return docs, nil
}

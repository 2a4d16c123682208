package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/freshkeep/hub/internal/corpus"
	"github.com/freshkeep/hub/internal/models"
)

type fakeEmbedder struct {
	calls   atomic.Int32
	failAt  int32
	intents []models.EmbeddingIntent
}

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, input string, intent models.EmbeddingIntent) ([]float32, error) {
	n := f.calls.Add(1)
	if f.failAt > 0 && n >= f.failAt {
		return nil, errors.New("quota exceeded")
	}

	f.intents = append(f.intents, intent)

	return []float32{float32(len([]rune(input))), 0.5}, nil
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func newTestBuilder(t *testing.T, src, out string, emb Embedder, checkpointEvery int) *Builder {
	t.Helper()

	b, err := NewBuilder(BuilderParams{
		SourceDir:       src,
		OutputPath:      out,
		Embedder:        emb,
		MaxChars:        20,
		Overlap:         5,
		CheckpointEvery: checkpointEvery,
	})
	require.NoError(t, err)

	return b
}

func setupSources(t *testing.T) (src, out string) {
	t.Helper()

	src = t.TempDir()
	out = filepath.Join(t.TempDir(), "kb", "waste_knowledge.json")

	writeSource(t, src, "b-food.md", "# Food waste\nBones and shells are general waste, not food waste.")
	writeSource(t, src, "a-battery.txt", "Used batteries go to the dedicated collection box.")
	writeSource(t, src, "notes.docx", "ignored")

	return src, out
}

func TestNewBuilder_Validation(t *testing.T) {
	_, err := NewBuilder(BuilderParams{})
	require.Error(t, err)

	_, err = NewBuilder(BuilderParams{Embedder: &fakeEmbedder{}, MaxChars: 10, Overlap: 10})
	require.ErrorIs(t, err, ErrInvalidChunking)
}

func TestBuilder_Rebuild_Idempotent(t *testing.T) {
	src, out := setupSources(t)

	emb := &fakeEmbedder{}
	first, err := newTestBuilder(t, src, out, emb, 10).Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, first.Sources)
	assert.Positive(t, first.Chunks)
	assert.Equal(t, first.Chunks, first.Embedded)
	assert.Zero(t, first.Reused)
	assert.Equal(t, int32(first.Chunks), emb.calls.Load())

	for _, intent := range emb.intents {
		assert.Equal(t, models.IntentDocument, intent)
	}

	firstBytes, err := os.ReadFile(out)
	require.NoError(t, err)

	emb2 := &fakeEmbedder{}
	second, err := newTestBuilder(t, src, out, emb2, 10).Rebuild(context.Background())
	require.NoError(t, err)

	assert.Zero(t, second.Embedded)
	assert.Equal(t, first.Chunks, second.Reused)
	assert.Zero(t, second.Pruned)
	assert.Equal(t, int32(0), emb2.calls.Load())

	secondBytes, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(firstBytes), string(secondBytes))
}

func TestBuilder_Rebuild_IDsAndOrder(t *testing.T) {
	src, out := setupSources(t)

	_, err := newTestBuilder(t, src, out, &fakeEmbedder{}, 10).Rebuild(context.Background())
	require.NoError(t, err)

	chunks, err := corpus.LoadKnowledgeBase(out)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Sources in file name order, chunk indices in order within a source.
	assert.Equal(t, "a-battery-0", chunks[0].ID)
	assert.Equal(t, "a-battery.txt", chunks[0].Source)
	assert.Equal(t, "a-battery", chunks[0].Title)

	seenFood := false

	for i, c := range chunks {
		if strings.HasPrefix(c.ID, "b-food-") {
			seenFood = true
		} else {
			assert.False(t, seenFood, "battery chunk %d after food chunks", i)
		}

		assert.LessOrEqual(t, len([]rune(c.Text)), 20)
		assert.NotEmpty(t, c.Embedding)
	}

	assert.True(t, seenFood)
}

func TestBuilder_Rebuild_PrunesAndReembedsChanged(t *testing.T) {
	src, out := setupSources(t)

	first, err := newTestBuilder(t, src, out, &fakeEmbedder{}, 10).Rebuild(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, first.Sources)

	require.NoError(t, os.Remove(filepath.Join(src, "b-food.md")))
	writeSource(t, src, "a-battery.txt", "Used batteries go to the dedicated box at the community center.")

	emb := &fakeEmbedder{}
	second, err := newTestBuilder(t, src, out, emb, 10).Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, second.Sources)
	assert.Positive(t, second.Pruned)
	assert.Positive(t, second.Embedded)
	// The first window of the edited file is unchanged and keeps its embedding.
	assert.Positive(t, second.Reused)
	assert.Equal(t, second.Chunks, second.Embedded+second.Reused)

	chunks, err := corpus.LoadKnowledgeBase(out)
	require.NoError(t, err)

	for _, c := range chunks {
		assert.Equal(t, "a-battery.txt", c.Source)
	}
}

func TestBuilder_Rebuild_UnreadableSourceKeepsPreviousChunks(t *testing.T) {
	src, out := setupSources(t)

	_, err := newTestBuilder(t, src, out, &fakeEmbedder{}, 10).Rebuild(context.Background())
	require.NoError(t, err)

	before, err := os.ReadFile(out)
	require.NoError(t, err)

	readers := DefaultReaders()
	readers[".md"] = DocumentReaderFunc(func(string) (string, error) {
		return "", errors.New("temporary read failure")
	})

	emb := &fakeEmbedder{}
	b, err := NewBuilder(BuilderParams{
		SourceDir: src, OutputPath: out, Embedder: emb,
		MaxChars: 20, Overlap: 5, CheckpointEvery: 10, Readers: readers,
	})
	require.NoError(t, err)

	summary, err := b.Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Unreadable)
	assert.Zero(t, summary.Pruned)
	assert.Zero(t, summary.Embedded)
	assert.Equal(t, int32(0), emb.calls.Load())

	after, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestBuilder_Rebuild_CheckpointAndResume(t *testing.T) {
	src, out := setupSources(t)

	failing := &fakeEmbedder{failAt: 3}
	_, err := newTestBuilder(t, src, out, failing, 1).Rebuild(context.Background())
	require.Error(t, err)

	checkpoint, err := corpus.LoadKnowledgeBase(out)
	require.NoError(t, err)
	assert.Len(t, checkpoint, 2)

	emb := &fakeEmbedder{}
	summary, err := newTestBuilder(t, src, out, emb, 1).Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Reused)
	assert.Equal(t, summary.Chunks-2, summary.Embedded)
	assert.Equal(t, int32(summary.Embedded), emb.calls.Load())
}

func TestBuilder_Rebuild_CancelledKeepsPreviousFile(t *testing.T) {
	src, out := setupSources(t)

	_, err := newTestBuilder(t, src, out, &fakeEmbedder{}, 10).Rebuild(context.Background())
	require.NoError(t, err)

	before, err := os.ReadFile(out)
	require.NoError(t, err)

	writeSource(t, src, "c-glass.txt", "Rinse glass bottles before recycling them.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := NewBuilder(BuilderParams{
		SourceDir:  src,
		OutputPath: out,
		Embedder:   &fakeEmbedder{},
		Limiter:    rate.NewLimiter(rate.Limit(1), 1),
		MaxChars:   20,
		Overlap:    5,
	})
	require.NoError(t, err)

	_, err = b.Rebuild(ctx)
	require.ErrorIs(t, err, context.Canceled)

	after, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestBuilder_Rebuild_MissingSourceDir(t *testing.T) {
	b := newTestBuilder(t, filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "kb.json"), &fakeEmbedder{}, 10)

	_, err := b.Rebuild(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuilder_Rebuild_DuplicateStems(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "kb.json")

	writeSource(t, src, "guide.md", "Markdown guide.")
	writeSource(t, src, "guide.txt", "Text guide.")

	_, err := newTestBuilder(t, src, out, &fakeEmbedder{}, 10).Rebuild(context.Background())
	require.NoError(t, err)

	chunks, err := corpus.LoadKnowledgeBase(out)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "guide-0", chunks[0].ID)
	assert.Equal(t, "guide.txt-0", chunks[1].ID)
}

func TestReadPDF_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "broken.pdf", "not a pdf")

	_, err := ReadPDF(filepath.Join(dir, "broken.pdf"))
	require.Error(t, err)
}

func TestReaderFor(t *testing.T) {
	readers := DefaultReaders()

	for _, name := range []string{"a.pdf", "b.PDF", "c.txt", "d.md"} {
		_, err := readerFor(readers, name)
		require.NoError(t, err, name)
	}

	_, err := readerFor(readers, "e.docx")
	require.ErrorIs(t, err, ErrUnsupportedDocument)
}

package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshkeep/hub/internal/models"
)

func TestWriteAndLoadKnowledgeBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "kb.json")
	chunks := []models.CorpusChunk{
		{ID: "guide-0", Source: "guide.pdf", Title: "guide", Text: "페트병은 <라벨>을 제거", Embedding: []float32{0.1, 0.2}},
		{ID: "guide-1", Source: "guide.pdf", Title: "guide", Text: "no vector"},
	}

	require.NoError(t, WriteKnowledgeBase(path, chunks))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "페트병은 <라벨>을 제거", "non-ASCII and HTML characters are written verbatim")
	assert.Equal(t, byte('\n'), raw[len(raw)-1])

	all, err := ReadKnowledgeBase(path)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	loaded, err := LoadKnowledgeBase(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1, "chunks without embedding are skipped")
	assert.Equal(t, "guide-0", loaded[0].ID)
	assert.Equal(t, []float32{0.1, 0.2}, loaded[0].Embedding)
}

func TestEncodeKnowledgeBase_Deterministic(t *testing.T) {
	chunks := []models.CorpusChunk{
		{ID: "a-0", Source: "a.txt", Title: "a", Text: "x", Embedding: []float32{1, 0.5, -0.25}},
	}

	first, err := EncodeKnowledgeBase(chunks)
	require.NoError(t, err)

	second, err := EncodeKnowledgeBase(chunks)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeKnowledgeBase_Empty(t *testing.T) {
	data, err := EncodeKnowledgeBase(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestLoadKnowledgeBase_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadKnowledgeBase(filepath.Join(t.TempDir(), "none.json"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := LoadKnowledgeBase(writeFile(t, "kb.json", []byte("{not json")))
		require.Error(t, err)
	})
}

package knowledge

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIndexJSON = `[
  {"text": "[שירות: דיקור סיני] [קופת חולים: מכבי] [רמת ביטוח: זהב] 70% הנחה עד 20 טיפולים בשנה", "embedding": [1, 0, 0], "metadata": {"category": "רפואה משלימה", "service_name": "דיקור סיני", "hmo_name": "מכבי", "insurance_level": "זהב", "chunk_type": "table_cell"}},
  {"text": "Dental checkups are free once a year.", "embedding": [0, 1, 0], "metadata": {"category": "dental", "chunk_type": "paragraph"}},
  {"text": "Optometry exam discount", "embedding": [0.7, 0.7, 0], "metadata": {"category": "optometry", "hmo_name": "כללית", "chunk_type": "list_item"}}
]`

func mustLoad(t *testing.T, raw string) *Index {
	t.Helper()
	idx, err := Load(strings.NewReader(raw))
	require.NoError(t, err)
	return idx
}

func TestLoad_ValidIndex(t *testing.T) {
	idx := mustLoad(t, sampleIndexJSON)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.Dimension())
	assert.Equal(t, "dental", idx.Chunk(1).Metadata.Category)
	assert.Equal(t, "table_cell", idx.Chunk(0).Metadata.ChunkType)
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `[{"text": "a", "embedding": [1,`},
		{"not an array", `{"text": "a"}`},
		{"empty array", `[]`},
		{"empty text", `[{"text": "  ", "embedding": [1]}]`},
		{"missing embedding", `[{"text": "a"}]`},
		{"inconsistent dimension", `[{"text": "a", "embedding": [1, 0]}, {"text": "b", "embedding": [1]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Load(strings.NewReader(tt.raw))
			require.Error(t, err)
			assert.Nil(t, idx)

			var loadErr *IndexLoadError
			assert.True(t, errors.As(err, &loadErr), "expected IndexLoadError, got %T", err)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	idx, err := LoadFile(path)
	require.Error(t, err)
	assert.Nil(t, idx)

	var loadErr *IndexLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, path, loadErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFile_MalformedFileCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadFile(path)
	var loadErr *IndexLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, path, loadErr.Path)
	assert.Contains(t, err.Error(), path)
}

func TestSearch_OrdersByDescendingScore(t *testing.T) {
	idx := mustLoad(t, sampleIndexJSON)

	matches, err := idx.Search([]float32{1, 0.1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Contains(t, matches[0].Chunk.Text, "דיקור סיני")
	assert.Equal(t, "Optometry exam discount", matches[1].Chunk.Text)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestSearch_TopKBounds(t *testing.T) {
	idx := mustLoad(t, sampleIndexJSON)

	matches, err := idx.Search([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Dental checkups are free once a year.", matches[0].Chunk.Text)

	all, err := idx.Search([]float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3, "fewer chunks than topK returns every chunk")

	_, err = idx.Search([]float32{0, 1, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := NewIndex([]Chunk{
		{Text: "first", Embedding: []float32{1, 0}},
		{Text: "second", Embedding: []float32{2, 0}},
		{Text: "third", Embedding: []float32{0, 1}},
		{Text: "fourth", Embedding: []float32{3, 0}},
	})
	require.NoError(t, err)

	matches, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "first", matches[0].Chunk.Text)
	assert.Equal(t, "second", matches[1].Chunk.Text)
	assert.Equal(t, "fourth", matches[2].Chunk.Text)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	idx := mustLoad(t, sampleIndexJSON)

	_, err := idx.Search([]float32{1, 0}, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_ZeroQueryScoresZero(t *testing.T) {
	idx := mustLoad(t, sampleIndexJSON)

	matches, err := idx.Search([]float32{0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Zero(t, matches[0].Score)
	assert.Contains(t, matches[0].Chunk.Text, "דיקור סיני")
}

func TestNewIndex_CopiesEmbeddings(t *testing.T) {
	vec := []float32{1, 0}
	idx, err := NewIndex([]Chunk{{Text: "a", Embedding: vec}})
	require.NoError(t, err)

	vec[0] = 0
	assert.Equal(t, float32(1), idx.Chunk(0).Embedding[0])
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{0.3, -1.2, 4.5, 0.01}
	b := []float32{2, 0.5, -0.25, 3}

	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-12)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{0, 1}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 1}))

	score := CosineSimilarity(a, b)
	assert.False(t, math.IsNaN(score))
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, -1.0)
}

func TestSearchScoresMatchCosineSimilarity(t *testing.T) {
	idx := mustLoad(t, sampleIndexJSON)
	query := []float32{0.2, 0.9, 0.4}

	matches, err := idx.Search(query, 3)
	require.NoError(t, err)
	for _, m := range matches {
		assert.InDelta(t, CosineSimilarity(query, m.Chunk.Embedding), m.Score, 1e-9)
	}
}

func TestStats(t *testing.T) {
	idx := mustLoad(t, sampleIndexJSON)

	stats := idx.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ByHMO["מכבי"])
	assert.Equal(t, 1, stats.ByHMO["כללית"])
	assert.Equal(t, 1, stats.ByHMO[undefinedLabel])
	assert.Equal(t, 1, stats.ByChunkType["paragraph"])
}

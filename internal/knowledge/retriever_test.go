package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetriever_ReturnsNearestChunks(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"כמה עולה שיננית?": {0, 1, 0},
	}}
	holder := NewHolder(mustLoad(t, sampleIndexJSON))
	r := NewRetriever(emb, holder)

	matches, err := r.Retrieve(context.Background(), "כמה עולה שיננית?", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Dental checkups are free once a year.", matches[0].Chunk.Text)
	assert.Equal(t, []string{"כמה עולה שיננית?"}, emb.calls)
}

func TestRetriever_UsesSwappedIndex(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	first, err := NewIndex([]Chunk{{Text: "old", Embedding: []float32{1, 0}}})
	require.NoError(t, err)
	holder := NewHolder(first)
	r := NewRetriever(emb, holder)

	next, err := NewIndex([]Chunk{{Text: "new", Embedding: []float32{1, 0}}})
	require.NoError(t, err)
	require.NoError(t, holder.Swap(next))

	matches, err := r.Retrieve(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Chunk.Text)
}

func TestRetriever_EmbedFailure(t *testing.T) {
	emb := &stubEmbedder{fail: map[string]bool{"q": true}}
	r := NewRetriever(emb, NewHolder(mustLoad(t, sampleIndexJSON)))

	_, err := r.Retrieve(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}

func TestRetriever_PropagatesSearchErrors(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	r := NewRetriever(emb, NewHolder(mustLoad(t, sampleIndexJSON)))

	_, err := r.Retrieve(context.Background(), "q", 3)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	emb.vectors["q"] = []float32{1, 0, 0}
	_, err = r.Retrieve(context.Background(), "q", 0)
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

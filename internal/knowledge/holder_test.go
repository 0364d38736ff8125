package knowledge

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndexFile(t *testing.T, path string, raw string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
}

func TestHolder_ReloadSwapsOnSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")
	writeIndexFile(t, path, sampleIndexJSON)

	first, err := LoadFile(path)
	require.NoError(t, err)
	holder := NewHolder(first)

	writeIndexFile(t, path, `[{"text": "only chunk", "embedding": [1, 0]}]`)
	next, err := holder.Reload(path)
	require.NoError(t, err)
	assert.Same(t, next, holder.Current())
	assert.Equal(t, 1, holder.Current().Len())
}

func TestHolder_FailedReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")
	writeIndexFile(t, path, sampleIndexJSON)

	first, err := LoadFile(path)
	require.NoError(t, err)
	holder := NewHolder(first)

	writeIndexFile(t, path, `[{"text": "broken"`)
	idx, err := holder.Reload(path)
	require.Error(t, err)
	assert.Nil(t, idx)
	assert.Same(t, first, holder.Current())
}

func TestHolder_SwapRejectsNil(t *testing.T) {
	holder := NewHolder(mustLoad(t, sampleIndexJSON))
	assert.Error(t, holder.Swap(nil))
	assert.Equal(t, 3, holder.Current().Len())
}

func TestHolder_NilIndexPanics(t *testing.T) {
	assert.Panics(t, func() { NewHolder(nil) })
}

func TestHolder_ConcurrentReadersDuringSwap(t *testing.T) {
	a := mustLoad(t, sampleIndexJSON)
	b, err := NewIndex([]Chunk{{Text: "b", Embedding: []float32{0, 0, 1}}})
	require.NoError(t, err)
	holder := NewHolder(a)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				idx := holder.Current()
				_, err := idx.Search([]float32{0, 0, 1}, 2)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			require.NoError(t, holder.Swap(b))
		} else {
			require.NoError(t, holder.Swap(a))
		}
	}
	wg.Wait()
}

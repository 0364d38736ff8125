package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
)

var (
	// ErrInvalidTopK is returned when a search asks for fewer than one result.
	ErrInvalidTopK = errors.New("knowledge: topK must be at least 1")
	// ErrDimensionMismatch is returned when a query vector does not match the index.
	ErrDimensionMismatch = errors.New("knowledge: query dimension does not match index")
)

// IndexLoadError reports a knowledge index that could not be loaded. The
// server must not serve retrieval requests when this is returned at startup.
type IndexLoadError struct {
	Path string
	Err  error
}

func (e *IndexLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("knowledge: load index: %v", e.Err)
	}
	return fmt.Sprintf("knowledge: load index %s: %v", e.Path, e.Err)
}

func (e *IndexLoadError) Unwrap() error { return e.Err }

// Index is an immutable, in-memory set of embedded chunks searched by a full
// linear scan. The corpus is small (low thousands of chunks) so no approximate
// structure is kept. Safe for concurrent readers without locking.
type Index struct {
	chunks []Chunk
	norms  []float64
	dim    int
}

// NewIndex validates chunks and builds an index over them. All embeddings must
// be non-empty and share one dimension.
func NewIndex(chunks []Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, errors.New("index contains no chunks")
	}
	dim := len(chunks[0].Embedding)
	idx := &Index{
		chunks: make([]Chunk, len(chunks)),
		norms:  make([]float64, len(chunks)),
		dim:    dim,
	}
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("chunk %d has empty text", i)
		}
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %d has empty embedding", i)
		}
		if len(c.Embedding) != dim {
			return nil, fmt.Errorf("chunk %d has dimension %d, want %d", i, len(c.Embedding), dim)
		}
		emb := make([]float32, dim)
		copy(emb, c.Embedding)
		c.Embedding = emb
		idx.chunks[i] = c
		idx.norms[i] = norm(emb)
	}
	return idx, nil
}

// Load decodes a JSON array of {text, embedding, metadata} records.
func Load(r io.Reader) (*Index, error) {
	var records []Chunk
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, &IndexLoadError{Err: fmt.Errorf("decode: %w", err)}
	}
	idx, err := NewIndex(records)
	if err != nil {
		return nil, &IndexLoadError{Err: err}
	}
	return idx, nil
}

// LoadFile opens and decodes the index file at path.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IndexLoadError{Path: path, Err: err}
	}
	defer f.Close()

	idx, err := Load(f)
	if err != nil {
		var loadErr *IndexLoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
			return nil, loadErr
		}
		return nil, &IndexLoadError{Path: path, Err: err}
	}
	return idx, nil
}

// Len returns the number of chunks.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.chunks)
}

// Dimension returns the embedding dimension shared by every chunk.
func (idx *Index) Dimension() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}

// Chunk returns the chunk at position i.
func (idx *Index) Chunk(i int) Chunk {
	return idx.chunks[i]
}

// Search returns up to topK chunks ordered by descending cosine similarity to
// query. Equal scores keep insertion order.
func (idx *Index) Search(query []float32, topK int) ([]Match, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}
	if idx.Len() == 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), idx.dim)
	}

	qNorm := norm(query)
	results := make([]Match, len(idx.chunks))
	for i, c := range idx.chunks {
		score := 0.0
		if qNorm != 0 && idx.norms[i] != 0 {
			score = dot(query, c.Embedding) / (qNorm * idx.norms[i])
		}
		results[i] = Match{Score: score, Chunk: c}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// CosineSimilarity returns dot(a,b)/(|a||b|). Vectors of different length or
// zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

// Stats summarises the index contents by category, HMO and chunk type.
type Stats struct {
	Total       int
	ByCategory  map[string]int
	ByHMO       map[string]int
	ByChunkType map[string]int
}

const undefinedLabel = "undefined"

// Stats counts chunks per metadata bucket.
func (idx *Index) Stats() Stats {
	s := Stats{
		Total:       idx.Len(),
		ByCategory:  map[string]int{},
		ByHMO:       map[string]int{},
		ByChunkType: map[string]int{},
	}
	if idx == nil {
		return s
	}
	for _, c := range idx.chunks {
		s.ByCategory[labelOrUndefined(c.Metadata.Category)]++
		s.ByHMO[labelOrUndefined(c.Metadata.HMOName)]++
		s.ByChunkType[labelOrUndefined(c.Metadata.ChunkType)]++
	}
	return s
}

func labelOrUndefined(v string) string {
	if strings.TrimSpace(v) == "" {
		return undefinedLabel
	}
	return v
}

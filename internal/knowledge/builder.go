package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 100
	defaultConcurrency = 4
)

// RawChunk is a tagged chunk produced by the external extractor, before it
// has been embedded.
type RawChunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// BuildReport summarises an index build.
type BuildReport struct {
	Input    int
	Embedded int
	Failed   int
}

// Builder embeds raw chunks into an index. Chunks are independent, so each
// batch is embedded concurrently; output order always matches input order.
type Builder struct {
	embedder    Embedder
	batchSize   int
	concurrency int
	logger      *logging.Logger
}

// NewBuilder creates a builder. Non-positive sizes fall back to defaults.
func NewBuilder(embedder Embedder, batchSize, concurrency int, logger *logging.Logger) *Builder {
	if embedder == nil {
		panic("knowledge: embedder cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Builder{
		embedder:    embedder,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Build embeds every chunk. A chunk whose embedding fails is logged and
// skipped; the build fails only if nothing could be embedded or ctx ends.
func (b *Builder) Build(ctx context.Context, raw []RawChunk) (*Index, BuildReport, error) {
	report := BuildReport{Input: len(raw)}
	if len(raw) == 0 {
		return nil, report, errors.New("knowledge: no chunks to index")
	}

	embeddings := make([][]float32, len(raw))
	batches := (len(raw) + b.batchSize - 1) / b.batchSize
	for start := 0; start < len(raw); start += b.batchSize {
		end := min(start+b.batchSize, len(raw))
		b.logger.Info("embedding batch",
			"batch", start/b.batchSize+1,
			"batches", batches,
			"size", end-start,
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.concurrency)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				vec, err := b.embedder.Embed(gctx, raw[i].Text)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					b.logger.Error("failed to embed chunk", "chunk", i, "error", err)
					return nil
				}
				embeddings[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, report, fmt.Errorf("knowledge: build cancelled: %w", err)
		}
	}

	chunks := make([]Chunk, 0, len(raw))
	for i, rc := range raw {
		if len(embeddings[i]) == 0 {
			report.Failed++
			continue
		}
		chunks = append(chunks, Chunk{
			Text:      rc.Text,
			Embedding: embeddings[i],
			Metadata:  rc.Metadata,
		})
	}
	report.Embedded = len(chunks)

	idx, err := NewIndex(chunks)
	if err != nil {
		return nil, report, fmt.Errorf("knowledge: build index: %w", err)
	}
	return idx, report, nil
}

// ReadRawChunks decodes a JSON array of {text, metadata} records, dropping
// records with blank text.
func ReadRawChunks(r io.Reader) ([]RawChunk, error) {
	var records []RawChunk
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("knowledge: decode chunks: %w", err)
	}
	out := records[:0]
	for _, rc := range records {
		if strings.TrimSpace(rc.Text) != "" {
			out = append(out, rc)
		}
	}
	return out, nil
}

// WriteFile persists idx at path in the format Load reads. The file is
// written next to its destination and renamed into place so a watching
// server never observes a partial index.
func WriteFile(path string, idx *Index) error {
	if idx.Len() == 0 {
		return errors.New("knowledge: refusing to write an empty index")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("knowledge: create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vectors-*.json")
	if err != nil {
		return fmt.Errorf("knowledge: create temp index: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(idx.chunks); err != nil {
		tmp.Close()
		return fmt.Errorf("knowledge: encode index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("knowledge: close temp index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("knowledge: move index into place: %w", err)
	}
	return nil
}

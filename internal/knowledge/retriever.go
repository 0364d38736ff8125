package knowledge

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var searchTracer = otel.Tracer("hmo.internal.knowledge.search")

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever embeds a query and searches the active index.
type Retriever struct {
	embedder Embedder
	source   Source
}

// NewRetriever wires an embedder to an index source.
func NewRetriever(embedder Embedder, source Source) *Retriever {
	if embedder == nil {
		panic("knowledge: embedder cannot be nil")
	}
	if source == nil {
		panic("knowledge: index source cannot be nil")
	}
	return &Retriever{embedder: embedder, source: source}
}

// Retrieve returns the topK chunks most similar to text.
func (r *Retriever) Retrieve(ctx context.Context, text string, topK int) ([]Match, error) {
	ctx, span := searchTracer.Start(ctx, "knowledge.retrieve")
	defer span.End()

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}

	idx := r.source.Current()
	matches, err := idx.Search(vec, topK)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("hmo.knowledge.top_k", topK),
		attribute.Int("hmo.knowledge.matches", len(matches)),
		attribute.Int("hmo.knowledge.index_size", idx.Len()),
	)
	return matches, nil
}

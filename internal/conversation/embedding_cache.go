package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultEmbeddingCacheTTL = 24 * time.Hour

// CachedEmbedder memoizes query embeddings in Redis. Embeddings are
// deterministic per model, so entries are keyed by model and text hash.
// Redis failures fall through to the wrapped embedder.
type CachedEmbedder struct {
	next   Embedder
	redis  *redis.Client
	model  string
	ttl    time.Duration
	tracer trace.Tracer
	logger *logging.Logger
}

func NewCachedEmbedder(next Embedder, client *redis.Client, model string, ttl time.Duration, logger *logging.Logger) *CachedEmbedder {
	if next == nil {
		panic("conversation: embedder cannot be nil")
	}
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultEmbeddingCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedEmbedder{
		next:   next,
		redis:  client,
		model:  model,
		ttl:    ttl,
		tracer: otel.Tracer("hmo.internal.conversation.embedding_cache"),
		logger: logger,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := c.tracer.Start(ctx, "conversation.embed_cached")
	defer span.End()

	key := embeddingKey(c.model, text)
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float32
		if jsonErr := json.Unmarshal(data, &vec); jsonErr == nil && len(vec) > 0 {
			span.SetAttributes(attribute.Bool("hmo.embedding.cache_hit", true))
			return vec, nil
		}
		c.logger.Warn("discarding corrupt cached embedding", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("embedding cache read failed", "error", err)
	}
	span.SetAttributes(attribute.Bool("hmo.embedding.cache_hit", false))

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	payload, err := json.Marshal(vec)
	if err != nil {
		return vec, nil
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

func embeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", model, hex.EncodeToString(sum[:]))
}

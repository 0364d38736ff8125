package conversation

import (
	"context"
	"time"
)

// ProviderObserver records provider call outcomes.
type ProviderObserver interface {
	ObserveProviderCall(provider, op string, err error, seconds float64)
}

// InstrumentedLLMClient reports latency and status of every completion call.
type InstrumentedLLMClient struct {
	next     LLMClient
	provider string
	observer ProviderObserver
}

func NewInstrumentedLLMClient(next LLMClient, provider string, observer ProviderObserver) *InstrumentedLLMClient {
	if next == nil {
		panic("conversation: llm client cannot be nil")
	}
	return &InstrumentedLLMClient{next: next, provider: provider, observer: observer}
}

func (c *InstrumentedLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	if c.observer != nil {
		c.observer.ObserveProviderCall(c.provider, "complete", err, time.Since(start).Seconds())
	}
	return resp, err
}

// InstrumentedEmbedder reports latency and status of every embedding call.
type InstrumentedEmbedder struct {
	next     Embedder
	provider string
	observer ProviderObserver
}

func NewInstrumentedEmbedder(next Embedder, provider string, observer ProviderObserver) *InstrumentedEmbedder {
	if next == nil {
		panic("conversation: embedder cannot be nil")
	}
	return &InstrumentedEmbedder{next: next, provider: provider, observer: observer}
}

func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.next.Embed(ctx, text)
	if e.observer != nil {
		e.observer.ObserveProviderCall(e.provider, "embed", err, time.Since(start).Seconds())
	}
	return vec, err
}

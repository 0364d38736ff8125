package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackLLMClient_PrimarySucceeds(t *testing.T) {
	primary := &stubLLMClient{replies: []string{"primary"}}
	fallback := &stubLLMClient{replies: []string{"fallback"}}
	client := NewFallbackLLMClient(primary, fallback, quietLogger())

	resp, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{user("x")}})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Text)
	assert.Zero(t, fallback.calls())
}

func TestFallbackLLMClient_FallsBackWithoutModel(t *testing.T) {
	primary := &stubLLMClient{err: errProviderDown}
	fallback := &stubLLMClient{replies: []string{"fallback"}}
	client := NewFallbackLLMClient(primary, fallback, quietLogger())

	resp, err := client.Complete(context.Background(), LLMRequest{Model: "gpt-4o", Messages: []ChatMessage{user("x")}})
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Text)
	assert.Empty(t, fallback.lastRequest().Model)
	assert.Equal(t, "gpt-4o", primary.lastRequest().Model)
}

func TestFallbackLLMClient_BothFail(t *testing.T) {
	fallbackErr := errors.New("fallback down")
	client := NewFallbackLLMClient(&stubLLMClient{err: errProviderDown}, &stubLLMClient{err: fallbackErr}, quietLogger())

	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{user("x")}})
	assert.ErrorIs(t, err, fallbackErr)
}

func TestFallbackLLMClient_NoFallbackOrCancelled(t *testing.T) {
	client := NewFallbackLLMClient(&stubLLMClient{err: errProviderDown}, nil, quietLogger())
	_, err := client.Complete(context.Background(), LLMRequest{})
	assert.ErrorIs(t, err, errProviderDown)

	fallback := &stubLLMClient{replies: []string{"fallback"}}
	client = NewFallbackLLMClient(&stubLLMClient{err: errProviderDown}, fallback, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Complete(ctx, LLMRequest{})
	assert.ErrorIs(t, err, errProviderDown)
	assert.Zero(t, fallback.calls())
}

package conversation

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultProviderTimeout = 30 * time.Second

type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// NewOpenAIClient builds a go-openai client. A non-empty azureEndpoint
// selects Azure OpenAI, where model names are deployment names.
func NewOpenAIClient(apiKey, azureEndpoint, apiVersion string) (*openai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: openai api key is required")
	}
	if strings.TrimSpace(azureEndpoint) == "" {
		return openai.NewClient(apiKey), nil
	}
	cfg := openai.DefaultAzureConfig(apiKey, azureEndpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.AzureModelMapperFunc = func(model string) string { return model }
	return openai.NewClientWithConfig(cfg), nil
}

// OpenAIChatClient implements LLMClient on the chat completions API.
type OpenAIChatClient struct {
	api      chatCompletionAPI
	model    string
	provider string
	timeout  time.Duration
}

// NewOpenAIChatClient wraps api. provider labels errors ("azure" or "openai").
func NewOpenAIChatClient(api chatCompletionAPI, model, provider string, timeout time.Duration) *OpenAIChatClient {
	if api == nil {
		panic("conversation: openai chat client cannot be nil")
	}
	if model == "" {
		model = openai.GPT4o
	}
	if provider == "" {
		provider = "openai"
	}
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &OpenAIChatClient{api: api, model: model, provider: provider, timeout: timeout}
}

func (c *OpenAIChatClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: block})
	}
	for _, msg := range req.Messages {
		role := msg.Role
		switch role {
		case ChatRoleSystem:
			role = openai.ChatMessageRoleSystem
		case ChatRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	if len(messages) == 0 {
		return LLMResponse{}, newProviderError(c.provider, "complete", errors.New("no messages"))
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	switch {
	case req.Temperature > 0:
		chatReq.Temperature = req.Temperature
	case req.Temperature == 0:
		// go-openai omits a zero temperature, which the API reads as 1.
		chatReq.Temperature = math.SmallestNonzeroFloat32
	}
	if req.TopP > 0 {
		chatReq.TopP = req.TopP
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, chatReq)
	if err != nil {
		return LLMResponse{}, newProviderError(c.provider, "complete", err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, newProviderError(c.provider, "complete", errors.New("empty choices"))
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}

// OpenAIEmbedder implements Embedder on the embeddings API.
type OpenAIEmbedder struct {
	api      embeddingAPI
	model    string
	provider string
	timeout  time.Duration
}

func NewOpenAIEmbedder(api embeddingAPI, model, provider string, timeout time.Duration) *OpenAIEmbedder {
	if api == nil {
		panic("conversation: embedding client cannot be nil")
	}
	if model == "" {
		model = string(openai.AdaEmbeddingV2)
	}
	if provider == "" {
		provider = "openai"
	}
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &OpenAIEmbedder{api: api, model: model, provider: provider, timeout: timeout}
}

// Model returns the embedding model name, used as part of cache keys.
func (e *OpenAIEmbedder) Model() string { return e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.api.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, newProviderError(e.provider, "embed", err)
	}
	if len(resp.Data) != 1 || len(resp.Data[0].Embedding) == 0 {
		return nil, newProviderError(e.provider, "embed", errors.New("embedding response was empty"))
	}
	return resp.Data[0].Embedding, nil
}

package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/hmo-benefits-assistant/internal/config"
	"github.com/wolfman30/hmo-benefits-assistant/internal/conversation"
)

// Provider names accepted by LLM_PROVIDER, LLM_FALLBACK_PROVIDER and
// EMBEDDING_PROVIDER.
const (
	ProviderAzure   = "azure"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// AWSConfigLoader resolves the AWS SDK configuration for Bedrock.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

func defaultAWSLoader(cfg *appconfig.Config) AWSConfigLoader {
	return func(ctx context.Context) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	}
}

// Closer releases a provider client.
type Closer func() error

// BuildLLMClient wires the configured completion provider, wrapped with
// metrics and, when LLM_FALLBACK_PROVIDER names a different provider, a
// single-retry fallback.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, deps Deps) (conversation.LLMClient, []Closer, error) {
	deps = deps.withDefaults(cfg)
	primaryName := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	primary, closePrimary, err := buildCompletionProvider(ctx, primaryName, cfg, deps)
	if err != nil {
		return nil, nil, err
	}
	closers := appendCloser(nil, closePrimary)
	client := conversation.LLMClient(conversation.NewInstrumentedLLMClient(primary, primaryName, deps.Metrics))

	fallbackName := strings.ToLower(strings.TrimSpace(cfg.LLMFallbackProvider))
	if fallbackName == "" || fallbackName == primaryName {
		deps.Logger.Info("llm provider configured", "provider", primaryName)
		return client, closers, nil
	}

	fallback, closeFallback, err := buildCompletionProvider(ctx, fallbackName, cfg, deps)
	if err != nil {
		// A broken fallback should not take the service down.
		deps.Logger.Warn("llm fallback provider unavailable", "provider", fallbackName, "error", err)
		return client, closers, nil
	}
	closers = appendCloser(closers, closeFallback)
	deps.Logger.Info("llm provider configured", "provider", primaryName, "fallback", fallbackName)
	return conversation.NewFallbackLLMClient(
		client,
		conversation.NewInstrumentedLLMClient(fallback, fallbackName, deps.Metrics),
		deps.Logger,
	), closers, nil
}

func buildCompletionProvider(ctx context.Context, name string, cfg *appconfig.Config, deps Deps) (conversation.LLMClient, Closer, error) {
	switch name {
	case ProviderAzure:
		if strings.TrimSpace(cfg.AzureOpenAIEndpoint) == "" {
			return nil, nil, fmt.Errorf("bootstrap: AZURE_OPENAI_ENDPOINT is required for provider %q", name)
		}
		api, err := conversation.NewOpenAIClient(cfg.AzureOpenAIAPIKey, cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIAPIVersion)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: azure openai: %w", err)
		}
		return conversation.NewOpenAIChatClient(api, cfg.OpenAIChatModel, ProviderAzure, cfg.ProviderTimeout), nil, nil
	case ProviderOpenAI:
		api, err := conversation.NewOpenAIClient(cfg.OpenAIAPIKey, "", "")
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: openai: %w", err)
		}
		return conversation.NewOpenAIChatClient(api, cfg.OpenAIChatModel, ProviderOpenAI, cfg.ProviderTimeout), nil, nil
	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for provider %q", name)
		}
		runtime, err := bedrockRuntime(ctx, deps)
		if err != nil {
			return nil, nil, err
		}
		return conversation.NewBedrockLLMClient(runtime, cfg.BedrockModelID, cfg.ProviderTimeout), nil, nil
	case ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, cfg.ProviderTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini: %w", err)
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}

// BuildEmbedder wires the configured embedding provider with metrics and,
// when a Redis client is supplied, the embedding cache.
func BuildEmbedder(ctx context.Context, cfg *appconfig.Config, deps Deps) (conversation.Embedder, error) {
	deps = deps.withDefaults(cfg)
	name := strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider))

	var (
		base  conversation.Embedder
		model string
	)
	switch name {
	case ProviderAzure:
		if strings.TrimSpace(cfg.AzureOpenAIEndpoint) == "" {
			return nil, fmt.Errorf("bootstrap: AZURE_OPENAI_ENDPOINT is required for embedding provider %q", name)
		}
		api, err := conversation.NewOpenAIClient(cfg.AzureOpenAIAPIKey, cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIAPIVersion)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: azure openai embeddings: %w", err)
		}
		e := conversation.NewOpenAIEmbedder(api, cfg.OpenAIEmbeddingModel, ProviderAzure, cfg.ProviderTimeout)
		base, model = e, e.Model()
	case ProviderOpenAI:
		api, err := conversation.NewOpenAIClient(cfg.OpenAIAPIKey, "", "")
		if err != nil {
			return nil, fmt.Errorf("bootstrap: openai embeddings: %w", err)
		}
		e := conversation.NewOpenAIEmbedder(api, cfg.OpenAIEmbeddingModel, ProviderOpenAI, cfg.ProviderTimeout)
		base, model = e, e.Model()
	case ProviderBedrock:
		runtime, err := bedrockRuntime(ctx, deps)
		if err != nil {
			return nil, err
		}
		e := conversation.NewBedrockEmbedder(runtime, cfg.BedrockEmbeddingModelID, cfg.ProviderTimeout)
		base, model = e, e.Model()
	default:
		return nil, fmt.Errorf("bootstrap: unknown embedding provider %q", name)
	}

	embedder := conversation.Embedder(conversation.NewInstrumentedEmbedder(base, name, deps.Metrics))
	if deps.Redis != nil {
		deps.Logger.Info("embedding cache enabled", "model", model, "ttl", cfg.EmbeddingCacheTTL.String())
		embedder = conversation.NewCachedEmbedder(embedder, deps.Redis, name+":"+model, cfg.EmbeddingCacheTTL, deps.Logger)
	}
	return embedder, nil
}

func bedrockRuntime(ctx context.Context, deps Deps) (*bedrockruntime.Client, error) {
	awsCfg, err := deps.LoadAWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

func appendCloser(closers []Closer, c Closer) []Closer {
	if c == nil {
		return closers
	}
	return append(closers, c)
}

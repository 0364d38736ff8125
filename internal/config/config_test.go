package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LLM_PROVIDER", "EMBEDDING_PROVIDER", "KNOWLEDGE_INDEX_PATH",
		"RETRIEVAL_TOP_K", "PROVIDER_TIMEOUT", "CORS_ALLOWED_ORIGINS", "KNOWLEDGE_INDEX_WATCH",
		"AZURE_OPENAI_API_VERSION", "OPENAI_CHAT_MODEL", "OPENAI_EMBEDDING_MODEL", "INDEX_BATCH_SIZE",
	} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "azure" || cfg.EmbeddingProvider != "azure" {
		t.Fatalf("expected azure providers by default, got %s/%s", cfg.LLMProvider, cfg.EmbeddingProvider)
	}
	if cfg.AzureOpenAIAPIVersion != "2024-02-01" {
		t.Fatalf("expected default api version, got %s", cfg.AzureOpenAIAPIVersion)
	}
	if cfg.OpenAIChatModel != "gpt-4o" || cfg.OpenAIEmbeddingModel != "text-embedding-ada-002" {
		t.Fatalf("unexpected default models %s/%s", cfg.OpenAIChatModel, cfg.OpenAIEmbeddingModel)
	}
	if cfg.KnowledgeIndexPath != "saved_vectors/vectors.json" {
		t.Fatalf("expected default index path, got %s", cfg.KnowledgeIndexPath)
	}
	if cfg.KnowledgeIndexWatch {
		t.Fatalf("expected index watch disabled by default")
	}
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RetrievalTopK)
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Fatalf("expected default provider timeout, got %s", cfg.ProviderTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected allow-all CORS by default, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.IndexBatchSize != 100 {
		t.Fatalf("expected default batch size 100, got %d", cfg.IndexBatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LLM_PROVIDER", " Bedrock ")
	t.Setenv("LLM_FALLBACK_PROVIDER", "gemini")
	t.Setenv("KNOWLEDGE_INDEX_PATH", "/data/vectors.json")
	t.Setenv("KNOWLEDGE_INDEX_WATCH", "true")
	t.Setenv("RETRIEVAL_TOP_K", "8")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("EMBEDDING_CACHE_TTL", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("INDEX_CONCURRENCY", "not-a-number")

	cfg := Load()
	if cfg.Port != "9090" || cfg.Env != "production" {
		t.Fatalf("expected overrides, got port=%s env=%s", cfg.Port, cfg.Env)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected provider normalized to bedrock, got %q", cfg.LLMProvider)
	}
	if cfg.LLMFallbackProvider != "gemini" {
		t.Fatalf("expected gemini fallback, got %q", cfg.LLMFallbackProvider)
	}
	if cfg.KnowledgeIndexPath != "/data/vectors.json" || !cfg.KnowledgeIndexWatch {
		t.Fatalf("expected index overrides, got %s watch=%v", cfg.KnowledgeIndexPath, cfg.KnowledgeIndexWatch)
	}
	if cfg.RetrievalTopK != 8 {
		t.Fatalf("expected top k override, got %d", cfg.RetrievalTopK)
	}
	if cfg.ProviderTimeout != 5*time.Second || cfg.EmbeddingCacheTTL != time.Hour {
		t.Fatalf("expected duration overrides, got %s/%s", cfg.ProviderTimeout, cfg.EmbeddingCacheTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}
	if cfg.IndexConcurrency != 4 {
		t.Fatalf("expected invalid int to fall back to default, got %d", cfg.IndexConcurrency)
	}
}

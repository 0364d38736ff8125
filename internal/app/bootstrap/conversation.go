package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/hmo-benefits-assistant/internal/config"
	"github.com/wolfman30/hmo-benefits-assistant/internal/conversation"
	"github.com/wolfman30/hmo-benefits-assistant/internal/knowledge"
	"github.com/wolfman30/hmo-benefits-assistant/internal/observability/metrics"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
)

// Deps carries process-level collaborators. Zero values are replaced with
// defaults; Metrics and Redis may stay nil.
type Deps struct {
	Logger        *logging.Logger
	Metrics       *metrics.ConversationMetrics
	Redis         *redis.Client
	LoadAWSConfig AWSConfigLoader
	// Index, when set, is served instead of loading KNOWLEDGE_INDEX_PATH.
	Index *knowledge.Index
}

func (d Deps) withDefaults(cfg *appconfig.Config) Deps {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.LoadAWSConfig == nil {
		d.LoadAWSConfig = defaultAWSLoader(cfg)
	}
	return d
}

// Conversation is the fully wired question-answering pipeline.
type Conversation struct {
	Orchestrator *conversation.Orchestrator
	Holder       *knowledge.Holder
	Retriever    *knowledge.Retriever
	LLM          conversation.LLMClient
	Embedder     conversation.Embedder

	closers []Closer
}

// Close releases provider clients.
func (c *Conversation) Close() error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildConversation loads the knowledge index and wires providers, retrieval
// and the orchestrator from config. An index that fails to load is returned
// as a *knowledge.IndexLoadError so the caller can refuse to start.
func BuildConversation(ctx context.Context, cfg *appconfig.Config, deps Deps) (*Conversation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults(cfg)

	idx := deps.Index
	if idx == nil {
		loaded, err := knowledge.LoadFile(cfg.KnowledgeIndexPath)
		if err != nil {
			return nil, err
		}
		idx = loaded
	}
	deps.Metrics.SetIndexChunks(idx.Len())
	deps.Logger.Info("knowledge index loaded",
		"path", cfg.KnowledgeIndexPath,
		"chunks", idx.Len(),
		"dimension", idx.Dimension(),
	)

	llm, closers, err := BuildLLMClient(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	embedder, err := BuildEmbedder(ctx, cfg, deps)
	if err != nil {
		closeAll(closers)
		return nil, err
	}

	holder := knowledge.NewHolder(idx)
	retriever := knowledge.NewRetriever(embedder, holder)

	orchestrator := conversation.NewOrchestrator(
		llm,
		conversation.NewSlotExtractor(llm, conversation.WithExtractorLogger(deps.Logger)),
		conversation.NewIntentGate(llm, deps.Logger),
		conversation.NewRetrievalAnswerer(llm, retriever,
			conversation.WithTopK(cfg.RetrievalTopK),
			conversation.WithRetrievalLogger(deps.Logger),
		),
		conversation.WithOrchestratorLogger(deps.Logger),
		conversation.WithTurnObserver(deps.Metrics),
	)

	return &Conversation{
		Orchestrator: orchestrator,
		Holder:       holder,
		Retriever:    retriever,
		LLM:          llm,
		Embedder:     embedder,
		closers:      closers,
	}, nil
}

// NewIndexWatcher returns a watcher that hot-reloads the index file into
// holder and reports each attempt to m.
func NewIndexWatcher(cfg *appconfig.Config, holder *knowledge.Holder, m *metrics.ConversationMetrics, logger *logging.Logger) *knowledge.Watcher {
	return knowledge.NewWatcher(cfg.KnowledgeIndexPath, holder, logger,
		knowledge.WithReloadHook(func(idx *knowledge.Index, err error) {
			m.ObserveIndexReload(err)
			if err == nil {
				m.SetIndexChunks(idx.Len())
			}
		}),
	)
}

func closeAll(closers []Closer) {
	for _, fn := range closers {
		_ = fn()
	}
}

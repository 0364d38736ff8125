package conversation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/hmo-benefits-assistant/internal/knowledge"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultRetrievalTopK = 5
	// Chunks shorter than this are treated as a weak match.
	weakChunkRunes   = 50
	maxKeywords      = 3
	keywordTopK      = 2
	maxContextChunks = 5
	answerHistory    = 6
)

// ChunkRetriever finds knowledge chunks similar to a piece of text.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, text string, topK int) ([]knowledge.Match, error)
}

// RetrievalAnswerer answers a question grounded in the knowledge base and
// the user's HMO and insurance tier.
type RetrievalAnswerer struct {
	client    LLMClient
	retriever ChunkRetriever
	topK      int
	logger    *logging.Logger
}

type RetrievalOption func(*RetrievalAnswerer)

// WithTopK sets how many chunks are retrieved for the question.
func WithTopK(k int) RetrievalOption {
	return func(a *RetrievalAnswerer) {
		if k > 0 {
			a.topK = k
		}
	}
}

func WithRetrievalLogger(logger *logging.Logger) RetrievalOption {
	return func(a *RetrievalAnswerer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewRetrievalAnswerer(client LLMClient, retriever ChunkRetriever, opts ...RetrievalOption) *RetrievalAnswerer {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if retriever == nil {
		panic("conversation: chunk retriever cannot be nil")
	}
	a := &RetrievalAnswerer{
		client:    client,
		retriever: retriever,
		topK:      defaultRetrievalTopK,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer returns a grounded reply. Missing HMO/tier and empty retrieval
// produce fixed messages without an error; provider failures are returned.
func (a *RetrievalAnswerer) Answer(ctx context.Context, message string, profile UserProfile, history []ChatMessage) (string, error) {
	ctx, span := conversationTracer.Start(ctx, "conversation.answer")
	defer span.End()

	hmo := CanonicalHMO(profile.HMO)
	tier := CanonicalTier(profile.InsuranceTier)
	if hmo == "" || tier == "" {
		span.SetAttributes(attribute.String("hmo.answer.outcome", "need_more_info"))
		return NeedMoreInfoMessage(message), nil
	}
	span.SetAttributes(attribute.String("hmo.profile.hmo", hmo), attribute.String("hmo.profile.tier", tier))

	chunks, err := a.gatherChunks(ctx, message)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	grounding := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c == "" {
			continue
		}
		grounding = append(grounding, knowledge.Naturalize(c))
	}
	span.SetAttributes(attribute.Int("hmo.answer.chunks", len(grounding)))
	if len(grounding) == 0 {
		span.SetAttributes(attribute.String("hmo.answer.outcome", "not_found"))
		return NotFoundMessage(message), nil
	}

	recent := history
	if len(recent) > answerHistory {
		recent = recent[len(recent)-answerHistory:]
	}
	messages := make([]ChatMessage, 0, len(recent)+1)
	messages = append(messages, recent...)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: answerPrompt(message, profile, hmo, tier, grounding)})

	resp, err := a.client.Complete(ctx, LLMRequest{
		System:      []string{answerSystemPrompt},
		Messages:    messages,
		MaxTokens:   1000,
		Temperature: 0.1,
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("hmo.answer.outcome", "answered"))
	return resp.Text, nil
}

// gatherChunks retrieves for the whole question and, when every hit is
// short, supplements with per-keyword searches.
func (a *RetrievalAnswerer) gatherChunks(ctx context.Context, message string) ([]string, error) {
	matches, err := a.retriever.Retrieve(ctx, message, a.topK)
	if err != nil {
		return nil, fmt.Errorf("conversation: retrieve chunks: %w", err)
	}
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Chunk.Text)
	}
	if !weakMatch(texts) {
		return texts, nil
	}

	for _, kw := range Keywords(message) {
		extra, err := a.retriever.Retrieve(ctx, kw, keywordTopK)
		if err != nil {
			a.logger.Warn("keyword search failed", "keyword", kw, "error", err)
			continue
		}
		for _, m := range extra {
			texts = append(texts, m.Chunk.Text)
		}
	}
	return dedupe(texts, maxContextChunks), nil
}

func weakMatch(texts []string) bool {
	for _, t := range texts {
		if utf8.RuneCountInString(strings.TrimSpace(t)) >= weakChunkRunes {
			return false
		}
	}
	return true
}

// Keywords returns up to three lower-cased tokens longer than two runes,
// with "?", "." and "," removed.
func Keywords(message string) []string {
	cleaned := strings.NewReplacer("?", "", ".", "", ",", "").Replace(message)
	out := make([]string, 0, maxKeywords)
	for _, w := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		out = append(out, strings.ToLower(w))
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func dedupe(texts []string, limit int) []string {
	seen := make(map[string]struct{}, len(texts))
	out := make([]string, 0, limit)
	for _, t := range texts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var conversationTracer = otel.Tracer("hmo.internal.conversation")

// Branch labels for a handled turn.
const (
	BranchRegistration = "registration"
	BranchAnswer       = "answer"
	BranchRedirect     = "redirect"
	BranchError        = "error"
)

const redirectSystemPrompt = "You are a helpful healthcare assistant."

type ProfileExtractor interface {
	Extract(ctx context.Context, history []ChatMessage) UserProfile
}

type IntentClassifier interface {
	Classify(ctx context.Context, message string, history []ChatMessage) Intent
}

type Answerer interface {
	Answer(ctx context.Context, message string, profile UserProfile, history []ChatMessage) (string, error)
}

// TurnObserver records the branch and latency of each turn.
type TurnObserver interface {
	ObserveTurn(branch string, seconds float64)
}

// Result is the outcome of one turn. History is always the input history
// plus the user turn and the assistant turn. Err is for diagnostics only;
// Answer already holds a user-facing apology when it is set.
type Result struct {
	Answer  string
	History []ChatMessage
	Branch  string
	Err     error
}

// Orchestrator routes each turn to registration or question answering.
type Orchestrator struct {
	client    LLMClient
	extractor ProfileExtractor
	gate      IntentClassifier
	answerer  Answerer
	logger    *logging.Logger
	observer  TurnObserver
}

type OrchestratorOption func(*Orchestrator)

func WithOrchestratorLogger(logger *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithTurnObserver(observer TurnObserver) OrchestratorOption {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

func NewOrchestrator(client LLMClient, extractor ProfileExtractor, gate IntentClassifier, answerer Answerer, opts ...OrchestratorOption) *Orchestrator {
	if client == nil || extractor == nil || gate == nil || answerer == nil {
		panic("conversation: orchestrator requires client, extractor, gate and answerer")
	}
	o := &Orchestrator{
		client:    client,
		extractor: extractor,
		gate:      gate,
		answerer:  answerer,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Respond handles one user message. It never returns a partial history: on
// failure the assistant turn is an apology in the message's language and the
// prior turns are returned untouched. The input slice is never modified.
func (o *Orchestrator) Respond(ctx context.Context, message string, history []ChatMessage) Result {
	start := time.Now()
	ctx, span := conversationTracer.Start(ctx, "conversation.respond")
	defer span.End()
	span.SetAttributes(attribute.Int("hmo.history.turns", len(history)))

	branch, answer, err := o.safeRoute(ctx, message, history)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = errors.New("conversation: empty reply")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		o.logger.Error("conversation turn failed", "branch", branch, "error", err)
		branch = BranchError
		answer = ApologyMessage(message)
	}
	span.SetAttributes(attribute.String("hmo.branch", branch))

	updated := make([]ChatMessage, len(history), len(history)+2)
	copy(updated, history)
	updated = append(updated,
		ChatMessage{Role: ChatRoleUser, Content: message},
		ChatMessage{Role: ChatRoleAssistant, Content: answer},
	)

	if o.observer != nil {
		o.observer.ObserveTurn(branch, time.Since(start).Seconds())
	}
	o.logger.Info("conversation turn handled", "branch", branch, "turns", len(updated))

	return Result{Answer: answer, History: updated, Branch: branch, Err: err}
}

func (o *Orchestrator) safeRoute(ctx context.Context, message string, history []ChatMessage) (branch, answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversation: panic: %v", r)
		}
	}()
	return o.route(ctx, message, history)
}

func (o *Orchestrator) route(ctx context.Context, message string, history []ChatMessage) (string, string, error) {
	if !IsCollectionComplete(history) {
		answer, err := o.continueRegistration(ctx, message, history)
		return BranchRegistration, answer, err
	}

	profile := o.extractor.Extract(ctx, history)
	if o.gate.Classify(ctx, message, history) == IntentNonMedical {
		answer, err := o.redirect(ctx, message)
		return BranchRedirect, answer, err
	}

	answer, err := o.answerer.Answer(ctx, message, profile, history)
	return BranchAnswer, answer, err
}

func (o *Orchestrator) continueRegistration(ctx context.Context, message string, history []ChatMessage) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: message})

	resp, err := o.client.Complete(ctx, LLMRequest{
		System:      []string{registrationSystemPrompt},
		Messages:    messages,
		MaxTokens:   1000,
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (o *Orchestrator) redirect(ctx context.Context, message string) (string, error) {
	resp, err := o.client.Complete(ctx, LLMRequest{
		System:      []string{redirectSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: fmt.Sprintf(redirectPrompt, message)}},
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

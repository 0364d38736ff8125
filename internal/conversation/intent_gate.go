package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
)

// Intent is the outcome of the medical/non-medical gate.
type Intent string

const (
	IntentMedical    Intent = "MEDICAL"
	IntentNonMedical Intent = "NON_MEDICAL"
)

// DefaultIntentOnFailure is used when classification fails. The gate fails
// open: answering an off-topic question is preferred over refusing a real one.
const DefaultIntentOnFailure = IntentMedical

// intentContextTurns is how many recent turns accompany the message.
const intentContextTurns = 6

// IntentGate decides whether a question should be answered from the
// knowledge base or politely redirected.
type IntentGate struct {
	client LLMClient
	logger *logging.Logger
}

func NewIntentGate(client LLMClient, logger *logging.Logger) *IntentGate {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IntentGate{client: client, logger: logger}
}

// Classify never fails; provider and parse errors yield DefaultIntentOnFailure.
func (g *IntentGate) Classify(ctx context.Context, message string, history []ChatMessage) Intent {
	ctx, span := conversationTracer.Start(ctx, "conversation.classify_intent")
	defer span.End()

	recent := history
	if len(recent) > intentContextTurns {
		recent = recent[len(recent)-intentContextTurns:]
	}

	resp, err := g.client.Complete(ctx, LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: fmt.Sprintf(intentPrompt, message, transcript(recent))}},
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		span.RecordError(err)
		g.logger.Warn("intent classification failed; failing open", "error", err, "default", DefaultIntentOnFailure)
		return DefaultIntentOnFailure
	}

	intent, err := parseIntent(resp.Text)
	if err != nil {
		span.RecordError(err)
		g.logger.Warn("unparseable intent reply; failing open", "error", err, "default", DefaultIntentOnFailure)
		return DefaultIntentOnFailure
	}
	span.SetAttributes(attribute.String("hmo.intent", string(intent)))
	return intent
}

func parseIntent(reply string) (Intent, error) {
	v := strings.ToUpper(strings.TrimSpace(reply))
	v = strings.Trim(v, " \t\r\n.,!?:;\"'`*")
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	switch v {
	case string(IntentNonMedical):
		return IntentNonMedical, nil
	case string(IntentMedical):
		return IntentMedical, nil
	}
	return "", &ParseError{What: "intent", Raw: reply, Err: errors.New("expected MEDICAL or NON_MEDICAL")}
}

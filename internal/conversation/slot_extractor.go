package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
)

// minExtractedFields is the fewest valid fields the completion-based
// extraction must produce before the heuristic extractor is skipped.
const minExtractedFields = 4

// SlotExtractor rebuilds the user profile from a conversation history.
type SlotExtractor struct {
	client LLMClient
	logger *logging.Logger
}

type SlotExtractorOption func(*SlotExtractor)

func WithExtractorLogger(logger *logging.Logger) SlotExtractorOption {
	return func(e *SlotExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewSlotExtractor(client LLMClient, opts ...SlotExtractorOption) *SlotExtractor {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	e := &SlotExtractor{client: client, logger: logging.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the completion provider for the profile and falls back to the
// heuristic extractor when fewer than four valid fields come back. Values
// the heuristic finds take precedence; completion values fill its gaps.
func (e *SlotExtractor) Extract(ctx context.Context, history []ChatMessage) UserProfile {
	ctx, span := conversationTracer.Start(ctx, "conversation.extract_profile")
	defer span.End()

	primary, err := e.extractWithLLM(ctx, history)
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("profile extraction via completion failed", "error", err)
	}
	if primary.Filled() >= minExtractedFields {
		span.SetAttributes(
			attribute.String("hmo.extract.strategy", "completion"),
			attribute.Int("hmo.extract.fields", primary.Filled()),
		)
		return primary
	}

	profile := ExtractHeuristic(history)
	for _, field := range ProfileFields {
		if profile.Get(field) == "" {
			if v := primary.Get(field); v != "" {
				_ = profile.Set(field, v)
			}
		}
	}
	span.SetAttributes(
		attribute.String("hmo.extract.strategy", "heuristic"),
		attribute.Int("hmo.extract.fields", profile.Filled()),
	)
	e.logger.Debug("profile extracted heuristically", "fields", profile.Filled())
	return profile
}

func (e *SlotExtractor) extractWithLLM(ctx context.Context, history []ChatMessage) (UserProfile, error) {
	resp, err := e.client.Complete(ctx, LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: fmt.Sprintf(extractionPrompt, transcript(history))}},
		MaxTokens:   1000,
		Temperature: 0,
	})
	if err != nil {
		return UserProfile{}, err
	}
	return parseProfileReply(resp.Text)
}

// parseProfileReply decodes the first {...} block of a completion reply.
// Unknown keys are ignored and invalid values are dropped.
func parseProfileReply(reply string) (UserProfile, error) {
	block, ok := jsonBlock(reply)
	if !ok {
		return UserProfile{}, &ParseError{What: "profile", Raw: reply, Err: errors.New("no JSON object")}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(block)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return UserProfile{}, &ParseError{What: "profile", Raw: reply, Err: err}
	}

	var profile UserProfile
	for _, field := range ProfileFields {
		var value string
		switch v := raw[field].(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		default:
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		// Invalid values are dropped; partial profiles are normal.
		_ = profile.Set(field, value)
	}
	return profile, nil
}

func jsonBlock(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

type slotRule struct {
	field    string
	keywords []string
	pattern  *regexp.Regexp
}

func (r slotRule) matches(question string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(question, kw) {
			return true
		}
	}
	return r.pattern != nil && r.pattern.MatchString(question)
}

// heuristicRules are tried in order; when a question matches several rules
// the first one whose validator accepts the answer wins.
var heuristicRules = []slotRule{
	{field: FieldFirstName, keywords: []string{"שם הפרטי", "שמך הפרטי", "first name"}},
	{field: FieldLastName, keywords: []string{"שם המשפחה", "last name", "surname"}},
	{field: FieldIDNumber, keywords: []string{"תעודת זהות", "תעודת הזהות", "ת.ז", "id number"}},
	{field: FieldGender, keywords: []string{"מגדר", "gender"}},
	{field: FieldAge, keywords: []string{"גיל", "how old"}, pattern: regexp.MustCompile(`\bage\b`)},
	{field: FieldHMOCard, keywords: []string{"כרטיס", "card"}},
	{field: FieldHMO, keywords: []string{"קופת חולים", "קופת החולים", "באיזו קופ", "hmo", "health fund"}},
	{field: FieldInsuranceTier, keywords: []string{"מסלול", "דרגת ביטוח", "ביטוח", "insurance tier", "tier"}},
}

// ExtractHeuristic walks consecutive (assistant question, user answer)
// pairs and fills the slot the question asks about. Later answers overwrite
// earlier ones and values that fail validation are left unset. Confirmation
// summaries are skipped since they mention every slot.
func ExtractHeuristic(history []ChatMessage) UserProfile {
	var profile UserProfile
	for i := 0; i+1 < len(history); i++ {
		q, a := history[i], history[i+1]
		if q.Role != ChatRoleAssistant || a.Role != ChatRoleUser {
			continue
		}
		if IsConfirmationPrompt(q.Content) {
			continue
		}
		question := strings.ToLower(q.Content)
		answer := strings.TrimSpace(a.Content)
		if answer == "" {
			continue
		}
		for _, rule := range heuristicRules {
			if !rule.matches(question) {
				continue
			}
			if applyHeuristicAnswer(&profile, rule.field, answer) {
				break
			}
		}
	}
	return profile
}

func applyHeuristicAnswer(profile *UserProfile, field, answer string) bool {
	if field != FieldFirstName {
		return profile.Set(field, answer) == nil
	}
	parts := strings.Fields(answer)
	if len(parts) < 2 {
		return profile.Set(FieldFirstName, answer) == nil
	}
	if profile.Set(FieldFirstName, parts[0]) != nil {
		return false
	}
	_ = profile.Set(FieldLastName, strings.Join(parts[1:], " "))
	return true
}

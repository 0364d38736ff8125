package conversation

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/wolfman30/hmo-benefits-assistant/internal/knowledge"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
)

var errProviderDown = errors.New("provider unavailable")

type stubLLMClient struct {
	mu       sync.Mutex
	requests []LLMRequest
	replies  []string
	err      error
	respond  func(req LLMRequest) (LLMResponse, error)
}

func (s *stubLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.respond != nil {
		return s.respond(req)
	}
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	if len(s.replies) == 0 {
		return LLMResponse{}, errors.New("stub: no reply queued")
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return LLMResponse{Text: reply}, nil
}

func (s *stubLLMClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubLLMClient) lastRequest() LLMRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type stubRetriever struct {
	results map[string][]knowledge.Match
	err     error
	queries []string
	topKs   []int
}

func (s *stubRetriever) Retrieve(ctx context.Context, text string, topK int) ([]knowledge.Match, error) {
	s.queries = append(s.queries, text)
	s.topKs = append(s.topKs, topK)
	if s.err != nil {
		return nil, s.err
	}
	matches := s.results[text]
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func matchesOf(texts ...string) []knowledge.Match {
	out := make([]knowledge.Match, 0, len(texts))
	for i, t := range texts {
		out = append(out, knowledge.Match{Score: 1 - float64(i)*0.1, Chunk: knowledge.Chunk{Text: t}})
	}
	return out
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

func user(content string) ChatMessage      { return ChatMessage{Role: ChatRoleUser, Content: content} }
func assistant(content string) ChatMessage { return ChatMessage{Role: ChatRoleAssistant, Content: content} }

func intPtr(v int) *int { return &v }

// confirmedHebrewHistory is a full registration that ends with an accepted
// confirmation.
func confirmedHebrewHistory() []ChatMessage {
	return []ChatMessage{
		user("שלום"),
		assistant("שלום! מה השם הפרטי שלך?"),
		user("דנה כהן"),
		assistant("נעים מאוד דנה. מה מספר תעודת הזהות שלך?"),
		user("123456789"),
		assistant("מה המגדר שלך?"),
		user("נקבהה"),
		assistant("מה הגיל שלך?"),
		user("34"),
		assistant("באיזו קופת חולים את חברה?"),
		user("מכביי"),
		assistant("מה מספר כרטיס קופת החולים שלך?"),
		user("987654321"),
		assistant("מהי דרגת הביטוח שלך?"),
		user("זהב"),
		assistant("שם: דנה כהן, ת.ז: 123456789, מגדר: נקבה, גיל: 34, קופת חולים: מכבי, כרטיס: 987654321, ביטוח: זהב. האם הפרטים נכונים?"),
		user("כן"),
		assistant("מצוין! עכשיו אפשר לשאול אותי שאלה על השירותים הרפואיים שלך."),
	}
}

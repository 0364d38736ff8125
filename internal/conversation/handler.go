package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
)

const maxAskBodyBytes = 1 << 20

// Responder handles one conversation turn.
type Responder interface {
	Respond(ctx context.Context, message string, history []ChatMessage) Result
}

// AskRequest is the POST /ask body.
type AskRequest struct {
	Question    string        `json:"question"`
	ChatHistory []ChatMessage `json:"chat_history"`
}

// AskResponse is returned for every well-formed /ask request, including
// failed turns, which carry an apology and a diagnostic error.
type AskResponse struct {
	Answer      string        `json:"answer"`
	ChatHistory []ChatMessage `json:"chat_history"`
	Error       string        `json:"error,omitempty"`
}

// Handler wires HTTP requests to the orchestrator.
type Handler struct {
	responder Responder
	logger    *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(responder Responder, logger *logging.Logger) *Handler {
	if responder == nil {
		panic("conversation: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		responder: responder,
		logger:    logger,
	}
}

// Ask handles POST /ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode ask request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(w, http.StatusBadRequest, ErrEmptyQuestion.Error())
		return
	}
	if err := validateHistory(req.ChatHistory); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.responder.Respond(r.Context(), req.Question, req.ChatHistory)
	resp := AskResponse{
		Answer:      result.Answer,
		ChatHistory: result.History,
	}
	if resp.ChatHistory == nil {
		resp.ChatHistory = []ChatMessage{}
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "HMO benefits assistant is running",
	})
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "HMO benefits assistant API",
		"endpoints": map[string]string{
			"ask":     "POST /ask",
			"health":  "GET /health",
			"metrics": "GET /metrics",
		},
	})
}

func validateHistory(history []ChatMessage) error {
	for i, msg := range history {
		if msg.Role != ChatRoleUser && msg.Role != ChatRoleAssistant {
			return fmt.Errorf("chat_history[%d]: unsupported role %q", i, msg.Role)
		}
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/hmo-benefits-assistant/internal/conversation"
	httpmiddleware "github.com/wolfman30/hmo-benefits-assistant/internal/http/middleware"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
)

// requestTimeout bounds a single /ask turn, which may make several provider
// calls in sequence.
const requestTimeout = 90 * time.Second

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	// RateLimiter is optional; nil disables limiting on /ask.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg == nil || cfg.ConversationHandler == nil {
		panic("router: conversation handler is required")
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/", cfg.ConversationHandler.Root)
	r.Get("/health", cfg.ConversationHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(chat chi.Router) {
		chat.Use(middleware.Timeout(requestTimeout))
		if cfg.RateLimiter != nil {
			chat.Use(cfg.RateLimiter.Middleware)
		}
		chat.Post("/ask", cfg.ConversationHandler.Ask)
	})

	return r
}

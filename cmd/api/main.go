package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wolfman30/hmo-benefits-assistant/cmd/mainconfig"
	"github.com/wolfman30/hmo-benefits-assistant/internal/api/router"
	"github.com/wolfman30/hmo-benefits-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/hmo-benefits-assistant/internal/config"
	"github.com/wolfman30/hmo-benefits-assistant/internal/conversation"
	httpmiddleware "github.com/wolfman30/hmo-benefits-assistant/internal/http/middleware"
	"github.com/wolfman30/hmo-benefits-assistant/internal/knowledge"
	"github.com/wolfman30/hmo-benefits-assistant/internal/observability/metrics"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting hmo-benefits-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"embedding_provider", cfg.EmbeddingProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, conversationMetrics := setupMetrics()
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	conv, err := bootstrap.BuildConversation(ctx, cfg, bootstrap.Deps{
		Logger:        logger,
		Metrics:       conversationMetrics,
		Redis:         redisClient,
		LoadAWSConfig: mainconfig.AWSLoader(cfg),
	})
	if err != nil {
		var loadErr *knowledge.IndexLoadError
		if errors.As(err, &loadErr) {
			logger.Error("knowledge index unavailable; refusing to start", "path", loadErr.Path, "error", loadErr.Err)
		} else {
			logger.Error("failed to build conversation service", "error", err)
		}
		os.Exit(1)
	}
	defer conv.Close()

	if cfg.KnowledgeIndexWatch {
		watcher := bootstrap.NewIndexWatcher(cfg, conv.Holder, conversationMetrics, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("knowledge index watcher stopped", "error", err)
			}
		}()
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.Run(ctx)
	}

	r := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(conv.Orchestrator, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         limiter,
	})

	srv := newServer(cfg, r)

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// setupMetrics returns the /metrics handler and the conversation metrics
// registered on a dedicated registry.
func setupMetrics() (http.Handler, *metrics.ConversationMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewConversationMetrics(reg)
}

// newServer builds the HTTP server. Write timeout leaves room for several
// sequential provider calls per turn.
func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}

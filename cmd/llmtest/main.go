package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wolfman30/hmo-benefits-assistant/cmd/mainconfig"
	"github.com/wolfman30/hmo-benefits-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/hmo-benefits-assistant/internal/config"
	"github.com/wolfman30/hmo-benefits-assistant/internal/conversation"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
)

// llmtest is a smoke check for the configured completion and embedding
// providers. It sends one registration turn and embeds one question.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	deps := bootstrap.Deps{Logger: logger, LoadAWSConfig: mainconfig.AWSLoader(cfg)}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rule := strings.Repeat("=", 60)
	fmt.Println(rule)
	fmt.Println("Provider smoke test")
	fmt.Println(rule)

	failed := false

	fmt.Printf("\n[1] Completion via %q (fallback %q)...\n", cfg.LLMProvider, cfg.LLMFallbackProvider)
	client, closers, err := bootstrap.BuildLLMClient(ctx, cfg, deps)
	for _, closeFn := range closers {
		defer closeFn()
	}
	if err != nil {
		fmt.Printf("    FAIL: %v\n", err)
		failed = true
	} else {
		start := time.Now()
		resp, err := client.Complete(ctx, conversation.LLMRequest{
			System:      []string{"You are a polite assistant for HMO medical services in Israel. Keep replies short."},
			Messages:    []conversation.ChatMessage{{Role: conversation.ChatRoleUser, Content: "שלום, אני רוצה להירשם"}},
			MaxTokens:   200,
			Temperature: 0.1,
		})
		if err != nil {
			fmt.Printf("    FAIL: %v\n", err)
			failed = true
		} else {
			fmt.Printf("    OK (%v): %s\n", time.Since(start).Round(time.Millisecond), resp.Text)
			fmt.Printf("    Tokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
	}

	fmt.Printf("\n[2] Embedding via %q...\n", cfg.EmbeddingProvider)
	embedder, err := bootstrap.BuildEmbedder(ctx, cfg, deps)
	if err != nil {
		fmt.Printf("    FAIL: %v\n", err)
		failed = true
	} else {
		start := time.Now()
		vec, err := embedder.Embed(ctx, "מה ההנחה על דיקור סיני?")
		if err != nil {
			fmt.Printf("    FAIL: %v\n", err)
			failed = true
		} else {
			fmt.Printf("    OK (%v): dimension %d\n", time.Since(start).Round(time.Millisecond), len(vec))
		}
	}

	fmt.Println()
	if failed {
		os.Exit(1)
	}
	fmt.Println("All providers responded.")
}

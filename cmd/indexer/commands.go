package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/wolfman30/hmo-benefits-assistant/cmd/mainconfig"
	"github.com/wolfman30/hmo-benefits-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/hmo-benefits-assistant/internal/config"
	"github.com/wolfman30/hmo-benefits-assistant/internal/knowledge"
	"github.com/wolfman30/hmo-benefits-assistant/pkg/logging"
)

// embedderFactory builds the embedder used by the build command. Tests
// replace it with a stub.
type embedderFactory func(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (knowledge.Embedder, error)

func providerEmbedder(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (knowledge.Embedder, error) {
	embedder, err := bootstrap.BuildEmbedder(ctx, cfg, bootstrap.Deps{
		Logger:        logger,
		LoadAWSConfig: mainconfig.AWSLoader(cfg),
	})
	if err != nil {
		return nil, err
	}
	return embedder, nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(providerEmbedder)
}

func newRootCmdWith(newEmbedder embedderFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "indexer",
		Short:         "Build and inspect the HMO benefits knowledge index",
		SilenceUsage: true,
	}
	root.AddCommand(newBuildCmd(newEmbedder), newStatsCmd())
	return root
}

func newBuildCmd(newEmbedder embedderFactory) *cobra.Command {
	var (
		chunksPath string
		outPath    string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed extracted chunks and write the index file",
		Long: `Reads a JSON array of {text, metadata} chunks produced by the document
extractor, embeds each chunk with the configured EMBEDDING_PROVIDER and writes
the index file served by the API. The file is replaced atomically, so a server
watching it reloads only complete indexes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.Load()
			if outPath == "" {
				outPath = cfg.KnowledgeIndexPath
			}
			logger := logging.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr())

			f, err := os.Open(chunksPath)
			if err != nil {
				return fmt.Errorf("open chunks: %w", err)
			}
			raw, err := knowledge.ReadRawChunks(f)
			f.Close()
			if err != nil {
				return err
			}
			if len(raw) == 0 {
				return errors.New("no chunks with text to index")
			}

			embedder, err := newEmbedder(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			start := time.Now()
			builder := knowledge.NewBuilder(embedder, cfg.IndexBatchSize, cfg.IndexConcurrency, logger)
			idx, report, err := builder.Build(cmd.Context(), raw)
			if err != nil {
				return err
			}
			if err := knowledge.WriteFile(outPath, idx); err != nil {
				return err
			}

			cmd.Printf("Indexed %d of %d chunks into %s in %s\n",
				report.Embedded, report.Input, outPath, time.Since(start).Round(time.Millisecond))
			if report.Failed > 0 {
				cmd.Printf("Skipped %d chunks that failed to embed\n", report.Failed)
			}
			printStats(cmd, idx.Stats())
			return nil
		},
	}
	cmd.Flags().StringVar(&chunksPath, "chunks", "", "path to the extracted chunks JSON")
	cmd.Flags().StringVar(&outPath, "out", "", "index output path (defaults to KNOWLEDGE_INDEX_PATH)")
	_ = cmd.MarkFlagRequired("chunks")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var indexPath string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print chunk counts by category, HMO and chunk type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexPath == "" {
				indexPath = appconfig.Load().KnowledgeIndexPath
			}
			idx, err := knowledge.LoadFile(indexPath)
			if err != nil {
				return err
			}
			cmd.Printf("Index: %s (dimension %d)\n", indexPath, idx.Dimension())
			printStats(cmd, idx.Stats())
			return nil
		},
	}
	cmd.Flags().StringVar(&indexPath, "index", "", "index file (defaults to KNOWLEDGE_INDEX_PATH)")
	return cmd
}

func printStats(cmd *cobra.Command, stats knowledge.Stats) {
	cmd.Printf("Total chunks: %d\n", stats.Total)
	printBucket(cmd, "By category", stats.ByCategory)
	printBucket(cmd, "By HMO", stats.ByHMO)
	printBucket(cmd, "By chunk type", stats.ByChunkType)
}

func printBucket(cmd *cobra.Command, title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	cmd.Println()
	cmd.Println(title + ":")
	for _, k := range keys {
		cmd.Printf("  %-30s %d\n", k, counts[k])
	}
}

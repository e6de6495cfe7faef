package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gwi.com/web-rag-agent/internal/cli"
	"gwi.com/web-rag-agent/internal/config"
	"gwi.com/web-rag-agent/internal/core"
	"gwi.com/web-rag-agent/internal/logging"
	"gwi.com/web-rag-agent/internal/scraper"
	"gwi.com/web-rag-agent/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Chat with a model that can scrape web pages and search what it scraped",
	Long: `agent starts an interactive session with a Gemini model.

Give it a URL and it may scrape the page into a local vector store; ask a
question and it may search that store before answering.

Configuration comes from the environment or a .env file:
  GEMINI_API_KEY      (required)
  GEMINI_MODEL_NAME   (default ` + config.DefaultModelName + `)`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, dotenvFound, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			return fmt.Errorf("%w (set it in your .env file or the environment)", err)
		}
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if !dotenvFound {
		logger.Debug("No .env file found, relying on environment variables")
	}

	llmService, err := core.NewLLMService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer llmService.Close()

	vectorStore, err := store.NewSQLiteStore(cfg.DatabaseURL, llmService.GetEmbedding, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer vectorStore.Close()

	fetcher := scraper.NewClient(cfg.FetchTimeout, logger.Named("scraper"))
	chatService := core.NewChatService(cfg, llmService,
		core.NewIngestService(fetcher, vectorStore, logger.Named("ingest")),
		core.NewQueryService(vectorStore, logger.Named("query")),
		logger.Named("chat"))

	logger.Info("Agent ready", zap.String("model", cfg.ModelName), zap.String("database", cfg.DatabaseURL))
	return cli.NewREPL(chatService, cfg.ModelName, os.Stdin, os.Stdout).Run(ctx)
}

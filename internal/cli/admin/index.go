package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/atalaya-security/riskguard/internal/config"
	"github.com/atalaya-security/riskguard/internal/index"
	"github.com/atalaya-security/riskguard/internal/ingest"
	"github.com/atalaya-security/riskguard/internal/knowledge"
	"github.com/atalaya-security/riskguard/internal/openai"
	"github.com/atalaya-security/riskguard/internal/retrieve"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// IndexCmd returns the index command for offline corpus indexing
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the vector index from the document corpus",
		Long:  "Loads documents from DOCS_DIR, chunks and embeds them, and persists the index snapshot",
		RunE:  runIndex,
	}

	cmd.Flags().Bool("force", false, "Drop the existing index and rebuild from scratch")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to build the index")
	}

	var store index.Store
	if cfg.HasPostgres() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		store = index.NewPGStore(pool)
	} else {
		store = index.NewDiskStore(cfg.IndexDir)
	}

	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		RequestTimeout: cfg.EmbedTimeout,
	})

	loader := ingest.NewLoader(cfg.DocsDir)
	idx := index.New(store, embedder, cfg.Collection)

	svc := knowledge.New(loader, idx, embedder, knowledge.Options{
		SplitConfig: ingest.SplitConfig{
			ChunkSize: cfg.ChunkSize,
			Overlap:   cfg.ChunkOverlap,
		},
		RetrieverConfig: retrieve.DefaultConfig(),
	})

	force, _ := cmd.Flags().GetBool("force")
	if force {
		log.Println("dropping existing index")
		if err := svc.Reinitialize(ctx, true); err != nil {
			return fmt.Errorf("failed to rebuild index: %w", err)
		}
	} else {
		if err := svc.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
	}

	stats := idx.Stats()
	fmt.Printf("Index ready: %d records in collection %q\n", stats.RecordCount, idx.Collection())
	for docType, count := range stats.DocumentTypes {
		fmt.Printf("  %s: %d\n", docType, count)
	}

	return nil
}

package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atalaya-security/riskguard/internal/analyzer"
	"github.com/atalaya-security/riskguard/internal/api/handlers"
	"github.com/atalaya-security/riskguard/internal/config"
	"github.com/atalaya-security/riskguard/internal/index"
	"github.com/atalaya-security/riskguard/internal/ingest"
	"github.com/atalaya-security/riskguard/internal/jobs"
	"github.com/atalaya-security/riskguard/internal/knowledge"
	"github.com/atalaya-security/riskguard/internal/openai"
	"github.com/atalaya-security/riskguard/internal/retrieve"
	"github.com/atalaya-security/riskguard/internal/server"
	"github.com/atalaya-security/riskguard/internal/storage"
	"github.com/atalaya-security/riskguard/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var version = "dev"

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the riskguard API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if a DSN is configured
	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	// Pull corpus documents from object storage before indexing
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if _, err := s3Client.SyncCorpus(ctx, cfg.DocsDir); err != nil {
			log.Printf("corpus sync failed (continuing with local docs): %v", err)
		}
	}

	// Embedding records persist to Postgres when DATABASE_URL is set,
	// otherwise to the local snapshot directory.
	var store index.Store
	if cfg.HasPostgres() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		store = index.NewPGStore(pool)
	} else {
		store = index.NewDiskStore(cfg.IndexDir)
	}

	var embedder knowledge.Embedder
	var chatClient *openai.ChatClient
	if cfg.HasOpenAI() {
		embedder = openai.NewClientWithConfig(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			RequestTimeout: cfg.EmbedTimeout,
		})
		chatClient = openai.NewChatClient(openai.ChatConfig{
			APIKey:        cfg.OpenAIAPIKey,
			PrimaryModel:  cfg.AnalysisModel,
			FallbackModel: cfg.FallbackModel,
		})
	} else {
		log.Println("OPENAI_API_KEY not set, retrieval and analysis unavailable")
	}

	loader := ingest.NewLoader(cfg.DocsDir)
	idx := index.New(store, embedder, cfg.Collection)

	knowledgeSvc := knowledge.New(loader, idx, embedder, knowledge.Options{
		SplitConfig: ingest.SplitConfig{
			ChunkSize: cfg.ChunkSize,
			Overlap:   cfg.ChunkOverlap,
		},
		RetrieverConfig: retrieve.Config{
			SearchType:     retrieve.SearchType(cfg.SearchType),
			K:              cfg.SearchK,
			FetchK:         cfg.SearchFetchK,
			LambdaMult:     cfg.SearchLambda,
			ScoreThreshold: cfg.ScoreThreshold,
		},
	})

	if err := knowledgeSvc.Initialize(ctx); err != nil {
		log.Printf("knowledge base unavailable, serving degraded: %v", err)
	}

	var reindexWorker *jobs.Worker
	if cfg.ReindexInterval > 0 {
		reindexWorker = jobs.NewWorker(jobs.NewReindexProcessor(knowledgeSvc), cfg.ReindexInterval)
		go reindexWorker.Start(ctx)
		log.Println("reindex worker started")
	}

	var completer analyzer.Completer
	if chatClient != nil {
		completer = chatClient
	}
	analyzerSvc := analyzer.NewService(completer, knowledgeSvc)

	routerCfg := server.RouterConfig{
		IncidentHandler:  handlers.NewIncidentHandler(analyzerSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
		SystemHandler:    handlers.NewSystemHandler(knowledgeSvc, version),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if reindexWorker != nil {
		reindexWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}

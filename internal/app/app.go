package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ragserver/features/ask"
	"ragserver/features/run"
	"ragserver/features/source"
	"ragserver/features/stats"
	"ragserver/internal/answer"
	"ragserver/internal/config"
	"ragserver/internal/ingest"
	"ragserver/internal/middleware"
	"ragserver/internal/retrieval"
	"ragserver/internal/retry"
	"ragserver/internal/text"
	"ragserver/internal/worker"
)

type App struct {
	Handler        http.Handler
	SourceService  *source.Service
	IngestConsumer *worker.IngestConsumer

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	taskPub TaskPublisher,
	embedder Embedder,
	generator Generator,
) (*App, error) {

	// Feature: Source
	sourceRepo := source.NewPostgresRepo(db)
	sourceService := source.NewService(sourceRepo, taskPub, vecStore)
	sourceHandler := source.NewHandler(sourceService)

	// Feature: Run
	runRepo := run.NewPostgresRepo(db)
	runService := run.NewService(runRepo)
	runHandler := run.NewHandler(runService)

	// Feature: Stats
	statsHandler := stats.NewHandler(sourceRepo, runRepo, vecStore)

	// Retrieval + Answer
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	retrievalService := retrieval.NewService(embedder, vecStore, retrieval.Config{
		MaxQueryChars:       cfg.MaxQueryChars,
		DefaultLimit:        cfg.SearchTopK,
		DefaultMinRelevance: cfg.MinRelevance,
	}, queryLogger)

	answerService := answer.NewService(generator, answer.Config{
		OverlapThreshold:    cfg.OverlapThreshold,
		StrictGrounding:     cfg.StrictGrounding,
		PromptContextBudget: cfg.PromptContextBudget,
	})

	askHandler := ask.NewHandler(retrievalService, answerService)

	// Ingestion pipeline + worker
	policy := retry.DefaultPolicy()
	if cfg.RetryAttempts > 0 {
		policy.MaxAttempts = cfg.RetryAttempts
	}
	fetcher := ingest.NewHTTPFetcher(ingest.FetcherConfig{
		UserAgent: cfg.UserAgent,
		Timeout:   time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		Policy:    policy,
	})
	loader := ingest.NewSitemapLoader(fetcher)
	extractor := ingest.NewReadabilityExtractor()
	chunker := text.NewChunker(cfg.MaxChunkChars)
	pipeline := ingest.NewPipeline(loader, fetcher, extractor, chunker, embedder, vecStore, ingest.PipelineConfig{
		Concurrency: cfg.IngestionConcurrency,
	})

	ingestConsumer := worker.NewIngestConsumer(pipeline, sourceRepo, runService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /sources", middleware.CorrelationID(enableCORS(sourceHandler.Create)))
	mux.Handle("GET /sources", middleware.CorrelationID(enableCORS(sourceHandler.List)))
	mux.Handle("GET /sources/{id}", middleware.CorrelationID(enableCORS(sourceHandler.Get)))
	mux.Handle("DELETE /sources/{id}", middleware.CorrelationID(enableCORS(sourceHandler.Delete)))
	mux.Handle("POST /sources/{id}/resync", middleware.CorrelationID(enableCORS(sourceHandler.ReSync)))
	mux.Handle("GET /sources/{id}/runs", middleware.CorrelationID(enableCORS(runHandler.ListBySource)))

	mux.Handle("POST /search", middleware.CorrelationID(enableCORS(askHandler.Search)))
	mux.Handle("POST /ask", middleware.CorrelationID(enableCORS(askHandler.Ask)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:        mux,
		SourceService:  sourceService,
		IngestConsumer: ingestConsumer,
		port:           cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

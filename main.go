package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"ragserver/internal/adapter/gemini"
	"ragserver/internal/app"
	"ragserver/internal/config"
	"ragserver/internal/logger"
	"ragserver/internal/retry"
)

func main() {
	slog.SetDefault(slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	policy := retry.DefaultPolicy()
	if cfg.RetryAttempts > 0 {
		policy.MaxAttempts = cfg.RetryAttempts
	}

	embedder, err := gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.EmbeddingModel,
		Dim:    cfg.EmbeddingDim,
		Policy: policy,
	})
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	defer embedder.Close()

	generator, err := gemini.NewGenerator(ctx, gemini.GeneratorConfig{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.GenerationModel,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Policy:          policy,
	})
	if err != nil {
		slog.Error("failed to create generator", "error", err)
		os.Exit(1)
	}
	defer generator.Close()

	application, err := app.New(cfg, deps.DB, deps.VectorStore, deps.NSQProducer, embedder, generator)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	var consumer *nsq.Consumer
	if cfg.EnableIngestWorker {
		nsqCfg := nsq.NewConfig()
		nsqCfg.MaxInFlight = 1
		consumer, err = nsq.NewConsumer(config.TopicIngestTask, "ragserver", nsqCfg)
		if err != nil {
			slog.Error("failed to create NSQ consumer", "error", err)
			os.Exit(1)
		}
		consumer.AddHandler(application.IngestConsumer)
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
			os.Exit(1)
		}
		slog.Info("ingest worker connected", "topic", config.TopicIngestTask)
	}

	if cfg.EnableAPI {
		if err := application.Run(ctx); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	} else {
		<-ctx.Done()
	}

	if consumer != nil {
		consumer.Stop()
		<-consumer.StopChan
	}
	slog.Info("shutdown complete")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/kudos/internal/agent"
	"github.com/dyluth/kudos/internal/blob"
	"github.com/dyluth/kudos/internal/classifier"
	"github.com/dyluth/kudos/internal/config"
	"github.com/dyluth/kudos/internal/gatherer"
	"github.com/dyluth/kudos/internal/httpserver"
	"github.com/dyluth/kudos/internal/scheduler"
	"github.com/dyluth/kudos/internal/screenshot"
	"github.com/dyluth/kudos/internal/speech"
	"github.com/dyluth/kudos/internal/workflow"
	"github.com/dyluth/kudos/internal/youtube"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "kudos.yml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisOpts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	engine, err := workflow.NewEngine(redisOpts, cfg.Instance)
	if err != nil {
		return fmt.Errorf("create workflow engine: %w", err)
	}
	if err := engine.Ping(ctx); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("connected to redis", "addr", cfg.Redis.Addr, "instance", cfg.Instance)

	blobs, err := blob.NewStore(redisOpts, cfg.Instance)
	if err != nil {
		return fmt.Errorf("create blob store: %w", err)
	}
	defer blobs.Close()

	gemini, err := classifier.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return fmt.Errorf("create gemini classifier: %w", err)
	}

	registry, err := agent.NewRegistry(cfg.DataDir, agent.Deps{
		Launcher:      engine,
		Classifier:    gemini,
		Speech:        speech.NewClient(cfg.Speech.BaseURL),
		Blobs:         blobs,
		BackfillSince: cfg.BackfillSince(),
	})
	if err != nil {
		return fmt.Errorf("create board registry: %w", err)
	}
	defer registry.Close()

	// Handlers must be in place before Resume relaunches anything.
	gatherer.New(registry, youtube.NewClient(cfg.YouTube.APIKey), gemini).Register(engine)
	screenshot.New(registry, blobs, gemini, cfg.ApprovalTimeout()).Register(engine)

	if err := engine.Resume(ctx); err != nil {
		return fmt.Errorf("resume workflows: %w", err)
	}

	sched := scheduler.New(registry)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	server := httpserver.NewServer(cfg.Listen, registry, blobs, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("kudosd started", "listen", cfg.Listen, "data_dir", cfg.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	sched.Stop()

	// Parked workflows finish their current wait (bounded by the approval
	// timeout); anything unfinished resumes from its step log on next boot.
	logger.Info("waiting for in-flight workflows")
	if err := engine.Close(); err != nil {
		logger.Error("error closing workflow engine", "error", err)
	}

	return nil
}

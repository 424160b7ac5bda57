package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/user/crawl-pilot/internal/adapter/analyzer"
	"github.com/user/crawl-pilot/internal/adapter/chromedp_scanner"
	"github.com/user/crawl-pilot/internal/adapter/image"
	"github.com/user/crawl-pilot/internal/adapter/openai_planner"
	"github.com/user/crawl-pilot/internal/adapter/postgres"
	redis_adapter "github.com/user/crawl-pilot/internal/adapter/redis"
	"github.com/user/crawl-pilot/internal/delivery/http/handler"
	"github.com/user/crawl-pilot/internal/delivery/http/router"
	"github.com/user/crawl-pilot/internal/usecase"
	"github.com/user/crawl-pilot/pkg/config"
)

// Approvals run scans and a planner round trip inside one request.
const writeTimeout = 10 * time.Minute

func serveCMD(envFile *string) *cobra.Command {
	var migrateFirst bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, migrateFirst)
		},
	}
	serve.Flags().BoolVar(&migrateFirst, "migrate", false, "apply archive migrations before serving")
	return serve
}

func runServer(ctx context.Context, cfg *config.Config, migrateFirst bool) error {
	scanner, err := chromedp_scanner.NewChromedpScanner(cfg.MaxConcurrency, cfg.PageLoadTimeout())
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer scanner.Close()
	slog.Info("Browser allocator started", "max_concurrency", cfg.MaxConcurrency)

	deps := usecase.OrchestratorDeps{
		Scanner:   scanner,
		Extractor: analyzer.NewExtractor(),
		SEO:       analyzer.NewSEOAnalyzer(),
		Images:    image.NewHTTPFetcher(cfg.ImageTimeout(), cfg.ImageMaxBytes),
		Transport: openai_planner.NewTransport(openai_planner.Config{
			BaseURL:     cfg.PlannerBaseURL,
			APIKey:      cfg.PlannerAPIKey,
			Model:       cfg.PlannerModel,
			Temperature: cfg.PlannerTemperature,
			Timeout:     cfg.PlannerTimeout(),
		}),
		FanoutLimit: cfg.ScanFanoutLimit,
	}

	if cfg.ArchiveEnabled {
		if migrateFirst {
			if err := postgres.Migrate(cfg.PostgresDSN(), "up", 0); err != nil {
				return fmt.Errorf("failed to migrate archive: %w", err)
			}
		}

		dbpool, err := pgxpool.New(ctx, cfg.PostgresDSN())
		if err != nil {
			return fmt.Errorf("unable to connect to database: %w", err)
		}
		defer dbpool.Close()
		if err := dbpool.Ping(ctx); err != nil {
			return fmt.Errorf("unable to reach database: %w", err)
		}
		slog.Info("PostgreSQL connection pool established")

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("unable to connect to Redis: %w", err)
		}
		slog.Info("Redis connection established")

		deps.FrontierArchive = postgres.NewSessionArchiveRepo(dbpool)
		deps.TranscriptArchive = redis_adapter.NewTranscriptRepo(rdb)
		deps.TranscriptTTL = cfg.TranscriptTTL()
	}

	orchestrator := usecase.NewOrchestrator(deps)
	defer orchestrator.Reset()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(handler.NewHandler(orchestrator)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort, "archive", cfg.ArchiveEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("could not listen on port %s: %w", cfg.ServerPort, err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

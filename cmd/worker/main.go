package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"lusterd/internal/config"
	"lusterd/internal/database"
	"lusterd/internal/logger"
	"lusterd/internal/objectstore"
	"lusterd/internal/observability"
	"lusterd/internal/provider"
	"lusterd/internal/store"
	"lusterd/internal/worker"
)

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	env := getEnv("NODE_ENV", "development")
	logger.Init("lusterd-worker", env, logger.ParseLevelFromEnv())

	shutdownOTel, err := observability.InitOTel(context.Background(), "lusterd-worker")
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	} else {
		defer func() {
			if err := shutdownOTel(context.Background()); err != nil {
				log.Printf("Error shutting down OpenTelemetry: %v", err)
			}
		}()
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	objects, err := objectstore.New(objectstore.Config{
		Endpoint:        cfg.ObjectStoreEndpoint,
		Region:          cfg.ObjectStoreRegion,
		Bucket:          cfg.ObjectStoreBucket,
		AccessKeyID:     cfg.ObjectStoreKeyID,
		SecretAccessKey: cfg.ObjectStoreSecret,
	})
	if err != nil {
		log.Fatal("Failed to configure object store:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enhancer, err := provider.NewGenAIEnhancer(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		log.Fatal("Failed to configure image provider:", err)
	}

	jobs := store.NewJobStore(db, cfg.MaxRetries)
	assets := store.NewAssetStore(db)
	credits := store.NewCreditStore(db)

	pipeline := worker.NewPipeline(jobs, assets, credits, objects, enhancer, cfg.ProviderDeadline)
	pool := worker.NewPool(jobs, pipeline, cfg.LeaseDuration, cfg.WorkerPollInterval, concurrencyFromEnv())
	sweeper := worker.NewSweeper(jobs, credits, cfg.SweepInterval)

	log.Println("worker starting")

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gCtx) })
	g.Go(func() error { return sweeper.Run(gCtx) })

	if err := g.Wait(); err != nil && gCtx.Err() == nil {
		log.Fatal("worker exited with error:", err)
	}
	log.Println("worker exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func concurrencyFromEnv() int {
	n, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY"))
	if err != nil || n < 1 {
		return 4
	}
	return n
}

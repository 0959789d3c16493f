package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"lusterd/internal/auth"
	"lusterd/internal/config"
	"lusterd/internal/database"
	"lusterd/internal/logger"
	"lusterd/internal/objectstore"
	"lusterd/internal/observability"
	"lusterd/internal/router"
	"lusterd/internal/store"
)

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	env := getEnv("NODE_ENV", "development")
	logger.Init("lusterd", env, logger.ParseLevelFromEnv())

	shutdownOTel, err := observability.InitOTel(context.Background(), "lusterd-api")
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	} else {
		defer func() {
			if err := shutdownOTel(context.Background()); err != nil {
				log.Printf("Error shutting down OpenTelemetry: %v", err)
			}
		}()
	}

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Println("connected to PostgreSQL")

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

	auth.InitClerk(cfg.ClerkSecretKey)

	deps := router.Deps{
		DB:      db,
		Cfg:     cfg,
		Users:   store.NewUserStore(db),
		Shoots:  store.NewShootStore(db),
		Assets:  store.NewAssetStore(db),
		Jobs:    store.NewJobStore(db, cfg.MaxRetries),
		Credits: store.NewCreditStore(db),
		Objects: objects,
	}

	r := router.Setup(deps)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("server starting on port %s (env=%s)", cfg.Port, env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/errorreporting"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/secrets"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/server"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found (falling back to system env)")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("Failed to initialize error reporting", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		logger.Info("Error reporting initialized", "environment", cfg.SentryEnvironment)
		defer errorreporting.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init("knowledge-cluster-map")
	if err != nil {
		logger.Warn("Failed to initialize tracing", "error", err)
	} else if cfg.OTELEnabled {
		logger.Info("Tracing initialized", "endpoint", cfg.OTELEndpoint, "sample_rate", cfg.OTELSampleRate)
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	if err := secrets.ValidateRequired(map[string]string{
		"DATABASE_URL": os.Getenv("DATABASE_URL"),
	}); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	logger.Info("Connecting to database", "url", secrets.MaskURL(os.Getenv("DATABASE_URL")))

	queries, err := server.InitDB()
	if err != nil {
		log.Fatalf("DB init failed: %v", err)
	}

	srv, err := server.NewServer(queries)
	if err != nil {
		log.Fatalf("Server init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Failed to start background workers: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("🚀 Server running at http://localhost:%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-sigChan
	logger.Info("Received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

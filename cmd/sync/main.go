package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/errorreporting"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/server"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/settings"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/source"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/tracing"
)

// Fetches the graph document from the configured upstream source and
// upserts it into the database. Runs once by default; with -interval it
// keeps syncing on a timer until interrupted.
func main() {
	interval := flag.Duration("interval", 0, "Re-sync on this interval (0 = run once and exit)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Maximum time for a single sync")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found (falling back to system env)")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("Failed to initialize error reporting", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		defer errorreporting.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init("knowledge-cluster-map-sync")
	if err != nil {
		logger.Warn("Failed to initialize tracing", "error", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	if cfg.SourceURL == "" {
		log.Fatal("SOURCE_URL environment variable is required")
	}

	queries, err := server.InitDB()
	if err != nil {
		log.Fatalf("DB init failed: %v", err)
	}

	client := source.NewClient()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	syncOnce := func() error {
		syncCtx, syncCancel := context.WithTimeout(ctx, *timeout)
		defer syncCancel()
		return source.Sync(syncCtx, client, queries)
	}

	if err := syncOnce(); err != nil {
		log.Fatalf("Sync failed: %v", err)
	}
	logger.Info("Sync complete", "source", cfg.SourceURL)

	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if paused, err := settings.GetBool(ctx, queries, settings.KeySourcePaused, false); err == nil && paused {
				logger.Info("Source sync paused, skipping")
				continue
			}
			if err := syncOnce(); err != nil {
				logger.Error("Sync failed", "error", err)
				errorreporting.CaptureErrorWithContext(err, map[string]string{"component": "sync"}, nil)
				continue
			}
			logger.Info("Sync complete", "source", cfg.SourceURL)
		}
	}
}

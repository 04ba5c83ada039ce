package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/cache"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/graph"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/server"
)

// Runs a single layout pass and exits. Useful for seeding positions after
// a bulk import, or from a cron job on deployments that do not run the
// background layout scheduler.
func main() {
	communities := flag.Bool("communities", false, "Also run community detection after the layout")
	timeout := flag.Duration("timeout", 10*time.Minute, "Maximum time for the layout run")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found (falling back to system env)")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	queries, err := server.InitDB()
	if err != nil {
		log.Fatalf("DB init failed: %v", err)
	}

	c, err := cache.NewLRU(cfg.CacheMaxSizeMB, cfg.CacheMaxEntries, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("Cache init failed: %v", err)
	}

	svc := graph.NewService(queries, c)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	version, err := svc.RunLayout(ctx)
	if err != nil {
		log.Fatalf("Layout run failed: %v", err)
	}
	log.Printf("✅ Layout complete: version=%s nodes=%d ticks=%d duration=%s",
		version.ID, version.NodeCount, version.TickCount, time.Since(start).Round(time.Millisecond))

	if *communities {
		result, err := svc.DetectCommunities(ctx)
		if err != nil {
			log.Fatalf("Community detection failed: %v", err)
		}
		log.Printf("✅ Detected %d communities (modularity %.4f)",
			len(result.Communities), result.Modularity)
	}
}

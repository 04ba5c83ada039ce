package server

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/api"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/cache"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/graph"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/metrics"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/secrets"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/settings"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/source"
)

// Server owns the long-lived pieces of the layout engine: the database
// handle, the response cache, the layout service with its background job,
// the upstream source client, and the metrics collector.
type Server struct {
	DB           *db.Queries
	Cache        cache.Cache
	GraphService *graph.Service

	graphJob  *graph.Job
	source    *source.Client
	collector *metrics.Collector
	router    *mux.Router
}

// InitDB opens the database connection from DATABASE_URL and verifies it.
func InitDB() (*db.Queries, error) {
	return db.Init(os.Getenv("DATABASE_URL"))
}

// NewServer wires all components around the given queries.
func NewServer(q *db.Queries) (*Server, error) {
	cfg := config.Load()

	c, err := cache.NewLRU(cfg.CacheMaxSizeMB, cfg.CacheMaxEntries, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	graphService := graph.NewService(q, c)
	src := source.NewClient()

	job := graph.NewJob(graphService, cfg.LayoutCadence)

	s := &Server{
		DB:           q,
		Cache:        c,
		GraphService: graphService,
		graphJob:     job,
		source:       src,
		collector:    metrics.NewCollector(q, cfg.MetricsInterval),
		router:       api.NewRouter(q, graphService, c, src),
	}

	if q != nil {
		job.SetPauseCheck(func(ctx context.Context) bool {
			paused, err := settings.GetBool(ctx, q, settings.KeyLayoutPaused, false)
			if err != nil {
				logger.Warn("Could not read layout pause setting", "error", err)
				return false
			}
			return paused
		})
		checkPositionColumns(q.DB())
	}
	return s, nil
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the background workers. It returns immediately; workers
// stop when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := config.Load()

	if s.DB != nil {
		go s.collector.Start(ctx)
	}

	if cfg.DisableLayoutJob {
		logger.Info("Background layout job disabled")
	} else {
		go s.graphJob.Start(ctx)
	}

	if cfg.SourceURL != "" {
		logger.Info("Upstream source configured", "url", secrets.MaskURL(cfg.SourceURL))
	}
	return nil
}

// checkPositionColumns warns at startup when the position columns are
// missing, which usually means migrations have not been applied.
func checkPositionColumns(conn db.DBTX) {
	if conn == nil {
		logger.Warn("Skipping position column check: no database connection")
		return
	}
	var count int
	err := conn.QueryRowContext(context.Background(), `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_name = 'graph_nodes' AND column_name IN ('pos_x', 'pos_y')
	`).Scan(&count)
	if err != nil {
		logger.Warn("Could not verify position columns", "error", err)
		return
	}
	if count < 2 {
		logger.Warn("graph_nodes is missing position columns; run migrations before starting layouts")
	}
}

package metrics

import (
	"context"
	"log"
	"time"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
)

// Collector periodically collects and updates Prometheus metrics
type Collector struct {
	queries  *db.Queries
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(queries *db.Queries, interval time.Duration) *Collector {
	return &Collector{
		queries:  queries,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Collect initial metrics
	c.collectMetrics(ctx)

	for {
		select {
		case <-ticker.C:
			c.collectMetrics(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

// collectMetrics collects all metrics from the database
func (c *Collector) collectMetrics(ctx context.Context) {
	c.collectGraphMetrics(ctx)
	c.collectCommunityMetrics(ctx)
	c.collectDatabaseStats(ctx)
}

// collectGraphMetrics collects graph link counts
func (c *Collector) collectGraphMetrics(ctx context.Context) {
	linkCount, err := c.queries.CountGraphLinks(ctx)
	if err != nil {
		log.Printf("Error counting graph links: %v", err)
		MetricsCollectionErrors.WithLabelValues("graph").Inc()
		GraphLinksTotal.Set(-1) // Signal stale data
	} else {
		GraphLinksTotal.Set(float64(linkCount))
	}
}

// collectCommunityMetrics collects community-related metrics
func (c *Collector) collectCommunityMetrics(ctx context.Context) {
	count, err := c.queries.CountCommunities(ctx)
	if err != nil {
		log.Printf("Error counting communities: %v", err)
		MetricsCollectionErrors.WithLabelValues("community").Inc()
		CommunitiesTotal.Set(-1) // Signal stale data
	} else {
		CommunitiesTotal.Set(float64(count))
	}
}

// collectDatabaseStats collects node counts grouped by kind
func (c *Collector) collectDatabaseStats(ctx context.Context) {
	stats, err := c.queries.GetDatabaseStats(ctx)
	if err != nil {
		log.Printf("Error getting database stats: %v", err)
		MetricsCollectionErrors.WithLabelValues("database").Inc()
		GraphNodesTotal.WithLabelValues("node").Set(-1)
		return
	}

	for kind, count := range stats.Kinds {
		GraphNodesTotal.WithLabelValues(kind).Set(float64(count))
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Layout simulation metrics
	LayoutRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_runs_total",
			Help: "Total number of layout runs",
		},
		[]string{"status"}, // status: success, failed
	)

	LayoutRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layout_run_duration_seconds",
			Help:    "Duration of full layout runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	LayoutTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layout_ticks_total",
			Help: "Total number of simulation ticks advanced",
		},
	)

	LayoutTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_tick_duration_seconds",
			Help:    "Duration of single simulation ticks in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	LayoutAlpha = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_alpha",
			Help: "Current simulation energy (alpha)",
		},
	)

	LayoutTreeVisits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_tree_visits",
			Help: "Quadtree nodes visited by the last many-body pass",
		},
	)

	// Graph metrics
	GraphNodesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graph_nodes_total",
			Help: "Total number of nodes in the graph by kind",
		},
		[]string{"kind"},
	)

	GraphLinksTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_links_total",
			Help: "Total number of links in the graph",
		},
	)

	GraphDanglingLinks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_dangling_links",
			Help: "Links whose endpoints were missing at resolve time",
		},
	)

	// Upstream source metrics
	SourceHTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_http_requests_total",
			Help: "Total number of HTTP requests made to the upstream graph source",
		},
		[]string{"status"}, // status: success, retry, failure
	)

	SourceHTTPRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "source_http_retries_total",
			Help: "Total number of HTTP request retries",
		},
	)

	SourceRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "source_rate_limit_waits_total",
			Help: "Total number of times the source client waited for rate limit",
		},
	)

	SourceRetryAfterWaits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "source_retry_after_wait_seconds",
			Help:    "Duration of Retry-After waits in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Database operation metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	DBOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// API cache metrics
	APICacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_hits_total",
			Help: "Total number of API cache hits",
		},
		[]string{"endpoint"},
	)

	APICacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_misses_total",
			Help: "Total number of API cache misses",
		},
		[]string{"endpoint"},
	)

	APICacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_size_bytes",
			Help: "Current size of API cache in bytes",
		},
		[]string{"endpoint"},
	)

	APICacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_items",
			Help: "Current number of items in API cache",
		},
		[]string{"endpoint"},
	)

	APICacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"endpoint"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Community metrics
	CommunitiesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "communities_total",
			Help: "Total number of detected communities",
		},
	)

	CommunityDetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "community_detection_duration_seconds",
			Help:    "Duration of community detection in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"}, // collector: graph, simulation, database
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to clients",
		},
	)
)

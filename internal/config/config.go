package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Simulation parameters
	Alpha           float64 // initial simulation energy (0..1)
	AlphaMin        float64 // threshold below which the simulation stops
	AlphaDecay      float64 // per-tick cooling rate (0 = derive from LAYOUT_ITERATIONS)
	AlphaTarget     float64 // steady-state energy for interactive reheating
	VelocityDecay   float64 // per-tick velocity damping (friction)
	Theta           float64 // Barnes-Hut accuracy/speed tradeoff
	ChargeStrength  float64 // many-body strength (negative = repulsion)
	ChargeDistMax   float64 // many-body cutoff distance (0 = unbounded)
	LinkDistance    float64 // default spring rest length
	LinkIterations  int     // link constraint relaxation passes per tick
	CollideStrength float64 // collision overlap correction factor
	FrameInterval   time.Duration

	// Layout job control
	LayoutMaxNodes   int     // maximum nodes to include in layout computation
	LayoutIterations int     // target tick count used to derive alphaDecay
	LayoutBatchSize  int     // batch size for position writes
	LayoutEpsilon    float64 // minimum displacement before persisting a position (0 = persist all)
	LayoutCadence    string  // schedule expression for background recomputes
	DisableLayoutJob bool

	// Upstream graph source
	SourceURL      string
	SourceRPS      float64 // requests per second to the upstream source
	SourceBurst    int
	UserAgent      string
	HTTPMaxRetries int
	HTTPRetryBase  time.Duration
	HTTPTimeout    time.Duration
	LogHTTPRetries bool

	// Database
	GraphQueryTimeout  time.Duration
	DBStatementTimeout time.Duration

	// Response cache
	CacheMaxSizeMB  int64
	CacheMaxEntries int64
	CacheTTL        time.Duration

	// Metrics collection
	MetricsInterval time.Duration

	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	CORSAllowedOrigins   []string // allowed CORS origins
	EnableRateLimit      bool     // enable rate limiting middleware
	AdminAPIToken        string   // Bearer token gating admin endpoints

	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	ua := os.Getenv("SOURCE_USER_AGENT")
	if strings.TrimSpace(ua) == "" {
		ua = "knowledge-cluster-map/0.1"
	}
	cached = &Config{
		Alpha:           utils.GetEnvAsFloat("SIM_ALPHA", 1.0),
		AlphaMin:        utils.GetEnvAsFloat("SIM_ALPHA_MIN", 0.001),
		AlphaDecay:      utils.GetEnvAsFloat("SIM_ALPHA_DECAY", 0.0),
		AlphaTarget:     utils.GetEnvAsFloat("SIM_ALPHA_TARGET", 0.0),
		VelocityDecay:   utils.GetEnvAsFloat("SIM_VELOCITY_DECAY", 0.4),
		Theta:           utils.GetEnvAsFloat("SIM_THETA", 0.9),
		ChargeStrength:  utils.GetEnvAsFloat("SIM_CHARGE_STRENGTH", -30.0),
		ChargeDistMax:   utils.GetEnvAsFloat("SIM_CHARGE_DISTANCE_MAX", 0.0),
		LinkDistance:    utils.GetEnvAsFloat("SIM_LINK_DISTANCE", 30.0),
		LinkIterations:  utils.GetEnvAsInt("SIM_LINK_ITERATIONS", 1),
		CollideStrength: utils.GetEnvAsFloat("SIM_COLLIDE_STRENGTH", 0.7),
		FrameInterval:   time.Duration(utils.GetEnvAsInt("SIM_FRAME_INTERVAL_MS", 16)) * time.Millisecond,

		LayoutMaxNodes:   utils.GetEnvAsInt("LAYOUT_MAX_NODES", 5000),
		LayoutIterations: utils.GetEnvAsInt("LAYOUT_ITERATIONS", 300),
		LayoutBatchSize:  utils.GetEnvAsInt("LAYOUT_BATCH_SIZE", 5000),
		LayoutEpsilon:    utils.GetEnvAsFloat("LAYOUT_EPSILON", 0.0),
		LayoutCadence:    strings.TrimSpace(os.Getenv("LAYOUT_CADENCE")),
		DisableLayoutJob: utils.GetEnvAsBool("DISABLE_LAYOUT_JOB", false),

		SourceURL:      strings.TrimSpace(os.Getenv("SOURCE_URL")),
		SourceRPS:      utils.GetEnvAsFloat("SOURCE_RPS", 2.0),
		SourceBurst:    utils.GetEnvAsInt("SOURCE_BURST_SIZE", 1),
		UserAgent:      ua,
		HTTPMaxRetries: utils.GetEnvAsInt("HTTP_MAX_RETRIES", 3),
		HTTPRetryBase:  time.Duration(utils.GetEnvAsInt("HTTP_RETRY_BASE_MS", 300)) * time.Millisecond,
		HTTPTimeout:    time.Duration(utils.GetEnvAsInt("HTTP_TIMEOUT_MS", 15000)) * time.Millisecond,
		LogHTTPRetries: utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),

		GraphQueryTimeout:  time.Duration(utils.GetEnvAsInt("GRAPH_QUERY_TIMEOUT_MS", 30000)) * time.Millisecond,
		DBStatementTimeout: time.Duration(utils.GetEnvAsInt("DB_STATEMENT_TIMEOUT_MS", 25000)) * time.Millisecond,

		CacheMaxSizeMB:  int64(utils.GetEnvAsInt("CACHE_MAX_SIZE_MB", 64)),
		CacheMaxEntries: int64(utils.GetEnvAsInt("CACHE_MAX_ENTRIES", 10000)),
		CacheTTL:        time.Duration(utils.GetEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		MetricsInterval: time.Duration(utils.GetEnvAsInt("METRICS_INTERVAL_SECONDS", 60)) * time.Second,

		// Security settings with sensible defaults
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		AdminAPIToken:        strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),

		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.LayoutCadence == "" {
		cached.LayoutCadence = "@hourly"
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}

	// Parse CORS allowed origins
	corsOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if corsOrigins == "" {
		// Default to common development origins
		cached.CORSAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	} else {
		cached.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		for i := range cached.CORSAllowedOrigins {
			cached.CORSAllowedOrigins[i] = strings.TrimSpace(cached.CORSAllowedOrigins[i])
		}
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// GetEnvBool reads a boolean environment variable with a default.
// Use this when you need to check a flag not present in the cached config.
func (c *Config) GetEnvBool(key string, def bool) bool {
	return utils.GetEnvAsBool(key, def)
}

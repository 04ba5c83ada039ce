package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/api/handlers"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/cache"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/graph"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/middleware"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/source"
)

// NewRouter wires the HTTP API: the graph snapshot, layout control, node
// pinning, community detection, layout history, the WebSocket feed, and the
// admin surface.
func NewRouter(q *db.Queries, svc *graph.Service, c cache.Cache, src *source.Client) *mux.Router {
	cfg := config.Load()
	r := mux.NewRouter()

	// Global middleware, outermost first.
	r.Use(middleware.RecoverWithSentry)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.CORSAllowedOrigins
	r.Use(middleware.CORS(corsConfig))

	if cfg.EnableRateLimit {
		limiter := middleware.NewRateLimiter(
			cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst,
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst,
		)
		r.Use(limiter.Limit)
	}

	// Health and metrics
	r.HandleFunc("/healthz", handlers.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Graph snapshot. ETag runs inside compression so the hash covers the
	// uncompressed JSON.
	api.Handle("/graph", middleware.Gzip(middleware.ETag(handlers.GetGraph(svc)))).Methods("GET")

	// Live updates
	ws := handlers.NewWebSocketHandler(svc)
	api.HandleFunc("/graph/ws", ws.HandleWebSocket).Methods("GET")

	// Layout control
	layout := handlers.NewLayoutHandler(svc)
	api.HandleFunc("/layout/status", layout.GetStatus).Methods("GET")
	api.HandleFunc("/layout/reheat", layout.Reheat).Methods("POST")

	// Layout history
	versions := handlers.NewVersionHandler(q, c)
	api.HandleFunc("/layout/version", versions.GetCurrentVersion).Methods("GET")
	api.HandleFunc("/layout/versions", versions.ListVersions).Methods("GET")
	api.HandleFunc("/layout/versions/{id}", versions.GetVersion).Methods("GET")

	// Nodes
	nodes := handlers.NewNodeHandler(q, svc)
	api.HandleFunc("/nodes/{id}", nodes.GetNode).Methods("GET")
	api.HandleFunc("/nodes/{id}/pin", nodes.PinNode).Methods("POST")
	api.HandleFunc("/nodes/{id}/pin", nodes.UnpinNode).Methods("DELETE")

	// Admin endpoints, gated by a bearer token.
	adminOnly := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.AdminAPIToken == "" {
				http.Error(w, "admin token not configured", http.StatusServiceUnavailable)
				return
			}
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix || auth[len(prefix):] != cfg.AdminAPIToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	api.Handle("/layout/run", adminOnly(http.HandlerFunc(layout.Run))).Methods("POST")
	api.Handle("/communities/detect", adminOnly(handlers.DetectCommunities(svc))).Methods("POST")
	api.Handle("/source/sync", adminOnly(handlers.SyncSource(src, q))).Methods("POST")

	cacheAdmin := handlers.NewCacheAdminHandler(c)
	api.Handle("/admin/cache/invalidate", adminOnly(http.HandlerFunc(cacheAdmin.InvalidateCache))).Methods("POST")
	api.Handle("/admin/cache/stats", adminOnly(http.HandlerFunc(cacheAdmin.GetCacheStats))).Methods("GET")

	serviceSettings := handlers.NewSettingsHandler(q)
	api.Handle("/admin/settings/{key}", adminOnly(http.HandlerFunc(serviceSettings.GetSetting))).Methods("GET")
	api.Handle("/admin/settings/{key}", adminOnly(http.HandlerFunc(serviceSettings.PutSetting))).Methods("PUT")

	// Profiling, admin-gated and access-logged.
	logged := func(h http.HandlerFunc) http.Handler {
		return adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlers.LogPprofAccess(r.Context(), r.URL.Path, r.RemoteAddr)
			h(w, r)
		}))
	}
	r.PathPrefix("/debug/pprof/profile").Handler(logged(pprof.Profile))
	r.PathPrefix("/debug/pprof/trace").Handler(logged(pprof.Trace))
	r.PathPrefix("/debug/pprof/").Handler(logged(pprof.Index))

	return r
}

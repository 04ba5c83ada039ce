package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/apierr"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/cache"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
)

// VersionReader is the subset of db.Queries the version handlers need.
type VersionReader interface {
	LatestLayoutVersion(ctx context.Context) (db.LayoutVersion, error)
	ListLayoutVersions(ctx context.Context, limit int) ([]db.LayoutVersion, error)
	GetLayoutVersion(ctx context.Context, id uuid.UUID) (db.LayoutVersion, error)
}

// VersionHandler serves layout run history.
type VersionHandler struct {
	queries VersionReader
	cache   cache.Cache
}

func NewVersionHandler(q VersionReader, c cache.Cache) *VersionHandler {
	return &VersionHandler{queries: q, cache: c}
}

// LayoutVersionResponse is one recorded layout run.
type LayoutVersionResponse struct {
	ID         string  `json:"id"`
	CreatedAt  string  `json:"created_at"`
	NodeCount  int64   `json:"node_count"`
	TickCount  int64   `json:"tick_count"`
	FinalAlpha float64 `json:"final_alpha"`
	DurationMs int64   `json:"duration_ms"`
}

func versionResponse(v db.LayoutVersion) LayoutVersionResponse {
	return LayoutVersionResponse{
		ID:         v.ID.String(),
		CreatedAt:  v.CreatedAt.Format(time.RFC3339),
		NodeCount:  v.NodeCount,
		TickCount:  v.TickCount,
		FinalAlpha: v.FinalAlpha,
		DurationMs: v.DurationMs,
	}
}

// GetCurrentVersion returns the most recent layout version.
// GET /layout/version
func (h *VersionHandler) GetCurrentVersion(w http.ResponseWriter, r *http.Request) {
	cacheKey := "layout:version:current"
	if cached, found := h.cache.Get(cacheKey); found {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write(cached)
		return
	}

	version, err := h.queries.LatestLayoutVersion(r.Context())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apierr.WriteErrorWithContext(w, r, apierr.LayoutVersionNotFound())
			return
		}
		logger.Error("Failed to get latest layout version", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
		return
	}

	data, err := json.Marshal(versionResponse(version))
	if err != nil {
		logger.Error("Failed to marshal version response", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(""))
		return
	}
	h.cache.Set(cacheKey, data, 60*time.Second)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	_, _ = w.Write(data)
}

// ListVersions returns recent layout runs, newest first.
// GET /layout/versions?limit=N
func (h *VersionHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 200 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("limit", "must be an integer between 1 and 200"))
			return
		}
		limit = n
	}

	versions, err := h.queries.ListLayoutVersions(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list layout versions", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
		return
	}

	resp := make([]LayoutVersionResponse, 0, len(versions))
	for _, v := range versions {
		resp = append(resp, versionResponse(v))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// GetVersion returns one layout run by ID.
// GET /layout/versions/{id}
func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a UUID"))
		return
	}

	version, err := h.queries.GetLayoutVersion(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apierr.WriteErrorWithContext(w, r, apierr.LayoutVersionNotFound())
			return
		}
		logger.Error("Failed to get layout version", "error", err, "version_id", id.String())
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(versionResponse(version))
}

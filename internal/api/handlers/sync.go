package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/apierr"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/source"
)

// SyncSource fetches the upstream graph document and upserts it into the
// graph tables in the background.
// POST /source/sync
func SyncSource(client *source.Client, q *db.Queries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := config.Load()
		if cfg.SourceURL == "" {
			apierr.WriteErrorWithContext(w, r, apierr.SourceNotConfigured())
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.GraphQueryTimeout)
			defer cancel()
			if err := source.Sync(ctx, client, q); err != nil {
				logger.Error("Source sync failed", "error", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "started"})
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/apierr"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/config"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/graph"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/tracing"
)

// GetGraph serves the full laid-out graph snapshot.
// GET /graph
func GetGraph(svc *graph.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "handlers.GetGraph")
		defer span.End()

		cfg := config.Load()
		ctx, cancel := context.WithTimeout(ctx, cfg.GraphQueryTimeout)
		defer cancel()

		payload, err := svc.Snapshot(ctx)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				apierr.WriteErrorWithContext(w, r, apierr.GraphTimeout(""))
				return
			}
			logger.Error("Failed to build graph snapshot", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.GraphQueryFailed(""))
			return
		}
		if len(payload.Nodes) == 0 {
			apierr.WriteErrorWithContext(w, r, apierr.GraphNoData())
			return
		}
		span.SetAttributes(
			attribute.Int("node_count", len(payload.Nodes)),
			attribute.Int("link_count", len(payload.Links)),
		)

		w.Header().Set("Content-Type", "application/json")
		if payload.Version != "" {
			w.Header().Set("X-Graph-Version", payload.Version)
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
}

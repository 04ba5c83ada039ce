package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/apierr"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/graph"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
)

// DetectCommunities runs community detection over the stored graph and
// persists the resulting labels.
// POST /communities/detect
func DetectCommunities(svc *graph.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.DetectCommunities(r.Context())
		if err != nil {
			logger.Error("Community detection failed", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("Community detection failed"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

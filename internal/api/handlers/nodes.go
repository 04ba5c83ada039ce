package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/apierr"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/graph"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/middleware"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/tracing"
)

var sanitizer = &middleware.SanitizeInput{}

// NodeHandler exposes per-node endpoints: lookup and pinning.
type NodeHandler struct {
	queries *db.Queries
	svc     *graph.Service
}

func NewNodeHandler(q *db.Queries, svc *graph.Service) *NodeHandler {
	return &NodeHandler{queries: q, svc: svc}
}

// GetNode returns a single node by ID.
// GET /nodes/{id}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "handlers.GetNode")
	defer span.End()

	id := mux.Vars(r)["id"]
	if err := sanitizer.ValidateNodeID(id); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", err.Error()))
		return
	}
	span.SetAttributes(attribute.String("node_id", id))

	node, err := h.queries.GetGraphNode(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("node"))
			return
		}
		logger.Error("Failed to fetch node", "error", err, "node_id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
		return
	}

	resp := graph.PayloadNode{
		ID:     node.ID,
		Name:   node.Name,
		Kind:   node.Kind,
		Val:    node.Val,
		Pinned: node.Pinned,
	}
	if node.PosX.Valid {
		resp.X = node.PosX.Float64
	}
	if node.PosY.Valid {
		resp.Y = node.PosY.Float64
	}
	if node.Community.Valid {
		c := node.Community.Int32
		resp.Community = &c
	}
	if node.Metadata.Valid {
		resp.Metadata = json.RawMessage(node.Metadata.RawMessage)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// PinRequest fixes a node at explicit coordinates.
type PinRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PinNode fixes a node at the given coordinates so subsequent layout runs
// leave it in place.
// POST /nodes/{id}/pin
func (h *NodeHandler) PinNode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "handlers.PinNode")
	defer span.End()

	id := mux.Vars(r)["id"]
	if err := sanitizer.ValidateNodeID(id); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", err.Error()))
		return
	}
	span.SetAttributes(attribute.String("node_id", id))

	var req PinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if math.IsNaN(req.X) || math.IsInf(req.X, 0) || math.IsNaN(req.Y) || math.IsInf(req.Y, 0) {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("x", "coordinates must be finite"))
		return
	}

	if _, err := h.queries.GetGraphNode(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("node"))
			return
		}
		logger.Error("Failed to look up node for pinning", "error", err, "node_id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
		return
	}

	if err := h.svc.PinNode(ctx, id, req.X, req.Y); err != nil {
		logger.Error("Failed to pin node", "error", err, "node_id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(""))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "pinned": true, "x": req.X, "y": req.Y})
}

// UnpinNode releases a pinned node back to the simulation.
// DELETE /nodes/{id}/pin
func (h *NodeHandler) UnpinNode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "handlers.UnpinNode")
	defer span.End()

	id := mux.Vars(r)["id"]
	if err := sanitizer.ValidateNodeID(id); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", err.Error()))
		return
	}
	span.SetAttributes(attribute.String("node_id", id))

	if _, err := h.queries.GetGraphNode(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("node"))
			return
		}
		logger.Error("Failed to look up node for unpinning", "error", err, "node_id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
		return
	}

	if err := h.svc.UnpinNode(ctx, id); err != nil {
		logger.Error("Failed to unpin node", "error", err, "node_id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(""))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "pinned": false})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/apierr"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/graph"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
)

// LayoutHandler exposes layout control endpoints: status, manual runs, and
// reheating a converged simulation.
type LayoutHandler struct {
	svc *graph.Service
}

func NewLayoutHandler(svc *graph.Service) *LayoutHandler {
	return &LayoutHandler{svc: svc}
}

// GetStatus returns the current layout state.
// GET /layout/status
func (h *LayoutHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.svc.Status())
}

// Run triggers a layout run in the background.
// POST /layout/run
func (h *LayoutHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.svc.Status().Running {
		apierr.WriteErrorWithContext(w, r, apierr.LayoutRunning())
		return
	}

	go func() {
		if _, err := h.svc.RunLayout(context.Background()); err != nil && !errors.Is(err, graph.ErrLayoutRunning) {
			logger.Error("Manual layout run failed", "error", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

// ReheatRequest raises the simulation energy, typically while a client drags
// a node. Alpha defaults to 0.3 when omitted, matching a standard drag-start.
type ReheatRequest struct {
	Alpha       float64 `json:"alpha"`
	AlphaTarget float64 `json:"alpha_target"`
}

// Reheat bumps the live simulation's alpha so it keeps adjusting.
// POST /layout/reheat
func (h *LayoutHandler) Reheat(w http.ResponseWriter, r *http.Request) {
	var req ReheatRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}
	}
	if req.Alpha < 0 || req.Alpha > 1 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("alpha", "must be between 0 and 1"))
		return
	}
	if req.AlphaTarget < 0 || req.AlphaTarget >= 1 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("alpha_target", "must be in [0, 1)"))
		return
	}
	if req.Alpha == 0 {
		req.Alpha = 0.3
	}

	h.svc.Reheat(req.Alpha, req.AlphaTarget)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "reheated"})
}

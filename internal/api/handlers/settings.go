package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/apierr"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/settings"
)

// SettingsHandler exposes runtime service settings over the admin API.
type SettingsHandler struct {
	queries *db.Queries
}

func NewSettingsHandler(q *db.Queries) *SettingsHandler {
	return &SettingsHandler{queries: q}
}

var knownSettings = map[string]bool{
	settings.KeyLayoutPaused: true,
	settings.KeySourcePaused: true,
}

// GetSetting returns the current value of a setting key.
func (h *SettingsHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if !knownSettings[key] {
		apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("setting"))
		return
	}
	value, err := settings.Get(r.Context(), h.queries, key)
	if err != nil {
		logger.Error("Failed to read setting", "key", key, "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("Failed to read setting"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"key": key, "value": value})
}

// PutSetting updates a setting key.
func (h *SettingsHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if !knownSettings[key] {
		apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("setting"))
		return
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if len(body.Value) > 256 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("value", "Value too long"))
		return
	}

	if err := settings.Set(r.Context(), h.queries, key, body.Value); err != nil {
		logger.Error("Failed to update setting", "key", key, "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("Failed to update setting"))
		return
	}
	logger.Info("Setting updated", "key", key, "value", body.Value)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"key": key, "value": body.Value})
}

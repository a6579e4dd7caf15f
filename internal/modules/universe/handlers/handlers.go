// Package handlers provides administrative HTTP handlers for the universe.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/modules/universe"
)

// Handler handles universe admin HTTP requests
type Handler struct {
	snapshots *universe.SnapshotService
	log       zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(snapshots *universe.SnapshotService, log zerolog.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		log:       log.With().Str("handler", "universe").Logger(),
	}
}

// RefreshResponse summarizes the snapshot swapped in by a refresh.
type RefreshResponse struct {
	NumSymbols int       `json:"num_symbols"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// HandleRefresh handles POST /api/admin/universe/refresh.
// In-flight requests keep the snapshot they already captured; only new
// requests see the refreshed universe.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Refresh()
	if err != nil {
		h.log.Error().Err(err).Msg("Universe refresh failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, RefreshResponse{
		NumSymbols: len(snap.Symbols()),
		LoadedAt:   snap.LoadedAt(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

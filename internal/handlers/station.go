package handlers

import (
	"net/http"

	"github.com/unibike/campus-bikeshare/internal/engine"
)

// StationHandler serves read-only station and bike queries
type StationHandler struct {
	engine *engine.Engine
}

// NewStationHandler creates a new station handler
func NewStationHandler(eng *engine.Engine) *StationHandler {
	return &StationHandler{engine: eng}
}

// ListStations returns all stations
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.engine.ListStations())
}

// ListBikes returns bikes, optionally filtered to one station. With
// available=true it returns only the bikes that can be rented right now.
func (h *StationHandler) ListBikes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stationID := r.URL.Query().Get("station")

	if r.URL.Query().Get("available") == "true" {
		if stationID == "" {
			http.Error(w, "station is required with available=true", http.StatusBadRequest)
			return
		}
		bikes, err := h.engine.AvailableBikes(stationID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bikes)
		return
	}

	writeJSON(w, http.StatusOK, h.engine.ListBikes(stationID))
}

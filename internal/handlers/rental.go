package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/unibike/campus-bikeshare/internal/engine"
	"github.com/unibike/campus-bikeshare/internal/middleware"
)

// RentalHandler handles rental and reservation requests
type RentalHandler struct {
	engine *engine.Engine
}

// NewRentalHandler creates a new rental handler
func NewRentalHandler(eng *engine.Engine) *RentalHandler {
	return &RentalHandler{engine: eng}
}

// Rent allocates a bike at the requested station to the caller
func (h *RentalHandler) Rent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var rentReq struct {
		StationID string `json:"station_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&rentReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if rentReq.StationID == "" {
		http.Error(w, "station_id is required", http.StatusBadRequest)
		return
	}

	bikeID, err := h.engine.Rent(claims.UserID, rentReq.StationID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithFields(log.Fields{"user": claims.UserID, "bike": bikeID, "station": rentReq.StationID}).Info("Rental started")
	writeJSON(w, http.StatusOK, map[string]string{"bike_id": bikeID})
}

// Return ends the caller's active rental and reports the charged fare
func (h *RentalHandler) Return(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var returnReq struct {
		BikeID    string `json:"bike_id"`
		StationID string `json:"station_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&returnReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if returnReq.BikeID == "" || returnReq.StationID == "" {
		http.Error(w, "bike_id and station_id are required", http.StatusBadRequest)
		return
	}

	cost, err := h.engine.ReturnBike(claims.UserID, returnReq.BikeID, returnReq.StationID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithFields(log.Fields{"user": claims.UserID, "bike": returnReq.BikeID, "cost": cost}).Info("Rental settled")
	writeJSON(w, http.StatusOK, map[string]float64{"cost": cost})
}

// Reserve places a timed hold on an available bike
func (h *RentalHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var reserveReq struct {
		BikeID          string `json:"bike_id"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reserveReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if reserveReq.BikeID == "" {
		http.Error(w, "bike_id is required", http.StatusBadRequest)
		return
	}

	until, err := h.engine.Reserve(claims.UserID, reserveReq.BikeID, reserveReq.DurationMinutes)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]time.Time{"expires_at": until})
}

// CancelReservation releases a hold placed by the caller
func (h *RentalHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var cancelReq struct {
		BikeID string `json:"bike_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&cancelReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.engine.CancelReservation(claims.UserID, cancelReq.BikeID); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Reservation cancelled"})
}

// History returns the caller's sealed rental records
func (h *RentalHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	records, err := h.engine.UserHistory(claims.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

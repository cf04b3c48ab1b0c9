package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/unibike/campus-bikeshare/internal/auth"
	"github.com/unibike/campus-bikeshare/internal/engine"
	"github.com/unibike/campus-bikeshare/internal/middleware"
	"github.com/unibike/campus-bikeshare/internal/models"
)

// AdminHandler handles fleet and account administration requests
type AdminHandler struct {
	authService *auth.Service
	engine      *engine.Engine
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *auth.Service, eng *engine.Engine) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		engine:      eng,
	}
}

func actorFromContext(r *http.Request) (engine.Actor, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return engine.Actor{}, false
	}
	return engine.Actor{ID: claims.UserID, Role: claims.Role}, true
}

// Bikes dispatches bike fleet requests: POST registers a new bike at a
// station, DELETE retires one.
func (h *AdminHandler) Bikes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.addBike(w, r)
	case http.MethodDelete:
		h.removeBike(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) addBike(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var addReq struct {
		StationID string `json:"station_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if addReq.StationID == "" {
		http.Error(w, "station_id is required", http.StatusBadRequest)
		return
	}

	bikeID, err := h.engine.AddBike(actor, addReq.StationID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithFields(log.Fields{"bike": bikeID, "station": addReq.StationID}).Info("Bike registered")
	writeJSON(w, http.StatusCreated, map[string]string{"bike_id": bikeID})
}

func (h *AdminHandler) removeBike(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var removeReq struct {
		BikeID string `json:"bike_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&removeReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if removeReq.BikeID == "" {
		http.Error(w, "bike_id is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.RemoveBike(actor, removeReq.BikeID); err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithField("bike", removeReq.BikeID).Info("Bike retired")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bike removed"})
}

// Stations dispatches station requests: POST creates, PUT edits, DELETE
// removes an empty station.
func (h *AdminHandler) Stations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.addStation(w, r)
	case http.MethodPut:
		h.editStation(w, r)
	case http.MethodDelete:
		h.removeStation(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) addStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var createReq struct {
		Name     string `json:"name"`
		Location string `json:"location"`
		Capacity int    `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	station, err := h.engine.AddStation(actor, createReq.Name, createReq.Location, createReq.Capacity)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithFields(log.Fields{"station": station.ID, "name": station.Name}).Info("Station created")
	writeJSON(w, http.StatusCreated, station)
}

func (h *AdminHandler) editStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var editReq struct {
		StationID string `json:"station_id"`
		Name      string `json:"name"`
		Location  string `json:"location"`
		Capacity  int    `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&editReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if editReq.StationID == "" {
		http.Error(w, "station_id is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.EditStation(actor, editReq.StationID, editReq.Name, editReq.Location, editReq.Capacity); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Station updated"})
}

func (h *AdminHandler) removeStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var removeReq struct {
		StationID string `json:"station_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&removeReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if removeReq.StationID == "" {
		http.Error(w, "station_id is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.RemoveStation(actor, removeReq.StationID); err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithField("station", removeReq.StationID).Info("Station removed")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Station removed"})
}

// SendToMaintenance pulls an available bike out of circulation
func (h *AdminHandler) SendToMaintenance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var maintReq struct {
		BikeID string `json:"bike_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&maintReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if maintReq.BikeID == "" {
		http.Error(w, "bike_id is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.SendToMaintenance(actor, maintReq.BikeID); err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithField("bike", maintReq.BikeID).Info("Bike sent to maintenance")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bike sent to maintenance"})
}

// ReturnFromMaintenance docks a repaired bike back at a station
func (h *AdminHandler) ReturnFromMaintenance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var maintReq struct {
		BikeID    string `json:"bike_id"`
		StationID string `json:"station_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&maintReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if maintReq.BikeID == "" || maintReq.StationID == "" {
		http.Error(w, "bike_id and station_id are required", http.StatusBadRequest)
		return
	}

	if err := h.engine.ReturnFromMaintenance(actor, maintReq.BikeID, maintReq.StationID); err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithFields(log.Fields{"bike": maintReq.BikeID, "station": maintReq.StationID}).Info("Bike back in service")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bike returned to service"})
}

// SetUserActive activates or deactivates a rider account
func (h *AdminHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var activeReq struct {
		UserID string `json:"user_id"`
		Active bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&activeReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if activeReq.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.SetUserActive(actor, activeReq.UserID, activeReq.Active); err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithFields(log.Fields{"user": activeReq.UserID, "active": activeReq.Active}).Info("Account status changed")
	writeJSON(w, http.StatusOK, map[string]string{"message": "User status updated"})
}

// ResetPassword sets a new password on a rider account
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := actorFromContext(r)
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var resetReq struct {
		UserID      string `json:"user_id"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&resetReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if resetReq.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(resetReq.NewPassword); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	passwordHash, err := h.authService.HashPassword(resetReq.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := h.engine.ResetPassword(actor, resetReq.UserID, passwordHash); err != nil {
		writeEngineError(w, err)
		return
	}

	log.WithField("user", resetReq.UserID).Info("Password reset")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// ListUsers returns all accounts
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.engine.Snapshot()
	users := snapshot.Users
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

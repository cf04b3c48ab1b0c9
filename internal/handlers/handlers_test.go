package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unibike/campus-bikeshare/internal/auth"
	"github.com/unibike/campus-bikeshare/internal/engine"
	"github.com/unibike/campus-bikeshare/internal/middleware"
	"github.com/unibike/campus-bikeshare/internal/models"
)

func testAuthService(t *testing.T) *auth.Service {
	t.Helper()
	service, err := auth.NewService()
	require.NoError(t, err)
	return service
}

// testEngine seeds one two-slot station holding bike B1, a rider and an admin.
func testEngine(t *testing.T, passwordHash string) *engine.Engine {
	t.Helper()
	s1 := "S1"
	snap := &models.Snapshot{
		Stations: []models.Station{
			{ID: "S1", Name: "Library", Location: "North Campus", Capacity: 2, BikeIDs: []string{"B1"}},
		},
		Bikes: []models.Bike{
			{ID: "B1", Status: models.BikeAvailable, StationID: &s1},
		},
		Users: []models.User{
			{ID: "U1", Username: "rider1", Email: "rider1@campus.edu", PasswordHash: passwordHash, Role: models.RoleRider, Balance: 50.0, IsActive: true},
			{ID: "A1", Username: "admin1", Email: "admin1@campus.edu", PasswordHash: passwordHash, Role: models.RoleAdmin, Balance: 50.0, IsActive: true},
		},
	}
	e, err := engine.New(snap)
	require.NoError(t, err)
	return e
}

func authedRequest(method, path string, body interface{}, claims *models.Claims) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if claims != nil {
		ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)
		req = req.WithContext(ctx)
	}
	return req
}

func riderClaims() *models.Claims {
	return &models.Claims{UserID: "U1", Username: "rider1", Role: models.RoleRider}
}

func adminClaims() *models.Claims {
	return &models.Claims{UserID: "A1", Username: "admin1", Role: models.RoleAdmin}
}

func TestAuthHandler_Login(t *testing.T) {
	authService := testAuthService(t)
	passwordHash, err := authService.HashPassword("password123")
	require.NoError(t, err)

	t.Run("successful login", func(t *testing.T) {
		e := testEngine(t, passwordHash)
		handler := NewAuthHandler(authService, e)

		req := authedRequest("POST", "/api/login", models.LoginRequest{Username: "rider1", Password: "password123"}, nil)
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "rider1", resp.User.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		e := testEngine(t, passwordHash)
		handler := NewAuthHandler(authService, e)

		req := authedRequest("POST", "/api/login", models.LoginRequest{Username: "rider1", Password: "wrong"}, nil)
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		e := testEngine(t, passwordHash)
		handler := NewAuthHandler(authService, e)

		req := authedRequest("POST", "/api/login", models.LoginRequest{Username: "ghost", Password: "password123"}, nil)
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deactivated account", func(t *testing.T) {
		e := testEngine(t, passwordHash)
		require.NoError(t, e.SetUserActive(engine.Actor{ID: "A1", Role: models.RoleAdmin}, "U1", false))
		handler := NewAuthHandler(authService, e)

		req := authedRequest("POST", "/api/login", models.LoginRequest{Username: "rider1", Password: "password123"}, nil)
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	authService := testAuthService(t)
	e := testEngine(t, "")
	handler := NewAuthHandler(authService, e)

	t.Run("successful registration", func(t *testing.T) {
		body := models.RegisterRequest{Username: "newrider", Email: "new@campus.edu", Password: "password123"}
		req := authedRequest("POST", "/api/register", body, nil)
		w := httptest.NewRecorder()
		handler.Register(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, models.RoleRider, resp.User.Role)

		user, err := e.GetUserByUsername("newrider")
		require.NoError(t, err)
		assert.True(t, user.IsActive)
	})

	t.Run("duplicate username", func(t *testing.T) {
		body := models.RegisterRequest{Username: "rider1", Email: "dup@campus.edu", Password: "password123"}
		req := authedRequest("POST", "/api/register", body, nil)
		w := httptest.NewRecorder()
		handler.Register(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		body := models.RegisterRequest{Username: "another", Email: "a@campus.edu", Password: "short"}
		req := authedRequest("POST", "/api/register", body, nil)
		w := httptest.NewRecorder()
		handler.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	authService := testAuthService(t)
	passwordHash, err := authService.HashPassword("password123")
	require.NoError(t, err)

	login := func(t *testing.T, handler *AuthHandler) models.LoginResponse {
		t.Helper()
		req := authedRequest("POST", "/api/login", models.LoginRequest{Username: "rider1", Password: "password123"}, nil)
		w := httptest.NewRecorder()
		handler.Login(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	t.Run("redeems and rotates", func(t *testing.T) {
		e := testEngine(t, passwordHash)
		handler := NewAuthHandler(authService, e)
		session := login(t, handler)

		req := authedRequest("POST", "/api/refresh", map[string]string{"refresh_token": session.RefreshToken}, nil)
		w := httptest.NewRecorder()
		handler.Refresh(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var refreshed models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
		assert.NotEmpty(t, refreshed.Token)
		assert.NotEmpty(t, refreshed.RefreshToken)
		assert.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)
		assert.Equal(t, "rider1", refreshed.User.Username)

		// The redeemed token was rotated out; replaying it fails.
		req = authedRequest("POST", "/api/refresh", map[string]string{"refresh_token": session.RefreshToken}, nil)
		w = httptest.NewRecorder()
		handler.Refresh(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		// The replacement still works.
		req = authedRequest("POST", "/api/refresh", map[string]string{"refresh_token": refreshed.RefreshToken}, nil)
		w = httptest.NewRecorder()
		handler.Refresh(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		e := testEngine(t, passwordHash)
		handler := NewAuthHandler(authService, e)

		req := authedRequest("POST", "/api/refresh", map[string]string{"refresh_token": "bogus"}, nil)
		w := httptest.NewRecorder()
		handler.Refresh(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		e := testEngine(t, passwordHash)
		handler := NewAuthHandler(authService, e)

		req := authedRequest("POST", "/api/refresh", map[string]string{}, nil)
		w := httptest.NewRecorder()
		handler.Refresh(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("deactivated account", func(t *testing.T) {
		e := testEngine(t, passwordHash)
		handler := NewAuthHandler(authService, e)
		session := login(t, handler)

		require.NoError(t, e.SetUserActive(engine.Actor{ID: "A1", Role: models.RoleAdmin}, "U1", false))

		req := authedRequest("POST", "/api/refresh", map[string]string{"refresh_token": session.RefreshToken}, nil)
		w := httptest.NewRecorder()
		handler.Refresh(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_Profile(t *testing.T) {
	authService := testAuthService(t)
	e := testEngine(t, "")
	handler := NewAuthHandler(authService, e)

	req := authedRequest("GET", "/api/users/me", nil, riderClaims())
	w := httptest.NewRecorder()
	handler.GetProfile(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "rider1", user.Username)
	assert.Equal(t, 50.0, user.Balance)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAuthHandler_TopUp(t *testing.T) {
	authService := testAuthService(t)
	e := testEngine(t, "")
	handler := NewAuthHandler(authService, e)

	t.Run("credits balance", func(t *testing.T) {
		req := authedRequest("POST", "/api/users/balance", map[string]float64{"amount": 25.0}, riderClaims())
		w := httptest.NewRecorder()
		handler.TopUp(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]float64
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 75.0, resp["balance"])
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		req := authedRequest("POST", "/api/users/balance", map[string]float64{"amount": -5.0}, riderClaims())
		w := httptest.NewRecorder()
		handler.TopUp(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRentalHandler_RentAndReturn(t *testing.T) {
	e := testEngine(t, "")
	handler := NewRentalHandler(e)

	req := authedRequest("POST", "/api/rentals", map[string]string{"station_id": "S1"}, riderClaims())
	w := httptest.NewRecorder()
	handler.Rent(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var rentResp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rentResp))
	assert.Equal(t, "B1", rentResp["bike_id"])

	req = authedRequest("POST", "/api/rentals/return", map[string]string{"bike_id": "B1", "station_id": "S1"}, riderClaims())
	w = httptest.NewRecorder()
	handler.Return(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var returnResp map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &returnResp))
	assert.Equal(t, 1.15, returnResp["cost"]) // minimum billable minute

	req = authedRequest("GET", "/api/users/history", nil, riderClaims())
	w = httptest.NewRecorder()
	handler.History(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var records []models.RentalRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "B1", records[0].BikeID)
}

func TestRentalHandler_RentErrors(t *testing.T) {
	e := testEngine(t, "")
	handler := NewRentalHandler(e)

	t.Run("missing station", func(t *testing.T) {
		req := authedRequest("POST", "/api/rentals", map[string]string{}, riderClaims())
		w := httptest.NewRecorder()
		handler.Rent(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown station", func(t *testing.T) {
		req := authedRequest("POST", "/api/rentals", map[string]string{"station_id": "nope"}, riderClaims())
		w := httptest.NewRecorder()
		handler.Rent(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no bike available", func(t *testing.T) {
		req := authedRequest("POST", "/api/rentals", map[string]string{"station_id": "S1"}, riderClaims())
		w := httptest.NewRecorder()
		handler.Rent(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		other := &models.Claims{UserID: "A1", Username: "admin1", Role: models.RoleAdmin}
		req = authedRequest("POST", "/api/rentals", map[string]string{"station_id": "S1"}, other)
		w = httptest.NewRecorder()
		handler.Rent(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing context", func(t *testing.T) {
		req := authedRequest("POST", "/api/rentals", map[string]string{"station_id": "S1"}, nil)
		w := httptest.NewRecorder()
		handler.Rent(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRentalHandler_ReserveAndCancel(t *testing.T) {
	e := testEngine(t, "")
	handler := NewRentalHandler(e)

	req := authedRequest("POST", "/api/reservations", map[string]interface{}{"bike_id": "B1", "duration_minutes": 15}, riderClaims())
	w := httptest.NewRecorder()
	handler.Reserve(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var reserveResp map[string]time.Time
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reserveResp))
	assert.False(t, reserveResp["expires_at"].IsZero())

	// Another rider cannot cancel the hold
	other := &models.Claims{UserID: "A1", Username: "admin1", Role: models.RoleAdmin}
	req = authedRequest("POST", "/api/reservations/cancel", map[string]string{"bike_id": "B1"}, other)
	w = httptest.NewRecorder()
	handler.CancelReservation(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = authedRequest("POST", "/api/reservations/cancel", map[string]string{"bike_id": "B1"}, riderClaims())
	w = httptest.NewRecorder()
	handler.CancelReservation(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStationHandler_ListStations(t *testing.T) {
	e := testEngine(t, "")
	handler := NewStationHandler(e)

	req := httptest.NewRequest("GET", "/api/stations", nil)
	w := httptest.NewRecorder()
	handler.ListStations(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stations []models.Station
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stations))
	require.Len(t, stations, 1)
	assert.Equal(t, "Library", stations[0].Name)
	assert.Equal(t, []string{"B1"}, stations[0].BikeIDs)
}

func TestStationHandler_ListBikes(t *testing.T) {
	e := testEngine(t, "")
	handler := NewStationHandler(e)

	t.Run("all bikes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/bikes", nil)
		w := httptest.NewRecorder()
		handler.ListBikes(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var bikes []models.Bike
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bikes))
		require.Len(t, bikes, 1)
		assert.Equal(t, "B1", bikes[0].ID)
	})

	t.Run("filtered by station", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/bikes?station=S1", nil)
		w := httptest.NewRecorder()
		handler.ListBikes(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var bikes []models.Bike
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bikes))
		require.Len(t, bikes, 1)
	})

	t.Run("available only", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/bikes?station=S1&available=true", nil)
		w := httptest.NewRecorder()
		handler.ListBikes(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var bikes []models.Bike
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bikes))
		require.Len(t, bikes, 1)
	})

	t.Run("available requires station", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/bikes?available=true", nil)
		w := httptest.NewRecorder()
		handler.ListBikes(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown station with available", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/bikes?station=nope&available=true", nil)
		w := httptest.NewRecorder()
		handler.ListBikes(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminHandler_Bikes(t *testing.T) {
	authService := testAuthService(t)

	t.Run("add bike", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		req := authedRequest("POST", "/api/admin/bikes", map[string]string{"station_id": "S1"}, adminClaims())
		w := httptest.NewRecorder()
		handler.Bikes(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["bike_id"])
		assert.Len(t, e.ListBikes("S1"), 2)
	})

	t.Run("add bike to full station", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		for i := 0; i < 1; i++ {
			req := authedRequest("POST", "/api/admin/bikes", map[string]string{"station_id": "S1"}, adminClaims())
			w := httptest.NewRecorder()
			handler.Bikes(w, req)
			require.Equal(t, http.StatusCreated, w.Code)
		}

		req := authedRequest("POST", "/api/admin/bikes", map[string]string{"station_id": "S1"}, adminClaims())
		w := httptest.NewRecorder()
		handler.Bikes(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rider cannot add bike", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		req := authedRequest("POST", "/api/admin/bikes", map[string]string{"station_id": "S1"}, riderClaims())
		w := httptest.NewRecorder()
		handler.Bikes(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("remove bike", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		req := authedRequest("DELETE", "/api/admin/bikes", map[string]string{"bike_id": "B1"}, adminClaims())
		w := httptest.NewRecorder()
		handler.Bikes(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, e.ListBikes(""))
	})

	t.Run("remove rented bike", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)
		_, err := e.Rent("U1", "S1")
		require.NoError(t, err)

		req := authedRequest("DELETE", "/api/admin/bikes", map[string]string{"bike_id": "B1"}, adminClaims())
		w := httptest.NewRecorder()
		handler.Bikes(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAdminHandler_Stations(t *testing.T) {
	authService := testAuthService(t)

	t.Run("create station", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		body := map[string]interface{}{"name": "Gym", "location": "South Campus", "capacity": 4}
		req := authedRequest("POST", "/api/admin/stations", body, adminClaims())
		w := httptest.NewRecorder()
		handler.Stations(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var station models.Station
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &station))
		assert.NotEmpty(t, station.ID)
		assert.Equal(t, "Gym", station.Name)
		assert.Len(t, e.ListStations(), 2)
	})

	t.Run("duplicate name", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		body := map[string]interface{}{"name": "library", "location": "x", "capacity": 4}
		req := authedRequest("POST", "/api/admin/stations", body, adminClaims())
		w := httptest.NewRecorder()
		handler.Stations(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("edit station", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		body := map[string]interface{}{"station_id": "S1", "name": "Main Library", "capacity": 6}
		req := authedRequest("PUT", "/api/admin/stations", body, adminClaims())
		w := httptest.NewRecorder()
		handler.Stations(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		stations := e.ListStations()
		require.Len(t, stations, 1)
		assert.Equal(t, "Main Library", stations[0].Name)
		assert.Equal(t, 6, stations[0].Capacity)
		assert.Equal(t, "North Campus", stations[0].Location)
	})

	t.Run("shrink below docked count", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)
		_, err := e.AddBike(engine.Actor{ID: "A1", Role: models.RoleAdmin}, "S1")
		require.NoError(t, err)

		body := map[string]interface{}{"station_id": "S1", "capacity": 1}
		req := authedRequest("PUT", "/api/admin/stations", body, adminClaims())
		w := httptest.NewRecorder()
		handler.Stations(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("negative capacity", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		body := map[string]interface{}{"station_id": "S1", "capacity": -1}
		req := authedRequest("PUT", "/api/admin/stations", body, adminClaims())
		w := httptest.NewRecorder()
		handler.Stations(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("remove non-empty station", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		req := authedRequest("DELETE", "/api/admin/stations", map[string]string{"station_id": "S1"}, adminClaims())
		w := httptest.NewRecorder()
		handler.Stations(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAdminHandler_Maintenance(t *testing.T) {
	authService := testAuthService(t)
	e := testEngine(t, "")
	handler := NewAdminHandler(authService, e)

	req := authedRequest("POST", "/api/admin/maintenance/send", map[string]string{"bike_id": "B1"}, adminClaims())
	w := httptest.NewRecorder()
	handler.SendToMaintenance(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	bikes := e.ListBikes("")
	require.Len(t, bikes, 1)
	assert.Equal(t, models.BikeInMaintenance, bikes[0].Status)

	req = authedRequest("POST", "/api/admin/maintenance/return", map[string]string{"bike_id": "B1", "station_id": "S1"}, adminClaims())
	w = httptest.NewRecorder()
	handler.ReturnFromMaintenance(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	bikes = e.ListBikes("S1")
	require.Len(t, bikes, 1)
	assert.Equal(t, models.BikeAvailable, bikes[0].Status)
}

func TestAdminHandler_UserAdministration(t *testing.T) {
	authService := testAuthService(t)

	t.Run("deactivate and reactivate", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		req := authedRequest("POST", "/api/admin/users/active", map[string]interface{}{"user_id": "U1", "active": false}, adminClaims())
		w := httptest.NewRecorder()
		handler.SetUserActive(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		user, err := e.GetUser("U1")
		require.NoError(t, err)
		assert.False(t, user.IsActive)
	})

	t.Run("reset password", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		body := map[string]string{"user_id": "U1", "new_password": "newpassword1"}
		req := authedRequest("POST", "/api/admin/users/password", body, adminClaims())
		w := httptest.NewRecorder()
		handler.ResetPassword(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		user, err := e.GetUser("U1")
		require.NoError(t, err)
		assert.True(t, authService.CheckPassword("newpassword1", user.PasswordHash))
	})

	t.Run("rider cannot reset password", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		body := map[string]string{"user_id": "A1", "new_password": "newpassword1"}
		req := authedRequest("POST", "/api/admin/users/password", body, riderClaims())
		w := httptest.NewRecorder()
		handler.ResetPassword(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("list users", func(t *testing.T) {
		e := testEngine(t, "")
		handler := NewAdminHandler(authService, e)

		req := authedRequest("GET", "/api/admin/users", nil, adminClaims())
		w := httptest.NewRecorder()
		handler.ListUsers(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var users []models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
		assert.Len(t, users, 2)
	})
}

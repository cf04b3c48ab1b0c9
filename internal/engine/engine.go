// Package engine implements the rental state machine: registries for bikes,
// stations and user accounts, the operations that mutate them, and the
// locking that keeps concurrent callers from double-allocating a bike.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/unibike/campus-bikeshare/internal/fare"
	"github.com/unibike/campus-bikeshare/internal/models"
)

// MinimumRentalBalance is the balance a user must hold before a rental is
// allowed to start. The fare itself is only charged at return time.
const MinimumRentalBalance = 5.00

// Actor identifies the authenticated caller of an operation. The engine
// trusts the role claim; admin-gated operations reject non-admin actors.
type Actor struct {
	ID   string
	Role models.Role
}

// Mutation describes one committed state change, paired with the snapshot
// taken immediately after it. Listeners receive it outside the engine lock,
// so deliveries for overlapping operations may arrive out of order; Seq is
// assigned under the lock and lets a listener discard a snapshot older than
// one it already handled.
type Mutation struct {
	Seq      uint64
	Op       string
	At       time.Time
	Snapshot *models.Snapshot
}

// CommitListener is notified after every committed mutation. Implementations
// may do I/O; they are never called while the engine lock is held.
type CommitListener interface {
	Committed(m Mutation)
}

// Engine coordinates all rental, reservation and admin operations. Every
// operation that reads-then-writes shared state runs as one atomic unit
// under a single engine-wide mutex, so two concurrent rent calls on the same
// bike can never both succeed.
type Engine struct {
	mu        sync.Mutex
	seq       uint64 // commit counter, incremented under mu
	bikes     *bikeRegistry
	stations  *stationRegistry
	accounts  *accountStore
	open      map[string]models.RentalRecord // open rental record per user id
	fares     fare.Calculator
	now       func() time.Time
	listeners []CommitListener
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFareCalculator overrides the default fare rates.
func WithFareCalculator(c fare.Calculator) Option {
	return func(e *Engine) { e.fares = c }
}

// WithListener registers a commit listener.
func WithListener(l CommitListener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// New builds an engine seeded from the persisted snapshot. A nil snapshot
// starts empty.
func New(snapshot *models.Snapshot, opts ...Option) (*Engine, error) {
	e := &Engine{
		open:  make(map[string]models.RentalRecord),
		fares: fare.New(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	// Registries stamp UpdatedAt themselves, so they share the engine clock.
	e.bikes = newBikeRegistry(e.now)
	e.stations = newStationRegistry(e.bikes, e.now)
	e.accounts = newAccountStore(e.now)
	if snapshot != nil {
		if err := e.seed(snapshot); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) seed(snapshot *models.Snapshot) error {
	for i := range snapshot.Stations {
		station := snapshot.Stations[i]
		if err := e.stations.add(&station); err != nil {
			return err
		}
	}
	for i := range snapshot.Bikes {
		bike := snapshot.Bikes[i]
		if err := e.bikes.add(&bike); err != nil {
			return err
		}
	}
	for i := range snapshot.Users {
		user := snapshot.Users[i]
		if err := e.accounts.add(&user); err != nil {
			return err
		}
	}
	// Records arrive in chronological order; open records resume as the
	// user's in-progress rental.
	for _, record := range snapshot.Records {
		if record.Open() {
			e.open[record.UserID] = record
		} else {
			e.accounts.appendHistory(record.UserID, record)
		}
	}
	return nil
}

// mutate runs fn under the engine lock and, on success, notifies listeners
// with a post-commit snapshot. Listener I/O happens after the lock is
// released.
func (e *Engine) mutate(op string, fn func() error) error {
	e.mu.Lock()
	err := fn()
	var seq uint64
	var snap *models.Snapshot
	if err == nil {
		e.seq++
		seq = e.seq
		if len(e.listeners) > 0 {
			snap = e.snapshotLocked()
		}
	}
	at := e.now()
	e.mu.Unlock()

	if err == nil && snap != nil {
		m := Mutation{Seq: seq, Op: op, At: at, Snapshot: snap}
		for _, l := range e.listeners {
			l.Committed(m)
		}
	}
	return err
}

// Rent allocates a bike at the station to the user and opens a rental
// record. Stale reservations at the station are expired first, so they do
// not block the rental. Selection is deterministic: the first available bike
// in docking order, falling back to a bike the user reserved themselves.
func (e *Engine) Rent(userID, stationID string) (string, error) {
	var bikeID string
	err := e.mutate("rent", func() error {
		user, err := e.accounts.get(userID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return ErrPermissionDenied
		}
		station, err := e.stations.get(stationID)
		if err != nil {
			return err
		}
		if user.Renting() {
			return ErrAlreadyRenting
		}
		if user.Balance < MinimumRentalBalance {
			return ErrInsufficientBalance
		}

		now := e.now()
		e.sweepLocked(now)

		selected, err := e.selectBike(station, userID)
		if err != nil {
			return err
		}

		if err := e.stations.undock(stationID, selected.ID); err != nil {
			return err
		}
		if err := e.bikes.setStatus(selected.ID, models.BikeRented, StatusFields{}); err != nil {
			return err
		}
		if err := e.accounts.beginRental(userID, selected.ID, now); err != nil {
			return err
		}
		e.open[userID] = models.RentalRecord{
			ID:            uuid.NewString(),
			UserID:        userID,
			BikeID:        selected.ID,
			FromStationID: stationID,
			StartedAt:     now,
		}
		bikeID = selected.ID
		return nil
	})
	return bikeID, err
}

// selectBike picks the bike a rent call should get, in docking order: the
// first available bike, else the first bike the user reserved. A station
// whose only candidates are reserved by others reports the conflict.
func (e *Engine) selectBike(station *models.Station, userID string) (*models.Bike, error) {
	reservedByOther := false
	var ownReservation *models.Bike
	for _, bikeID := range station.BikeIDs {
		bike, err := e.bikes.get(bikeID)
		if err != nil {
			continue
		}
		switch bike.Status {
		case models.BikeAvailable:
			return bike, nil
		case models.BikeReserved:
			if bike.ReservedBy != nil && *bike.ReservedBy == userID {
				if ownReservation == nil {
					ownReservation = bike
				}
			} else {
				reservedByOther = true
			}
		}
	}
	if ownReservation != nil {
		return ownReservation, nil
	}
	if reservedByOther {
		return nil, ErrReservationConflict
	}
	return nil, ErrBikeUnavailable
}

// ReturnBike ends the user's active rental at the station, charges the fare
// and seals the rental record. A balance shortfall or a full station aborts
// the return and leaves the bike rented; a deduction is rolled back if
// docking fails afterwards.
func (e *Engine) ReturnBike(userID, bikeID, stationID string) (float64, error) {
	var cost float64
	err := e.mutate("return", func() error {
		user, err := e.accounts.get(userID)
		if err != nil {
			return err
		}
		bike, err := e.bikes.get(bikeID)
		if err != nil {
			return err
		}
		if _, err := e.stations.get(stationID); err != nil {
			return err
		}
		if bike.Status != models.BikeRented {
			return ErrBikeUnavailable
		}
		if user.ActiveBikeID == nil || *user.ActiveBikeID != bikeID {
			return ErrPermissionDenied
		}

		now := e.now()
		cost = e.fares.ComputeDuration(now.Sub(*user.RentalStartedAt))

		if err := e.accounts.deduct(userID, cost); err != nil {
			return err
		}
		if err := e.stations.dock(stationID, bikeID); err != nil {
			// Money was charged but the service was not rendered; undo the
			// deduction before reporting the failure.
			if cost > 0 {
				_ = e.accounts.credit(userID, cost)
			}
			return err
		}
		if err := e.bikes.setStatus(bikeID, models.BikeAvailable, StatusFields{StationID: &stationID}); err != nil {
			return err
		}
		if _, _, err := e.accounts.endRental(userID); err != nil {
			return err
		}

		record, ok := e.open[userID]
		if !ok {
			record = models.RentalRecord{
				ID:            uuid.NewString(),
				UserID:        userID,
				BikeID:        bikeID,
				FromStationID: stationID,
				StartedAt:     *user.RentalStartedAt,
			}
		}
		delete(e.open, userID)
		record.EndedAt = &now
		record.ToStationID = &stationID
		record.Cost = cost
		e.accounts.appendHistory(userID, record)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cost, nil
}

// Reserve holds an available bike for the user for the given number of
// minutes.
func (e *Engine) Reserve(userID, bikeID string, durationMinutes int) (time.Time, error) {
	var until time.Time
	err := e.mutate("reserve", func() error {
		if durationMinutes <= 0 {
			return ErrInvalidArgument
		}
		user, err := e.accounts.get(userID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return ErrPermissionDenied
		}
		bike, err := e.bikes.get(bikeID)
		if err != nil {
			return err
		}
		if user.Renting() {
			return ErrAlreadyRenting
		}
		if bike.Status != models.BikeAvailable {
			return ErrBikeUnavailable
		}

		until = e.now().Add(time.Duration(durationMinutes) * time.Minute)
		return e.bikes.setStatus(bikeID, models.BikeReserved, StatusFields{
			StationID:    bike.StationID,
			ReservedBy:   &userID,
			ReserveUntil: &until,
		})
	})
	if err != nil {
		return time.Time{}, err
	}
	return until, nil
}

// CancelReservation releases a reservation held by the user.
func (e *Engine) CancelReservation(userID, bikeID string) error {
	return e.mutate("cancel_reservation", func() error {
		bike, err := e.bikes.get(bikeID)
		if err != nil {
			return err
		}
		if bike.Status != models.BikeReserved {
			return ErrNotFound
		}
		if bike.ReservedBy == nil || *bike.ReservedBy != userID {
			return ErrPermissionDenied
		}
		return e.bikes.setStatus(bikeID, models.BikeAvailable, StatusFields{StationID: bike.StationID})
	})
}

// SendToMaintenance pulls an available bike out of circulation. A rented
// bike must be returned first; there is no direct rented-to-maintenance
// transition.
func (e *Engine) SendToMaintenance(actor Actor, bikeID string) error {
	return e.mutate("send_to_maintenance", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		bike, err := e.bikes.get(bikeID)
		if err != nil {
			return err
		}
		if bike.Status != models.BikeAvailable {
			return ErrBikeUnavailable
		}
		if bike.StationID != nil {
			if err := e.stations.undock(*bike.StationID, bikeID); err != nil {
				return err
			}
		}
		return e.bikes.setStatus(bikeID, models.BikeInMaintenance, StatusFields{})
	})
}

// ReturnFromMaintenance puts a maintained bike back into service at the
// station.
func (e *Engine) ReturnFromMaintenance(actor Actor, bikeID, stationID string) error {
	return e.mutate("return_from_maintenance", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		bike, err := e.bikes.get(bikeID)
		if err != nil {
			return err
		}
		if _, err := e.stations.get(stationID); err != nil {
			return err
		}
		if bike.Status != models.BikeInMaintenance {
			return ErrBikeUnavailable
		}
		if err := e.stations.dock(stationID, bikeID); err != nil {
			return err
		}
		return e.bikes.setStatus(bikeID, models.BikeAvailable, StatusFields{StationID: &stationID})
	})
}

// AddBike provisions a new bike docked at the station.
func (e *Engine) AddBike(actor Actor, stationID string) (string, error) {
	var bikeID string
	err := e.mutate("add_bike", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		if _, err := e.stations.get(stationID); err != nil {
			return err
		}
		now := e.now()
		bike := &models.Bike{
			ID:        uuid.NewString(),
			Status:    models.BikeAvailable,
			StationID: &stationID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.stations.dock(stationID, bike.ID); err != nil {
			return err
		}
		if err := e.bikes.add(bike); err != nil {
			_ = e.stations.undock(stationID, bike.ID)
			return err
		}
		bikeID = bike.ID
		return nil
	})
	return bikeID, err
}

// RemoveBike retires a bike. Removal is blocked while the bike is rented.
func (e *Engine) RemoveBike(actor Actor, bikeID string) error {
	return e.mutate("remove_bike", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		bike, err := e.bikes.get(bikeID)
		if err != nil {
			return err
		}
		if bike.Status == models.BikeRented {
			return ErrConflict
		}
		if bike.StationID != nil {
			if err := e.stations.undock(*bike.StationID, bikeID); err != nil && err != ErrNotFound {
				return err
			}
		}
		return e.bikes.remove(bikeID)
	})
}

// AddStation creates a station.
func (e *Engine) AddStation(actor Actor, name, location string, capacity int) (*models.Station, error) {
	var station *models.Station
	err := e.mutate("add_station", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		created, err := e.stations.create(name, location, capacity)
		if err != nil {
			return err
		}
		copied := *created
		station = &copied
		return nil
	})
	return station, err
}

// EditStation updates a station's name, location or capacity. Empty name and
// location or zero capacity keep the current value. Capacity cannot shrink
// below the number of docked bikes.
func (e *Engine) EditStation(actor Actor, stationID, name, location string, capacity int) error {
	return e.mutate("edit_station", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		station, err := e.stations.get(stationID)
		if err != nil {
			return err
		}
		if capacity < 0 {
			return ErrInvalidArgument
		}
		if capacity > 0 && capacity < len(station.BikeIDs) {
			return ErrCapacityExceeded
		}
		if name != "" && e.stations.nameTaken(name, stationID) {
			return ErrConflict
		}
		if name != "" {
			station.Name = name
		}
		if location != "" {
			station.Location = location
		}
		if capacity > 0 {
			station.Capacity = capacity
		}
		station.UpdatedAt = e.now()
		return nil
	})
}

// RemoveStation deletes an empty station.
func (e *Engine) RemoveStation(actor Actor, stationID string) error {
	return e.mutate("remove_station", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		return e.stations.remove(stationID)
	})
}

// RegisterUser adds a new account. The caller supplies the fully built user,
// including the password hash; the engine only enforces uniqueness.
func (e *Engine) RegisterUser(user models.User) error {
	return e.mutate("register_user", func() error {
		if !models.IsValidRole(user.Role) {
			return ErrInvalidArgument
		}
		copied := user
		return e.accounts.add(&copied)
	})
}

// TopUp credits the user's balance and returns the new balance.
func (e *Engine) TopUp(userID string, amount float64) (float64, error) {
	var balance float64
	err := e.mutate("top_up", func() error {
		if err := e.accounts.credit(userID, amount); err != nil {
			return err
		}
		user, err := e.accounts.get(userID)
		if err != nil {
			return err
		}
		balance = user.Balance
		return nil
	})
	return balance, err
}

// SetUserActive enables or disables an account.
func (e *Engine) SetUserActive(actor Actor, userID string, active bool) error {
	return e.mutate("set_user_active", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		user, err := e.accounts.get(userID)
		if err != nil {
			return err
		}
		user.IsActive = active
		user.UpdatedAt = e.now()
		return nil
	})
}

// ResetPassword replaces the user's password hash. Hashing is the auth
// collaborator's job; the engine stores what it is given.
func (e *Engine) ResetPassword(actor Actor, userID, passwordHash string) error {
	return e.mutate("reset_password", func() error {
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}
		user, err := e.accounts.get(userID)
		if err != nil {
			return err
		}
		user.PasswordHash = passwordHash
		user.UpdatedAt = e.now()
		return nil
	})
}

// StoreRefreshToken replaces the user's refresh token hash and expiry.
// Storing a new token invalidates the previous one, which is how redemption
// rotates tokens.
func (e *Engine) StoreRefreshToken(userID, hash string, expiresAt time.Time) error {
	return e.mutate("store_refresh_token", func() error {
		user, err := e.accounts.get(userID)
		if err != nil {
			return err
		}
		user.RefreshHash = hash
		user.RefreshExpiry = &expiresAt
		user.UpdatedAt = e.now()
		return nil
	})
}

// UserByRefreshToken returns the user holding an unexpired refresh token
// with the given hash. An expired or unknown hash reports ErrNotFound; the
// caller cannot distinguish the two, deliberately.
func (e *Engine) UserByRefreshToken(hash string, now time.Time) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	user, err := e.accounts.findByRefreshHash(hash)
	if err != nil {
		return models.User{}, err
	}
	if user.RefreshExpiry == nil || !now.Before(*user.RefreshExpiry) {
		return models.User{}, ErrNotFound
	}
	return *user, nil
}

// RecordLogin stamps the user's last login time.
func (e *Engine) RecordLogin(userID string) error {
	return e.mutate("record_login", func() error {
		user, err := e.accounts.get(userID)
		if err != nil {
			return err
		}
		now := e.now()
		user.LastLogin = &now
		user.UpdatedAt = now
		return nil
	})
}

// GetUser returns a copy of the user.
func (e *Engine) GetUser(userID string) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	user, err := e.accounts.get(userID)
	if err != nil {
		return models.User{}, err
	}
	return *user, nil
}

// GetUserByUsername returns a copy of the user with the given username.
func (e *Engine) GetUserByUsername(username string) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	user, err := e.accounts.findByUsername(username)
	if err != nil {
		return models.User{}, err
	}
	return *user, nil
}

// UserBalance returns the user's current balance.
func (e *Engine) UserBalance(userID string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	user, err := e.accounts.get(userID)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}

// UserHistory returns the user's sealed rental records in chronological
// order.
func (e *Engine) UserHistory(userID string) ([]models.RentalRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accounts.userHistory(userID)
}

// ListStations returns all stations.
func (e *Engine) ListStations() []models.Station {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stations.list()
}

// ListBikes returns all bikes, or only those docked at the given station
// when stationID is non-empty.
func (e *Engine) ListBikes(stationID string) []models.Bike {
	e.mu.Lock()
	defer e.mu.Unlock()
	all := e.bikes.list()
	if stationID == "" {
		return all
	}
	var out []models.Bike
	for _, bike := range all {
		if bike.StationID != nil && *bike.StationID == stationID {
			out = append(out, bike)
		}
	}
	return out
}

// AvailableBikes returns the available bikes docked at the station, as a
// snapshot at call time.
func (e *Engine) AvailableBikes(stationID string) ([]models.Bike, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stations.availableBikes(stationID)
}

// Snapshot returns the full persisted state.
func (e *Engine) Snapshot() *models.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() *models.Snapshot {
	snap := &models.Snapshot{
		Bikes:    e.bikes.list(),
		Stations: e.stations.list(),
		Users:    e.accounts.list(),
	}
	for _, user := range snap.Users {
		records, _ := e.accounts.userHistory(user.ID)
		snap.Records = append(snap.Records, records...)
		if record, ok := e.open[user.ID]; ok {
			snap.Records = append(snap.Records, record)
		}
	}
	sort.Slice(snap.Records, func(i, j int) bool {
		return snap.Records[i].StartedAt.Before(snap.Records[j].StartedAt)
	})
	return snap
}

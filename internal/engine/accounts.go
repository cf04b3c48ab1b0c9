package engine

import (
	"sort"
	"time"

	"github.com/unibike/campus-bikeshare/internal/models"
)

// accountStore owns user accounts and their rental history. Balances never
// go negative: a deduction that cannot be covered fails without changing
// state. Not safe for concurrent use; the engine serializes access.
type accountStore struct {
	users   map[string]*models.User
	history map[string][]models.RentalRecord
	now     func() time.Time
}

func newAccountStore(now func() time.Time) *accountStore {
	return &accountStore{
		users:   make(map[string]*models.User),
		history: make(map[string][]models.RentalRecord),
		now:     now,
	}
}

func (s *accountStore) get(id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *accountStore) findByUsername(username string) (*models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

// findByRefreshHash returns the user holding the refresh token hash.
func (s *accountStore) findByRefreshHash(hash string) (*models.User, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	for _, user := range s.users {
		if user.RefreshHash == hash {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *accountStore) add(user *models.User) error {
	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	if _, err := s.findByUsername(user.Username); err == nil {
		return ErrConflict
	}
	s.users[user.ID] = user
	return nil
}

func (s *accountStore) deduct(id string, amount float64) error {
	if amount < 0 {
		return ErrInvalidArgument
	}
	user, err := s.get(id)
	if err != nil {
		return err
	}
	if amount > user.Balance {
		return ErrInsufficientBalance
	}
	user.Balance -= amount
	user.UpdatedAt = s.now()
	return nil
}

func (s *accountStore) credit(id string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidArgument
	}
	user, err := s.get(id)
	if err != nil {
		return err
	}
	user.Balance += amount
	user.UpdatedAt = s.now()
	return nil
}

// beginRental sets the active-rental pointer. A user holds at most one
// active rental at a time.
func (s *accountStore) beginRental(id, bikeID string, start time.Time) error {
	user, err := s.get(id)
	if err != nil {
		return err
	}
	if user.Renting() {
		return ErrConflict
	}
	user.ActiveBikeID = &bikeID
	user.RentalStartedAt = &start
	user.UpdatedAt = s.now()
	return nil
}

// endRental clears the active-rental pointer and returns the prior bike id
// and start time.
func (s *accountStore) endRental(id string) (string, time.Time, error) {
	user, err := s.get(id)
	if err != nil {
		return "", time.Time{}, err
	}
	if !user.Renting() {
		return "", time.Time{}, ErrConflict
	}
	bikeID := *user.ActiveBikeID
	start := *user.RentalStartedAt
	user.ActiveBikeID = nil
	user.RentalStartedAt = nil
	user.UpdatedAt = s.now()
	return bikeID, start, nil
}

// appendHistory adds a sealed record to the user's history. Insertion order
// is chronological order.
func (s *accountStore) appendHistory(id string, record models.RentalRecord) {
	s.history[id] = append(s.history[id], record)
}

func (s *accountStore) userHistory(id string) ([]models.RentalRecord, error) {
	if _, err := s.get(id); err != nil {
		return nil, err
	}
	return append([]models.RentalRecord(nil), s.history[id]...), nil
}

// list returns copies of all users, sorted by username.
func (s *accountStore) list() []models.User {
	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

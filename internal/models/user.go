package models

import (
	"time"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin Role = "admin"
	RoleRider Role = "rider"
)

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleRider:
		return true
	default:
		return false
	}
}

// User represents a rider or administrator account. ActiveBikeID and
// RentalStartedAt are set together while a rental is in progress and are
// nil otherwise.
type User struct {
	ID              string     `bson:"_id" json:"id"`
	Username        string     `bson:"username" json:"username"`
	Email           string     `bson:"email" json:"email"`
	PasswordHash    string     `bson:"password_hash" json:"-"`
	Role            Role       `bson:"role" json:"role"`
	Balance         float64    `bson:"balance" json:"balance"`
	ActiveBikeID    *string    `bson:"active_bike_id,omitempty" json:"active_bike_id,omitempty"`
	RentalStartedAt *time.Time `bson:"rental_started_at,omitempty" json:"rental_started_at,omitempty"`
	IsActive        bool       `bson:"is_active" json:"is_active"`
	RefreshHash     string     `bson:"refresh_hash,omitempty" json:"-"`
	RefreshExpiry   *time.Time `bson:"refresh_expiry,omitempty" json:"-"`
	LastLogin       *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updated_at"`
}

// Renting reports whether the user currently holds an active rental.
func (u *User) Renting() bool {
	return u.ActiveBikeID != nil
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

package model

import (
	"errors"
	"time"
)

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName returns the first name, falling back to the username.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// ValidatePassword checks password strength rules.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// Actor is the authenticated caller of an operation. A nil *Actor is anonymous.
type Actor struct {
	UserID int64
	Admin  bool
}

// CanModify reports whether the actor may toggle, edit or delete the item.
func (a *Actor) CanModify(item *Item) bool {
	if a == nil || item == nil {
		return false
	}
	if a.Admin {
		return true
	}
	return item.ReporterID != nil && *item.ReporterID == a.UserID
}

package model

import (
	"strings"
	"time"
)

// Subscription is an email address opted in to new-item notifications.
type Subscription struct {
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// Subscriptions are keyed by this case-folded form, so "Ana@X.edu" and
// "ana@x.edu" name the same subscription.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

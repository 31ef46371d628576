// Package domain contains core domain types for the shiftbot application.
package domain

import (
	"time"
)

// User represents a known chat user.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

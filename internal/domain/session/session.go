package session

import (
	"errors"
	"time"
)

// Session maps an opaque bearer token to its owning user.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ValidAt reports whether the session is still live at now. A session whose
// expiry equals now is already expired.
func (s Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

var ErrNotFound = errors.New("session not found")

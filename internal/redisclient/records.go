package redisclient

import (
	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/user"
)

// the domain types hide the token and password hash from JSON, so the cache
// uses its own wire shape. The token itself is never stored: the key is its
// fingerprint and Get already holds the raw value.

func fromRecord(rec auth.SessionRecord) cachedRecord {
	return cachedRecord{
		Session: cachedSession{
			ID:        rec.Session.ID,
			UserID:    rec.Session.UserID,
			CreatedAt: rec.Session.CreatedAt,
			ExpiresAt: rec.Session.ExpiresAt,
		},
		User: cachedUser{
			ID:    rec.User.ID,
			Email: rec.User.Email,
			Name:  rec.User.Name,
			Role:  string(rec.User.Role),
		},
	}
}

func toRecord(c cachedRecord, token string) auth.SessionRecord {
	var rec auth.SessionRecord

	rec.Session.ID = c.Session.ID
	rec.Session.Token = token
	rec.Session.UserID = c.Session.UserID
	rec.Session.CreatedAt = c.Session.CreatedAt
	rec.Session.ExpiresAt = c.Session.ExpiresAt

	rec.User = user.User{
		ID:    c.User.ID,
		Email: c.User.Email,
		Name:  c.User.Name,
		Role:  user.Role(c.User.Role),
	}
	return rec
}

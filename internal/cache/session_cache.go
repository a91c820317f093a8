package cache

import (
	"context"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
)

// SessionCache adapts Cache to auth.SessionCache. Keys are token fingerprints.
type SessionCache struct {
	c *Cache
}

func NewSessionCache(ttl time.Duration) *SessionCache {
	return &SessionCache{c: New(ttl)}
}

func (s *SessionCache) Get(_ context.Context, token string) (auth.SessionRecord, bool, error) {
	v, ok := s.c.Get(auth.Fingerprint(token))
	if !ok {
		return auth.SessionRecord{}, false, nil
	}
	rec, ok := v.(auth.SessionRecord)
	return rec, ok, nil
}

func (s *SessionCache) Set(_ context.Context, token string, rec auth.SessionRecord, ttl time.Duration) error {
	s.c.SetWithTTL(auth.Fingerprint(token), rec, ttl)
	return nil
}

func (s *SessionCache) Delete(_ context.Context, token string) error {
	s.c.Delete(auth.Fingerprint(token))
	return nil
}

// EvictUser drops every cached session owned by userID.
func (s *SessionCache) EvictUser(_ context.Context, userID string) {
	s.c.DeleteFunc(func(_ string, v any) bool {
		rec, ok := v.(auth.SessionRecord)
		return ok && rec.User.ID == userID
	})
}

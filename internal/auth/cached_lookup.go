package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/session"
)

// SessionCache stores resolved session records keyed by token. Implementations
// should key on Fingerprint(token), never the raw token.
type SessionCache interface {
	Get(ctx context.Context, token string) (SessionRecord, bool, error)
	Set(ctx context.Context, token string, rec SessionRecord, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

// CachedLookup is a read-through cache over a SessionLookup. Only positive
// results are cached, and an entry never outlives its session.
type CachedLookup struct {
	next  SessionLookup
	cache SessionCache
	ttl   time.Duration

	observe func(result string)
}

func NewCachedLookup(next SessionLookup, cache SessionCache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: cache, ttl: ttl, observe: func(string) {}}
}

// OnLookup registers a hook called with "hit", "miss" or "error" per read.
func (c *CachedLookup) OnLookup(fn func(result string)) *CachedLookup {
	if fn != nil {
		c.observe = fn
	}
	return c
}

func (c *CachedLookup) FindActiveSession(ctx context.Context, token string, now time.Time) (SessionRecord, error) {
	rec, ok, err := c.cache.Get(ctx, token)
	switch {
	case err != nil:
		c.observe("error")
		slog.Default().WarnContext(ctx, "session cache read failed", "err", err)
	case ok:
		c.observe("hit")
	default:
		c.observe("miss")
	}

	if ok {
		if rec.Session.ValidAt(now) {
			return rec, nil
		}
		_ = c.cache.Delete(ctx, token)
		return SessionRecord{}, session.ErrNotFound
	}

	rec, err = c.next.FindActiveSession(ctx, token, now)
	if err != nil {
		return SessionRecord{}, err
	}

	ttl := c.ttl
	if left := rec.Session.ExpiresAt.Sub(now); left < ttl {
		ttl = left
	}

	if ttl > 0 {
		if err := c.cache.Set(ctx, token, rec, ttl); err != nil {
			slog.Default().WarnContext(ctx, "session cache write failed", "err", err)
		}
	}

	return rec, nil
}

package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "fintrack:session:"
	userKeyPrefix    = "fintrack:user-sessions:"
)

// SessionCache stores resolved sessions in redis so several API replicas share
// them. Keys are token fingerprints and values are JSON records.
type SessionCache struct {
	rdb *redis.Client
}

func NewSessionCache(c *Client) *SessionCache {
	return &SessionCache{rdb: c.Raw()}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + auth.Fingerprint(token)
}

// userKey indexes the session keys cached for a user so an account change can
// evict them all.
func userKey(userID string) string {
	return userKeyPrefix + userID
}

type cachedRecord struct {
	Session cachedSession `json:"session"`
	User    cachedUser    `json:"user"`
}

type cachedSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type cachedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (s *SessionCache) Get(ctx context.Context, token string) (auth.SessionRecord, bool, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.SessionRecord{}, false, nil
		}
		return auth.SessionRecord{}, false, err
	}

	var c cachedRecord
	if err := json.Unmarshal(raw, &c); err != nil {
		return auth.SessionRecord{}, false, err
	}

	return toRecord(c, token), true, nil
}

func (s *SessionCache) Set(ctx context.Context, token string, rec auth.SessionRecord, ttl time.Duration) error {
	b, err := json.Marshal(fromRecord(rec))
	if err != nil {
		return err
	}

	key := sessionKey(token)
	idx := userKey(rec.User.ID)

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, b, ttl)
		pipe.SAdd(ctx, idx, key)
		// the index must outlive every key in it: set a TTL on a fresh index,
		// otherwise only ever extend it (redis >= 7)
		pipe.ExpireNX(ctx, idx, ttl)
		pipe.ExpireGT(ctx, idx, ttl)
		return nil
	})
	return err
}

func (s *SessionCache) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKey(token)).Err()
}

// EvictUser deletes every cached session of userID. Failures are logged; the
// entries still expire on their own.
func (s *SessionCache) EvictUser(ctx context.Context, userID string) {
	idx := userKey(userID)

	keys, err := s.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		slog.Default().WarnContext(ctx, "session cache evict failed", "user_id", userID, "err", err)
		return
	}

	if err := s.rdb.Del(ctx, append(keys, idx)...).Err(); err != nil {
		slog.Default().WarnContext(ctx, "session cache evict failed", "user_id", userID, "err", err)
	}
}

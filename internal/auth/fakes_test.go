package auth

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/session"
	"github.com/geocoder89/fintrack/internal/domain/user"
)

// fakeStore implements SessionLookup, SessionWriter and AccountStore over maps.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session
	users    map[string]user.User
	calls    int
	findErr  error
	delay    time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]session.Session),
		users:    make(map[string]user.User),
	}
}

func (f *fakeStore) addSession(token string, u user.User, expiresAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	f.sessions[token] = session.Session{ID: "s-" + token, Token: token, UserID: u.ID, ExpiresAt: expiresAt}
}

func (f *fakeStore) FindActiveSession(ctx context.Context, token string, now time.Time) (SessionRecord, error) {
	f.mu.Lock()
	f.calls++
	delay, findErr := f.delay, f.findErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return SessionRecord{}, ctx.Err()
		}
	}
	if findErr != nil {
		return SessionRecord{}, findErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[token]
	if !ok || !s.ExpiresAt.After(now) {
		return SessionRecord{}, session.ErrNotFound
	}
	return SessionRecord{Session: s, User: f.users[s.UserID]}, nil
}

func (f *fakeStore) CreateSession(_ context.Context, s session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeStore) DeleteSessionsByToken(_ context.Context, token string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[token]; !ok {
		return 0, nil
	}
	delete(f.sessions, token)
	return 1, nil
}

func (f *fakeStore) UpsertTestUser(_ context.Context, u user.User) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[u.ID]; ok {
		existing.Name = u.Name
		existing.Role = u.Role
		f.users[u.ID] = existing
		return existing, nil
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) UpsertProviderUser(_ context.Context, email, name string, defaultRole user.Role) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Email == email {
			if u.Role == "" {
				u.Role = defaultRole
				f.users[id] = u
			}
			return u, nil
		}
	}
	u := user.User{ID: "u-" + email, Email: email, Name: name, Role: defaultRole}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// mapCache is an in-memory SessionCache that ignores ttl.
type mapCache struct {
	mu sync.Mutex
	m  map[string]SessionRecord
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]SessionRecord)}
}

func (c *mapCache) Get(_ context.Context, token string) (SessionRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.m[Fingerprint(token)]
	return rec, ok, nil
}

func (c *mapCache) Set(_ context.Context, token string, rec SessionRecord, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[Fingerprint(token)] = rec
	return nil
}

func (c *mapCache) Delete(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, Fingerprint(token))
	return nil
}

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/session"
	"github.com/geocoder89/fintrack/internal/domain/transaction"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/google/uuid"
)

// Store keeps users, sessions and transactions in process. It satisfies the
// same contracts as the postgres repos and is meant for local runs and tests.
type Store struct {
	mu           sync.RWMutex
	users        map[string]user.User
	sessions     map[string]session.Session // by token
	transactions map[string]transaction.Transaction
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]user.User),
		sessions:     make(map[string]session.Session),
		transactions: make(map[string]transaction.Transaction),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// users

func (s *Store) findByEmailLocked(email string) (user.User, bool) {
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return user.User{}, false
}

func (s *Store) GetByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.findByEmailLocked(user.NormalizeEmail(email))
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetByID(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *Store) List(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Create(_ context.Context, in user.UserInput) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.findByEmailLocked(in.Email); taken {
		return user.User{}, user.ErrEmailAlreadyUsed
	}

	now := time.Now().UTC()
	u := user.User{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Name:      in.Name,
		Role:      user.Role(in.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) Update(_ context.Context, id string, in user.UserInput) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if other, taken := s.findByEmailLocked(in.Email); taken && other.ID != id {
		return user.User{}, user.ErrEmailAlreadyUsed
	}

	u.Name = in.Name
	u.Email = in.Email
	if in.Role != "" {
		u.Role = user.Role(in.Role)
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return u, nil
}

// Delete cascades to the user's sessions and transactions.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.users, id)

	for token, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, token)
		}
	}
	for tid, t := range s.transactions {
		if t.UserID == id {
			delete(s.transactions, tid)
		}
	}
	return nil
}

func (s *Store) UpsertTestUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.findByEmailLocked(u.Email); ok {
		existing.Name = u.Name
		existing.Role = u.Role
		if u.PasswordHash != "" {
			existing.PasswordHash = u.PasswordHash
		}
		existing.UpdatedAt = time.Now().UTC()
		s.users[existing.ID] = existing
		return existing, nil
	}

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpsertProviderUser(_ context.Context, email, name string, defaultRole user.Role) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = user.NormalizeEmail(email)
	now := time.Now().UTC()

	if existing, ok := s.findByEmailLocked(email); ok {
		if existing.Role == "" {
			existing.Role = defaultRole
		}
		existing.UpdatedAt = now
		s.users[existing.ID] = existing
		return existing, nil
	}

	u := user.User{ID: uuid.NewString(), Email: email, Name: name, Role: defaultRole, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	return u, nil
}

// sessions

func (s *Store) FindActiveSession(_ context.Context, token string, now time.Time) (auth.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok || !sess.ValidAt(now) {
		return auth.SessionRecord{}, session.ErrNotFound
	}

	u, ok := s.users[sess.UserID]
	if !ok {
		return auth.SessionRecord{}, session.ErrNotFound
	}

	return auth.SessionRecord{Session: sess, User: u}, nil
}

func (s *Store) CreateSession(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.Token] = sess
	return nil
}

func (s *Store) DeleteSessionsByToken(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return 0, nil
	}
	delete(s.sessions, token)
	return 1, nil
}

func (s *Store) DeleteExpired(_ context.Context, now time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, sess := range s.sessions {
		if limit > 0 && n >= int64(limit) {
			break
		}
		if !sess.ValidAt(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

// transactions

// TransactionsRepo is the transaction view of a Store.
type TransactionsRepo struct {
	s *Store
}

func (s *Store) Transactions() *TransactionsRepo {
	return &TransactionsRepo{s: s}
}

func (s *Store) withOwnerLocked(t transaction.Transaction) transaction.Transaction {
	if u, ok := s.users[t.UserID]; ok {
		t.User = &transaction.Owner{Name: u.Name, Email: u.Email}
	}
	return t
}

func (r *TransactionsRepo) List(_ context.Context, filter transaction.ListFilter) ([]transaction.Transaction, error) {
	s := r.s
	s.mu.RLock()
	out := make([]transaction.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if filter.Match(t) {
			out = append(out, s.withOwnerLocked(t))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return strings.Compare(out[i].ID, out[j].ID) > 0
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (r *TransactionsRepo) GetByID(_ context.Context, id string) (transaction.Transaction, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return s.withOwnerLocked(t), nil
}

func (r *TransactionsRepo) Create(_ context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[t.ID] = t
	return s.withOwnerLocked(t), nil
}

func (r *TransactionsRepo) Update(_ context.Context, id string, in transaction.Input, date time.Time) (transaction.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return transaction.Transaction{}, transaction.ErrNotFound
	}

	t.Amount = in.Amount
	t.Concept = strings.TrimSpace(in.Concept)
	t.Type = transaction.Type(in.Type)
	t.Date = date
	t.UpdatedAt = time.Now().UTC()
	s.transactions[id] = t
	return s.withOwnerLocked(t), nil
}

func (r *TransactionsRepo) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return transaction.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/session"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/google/uuid"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionWriter persists and removes sessions. Deleting an unknown token is
// not an error.
type SessionWriter interface {
	CreateSession(ctx context.Context, s session.Session) error
	DeleteSessionsByToken(ctx context.Context, token string) (int64, error)
}

// AccountStore upserts the accounts a sign-in flow issues sessions for.
type AccountStore interface {
	UpsertTestUser(ctx context.Context, u user.User) (user.User, error)
	// UpsertProviderUser creates the user with defaultRole, or assigns
	// defaultRole to an existing user that has no role. Existing roles stay.
	UpsertProviderUser(ctx context.Context, email, name string, defaultRole user.Role) (user.User, error)
}

// IdentityClaim is an identity asserted by an external provider.
type IdentityClaim struct {
	Provider string `json:"provider"`
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// Issued is a freshly created session and the cookies that should carry it.
type Issued struct {
	Session session.Session
	User    user.User
	Cookies []string
}

func (i Issued) MaxAge(now time.Time) int {
	return int(i.Session.ExpiresAt.Sub(now).Seconds())
}

// SessionIssuer is one credential issuance flow. Every flow produces sessions
// that the same Resolver resolves.
type SessionIssuer interface {
	Issue(ctx context.Context, claim IdentityClaim) (Issued, error)
}

type issuerBase struct {
	sessions SessionWriter
	accounts AccountStore
	ttl      time.Duration
	now      func() time.Time
}

func (b issuerBase) createSession(ctx context.Context, u user.User) (session.Session, error) {
	token, err := NewToken()
	if err != nil {
		return session.Session{}, err
	}

	now := b.now()
	s := session.Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
	}

	if err := b.sessions.CreateSession(ctx, s); err != nil {
		return session.Session{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// TestIssuer signs in the reserved test account. It sets every recognized
// cookie so any client variant finds the session.
type TestIssuer struct {
	issuerBase
	sources TokenSources
}

func NewTestIssuer(sessions SessionWriter, accounts AccountStore, sources TokenSources, ttl time.Duration) *TestIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TestIssuer{
		issuerBase: issuerBase{sessions: sessions, accounts: accounts, ttl: ttl, now: utcNow},
		sources:    sources,
	}
}

// Issue ignores the claim: the test flow always signs in the same account.
func (t *TestIssuer) Issue(ctx context.Context, _ IdentityClaim) (Issued, error) {
	now := t.now()
	u, err := t.accounts.UpsertTestUser(ctx, user.User{
		ID:        user.TestUserID,
		Email:     user.TestUserEmail,
		Name:      user.TestUserName,
		Role:      user.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Issued{}, fmt.Errorf("upsert test user: %w", err)
	}

	s, err := t.createSession(ctx, u)
	if err != nil {
		return Issued{}, err
	}

	return Issued{Session: s, User: u, Cookies: t.sources.Names()}, nil
}

// ProviderIssuer signs in an identity verified by the external OAuth broker.
// A new user, or one without a role, becomes ADMIN. That default is kept for
// compatibility with existing deployments.
type ProviderIssuer struct {
	issuerBase
	cookie string
}

func NewProviderIssuer(sessions SessionWriter, accounts AccountStore, provider string, ttl time.Duration) *ProviderIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &ProviderIssuer{
		issuerBase: issuerBase{sessions: sessions, accounts: accounts, ttl: ttl, now: utcNow},
		cookie:     ProviderTokenCookie(provider),
	}
}

func (p *ProviderIssuer) Issue(ctx context.Context, claim IdentityClaim) (Issued, error) {
	email := user.NormalizeEmail(claim.Email)
	if email == "" {
		return Issued{}, ErrUnauthenticated
	}

	defaultRole := user.RoleAdmin
	if user.IsTestEmail(email) {
		defaultRole = user.RoleUser
	}

	name := claim.Name
	if name == "" {
		name = email
	}

	u, err := p.accounts.UpsertProviderUser(ctx, email, name, defaultRole)
	if err != nil {
		return Issued{}, fmt.Errorf("upsert provider user: %w", err)
	}

	s, err := p.createSession(ctx, u)
	if err != nil {
		return Issued{}, err
	}

	return Issued{Session: s, User: u, Cookies: []string{p.cookie}}, nil
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

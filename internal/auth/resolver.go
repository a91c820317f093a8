package auth

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/session"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/geocoder89/fintrack/internal/auth")

const DefaultStoreTimeout = 300 * time.Millisecond

// SessionRecord is a session joined to its owning user.
type SessionRecord struct {
	Session session.Session `json:"session"`
	User    user.User       `json:"user"`
}

// SessionLookup finds a session by token that is still live at now. Absence
// is reported as session.ErrNotFound, anything else is a fault.
type SessionLookup interface {
	FindActiveSession(ctx context.Context, token string, now time.Time) (SessionRecord, error)
}

// Resolution is what a successful resolve yields.
type Resolution struct {
	Identity Identity
	Session  session.Session
}

type Resolver struct {
	store   SessionLookup
	sources TokenSources
	timeout time.Duration
	now     func() time.Time
}

type ResolverOption func(*Resolver)

func WithStoreTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func NewResolver(store SessionLookup, sources TokenSources, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:   store,
		sources: sources,
		timeout: DefaultStoreTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Sources() TokenSources {
	return r.sources
}

// HasCandidate reports whether the header names any recognized cookie.
func (r *Resolver) HasCandidate(cookieHeader string) bool {
	return r.sources.Present(cookieHeader)
}

func (r *Resolver) Resolve(ctx context.Context, cookieHeader string) (Identity, error) {
	res, err := r.ResolveSession(ctx, cookieHeader)
	if err != nil {
		return Identity{}, err
	}
	return res.Identity, nil
}

func (r *Resolver) ResolveSession(ctx context.Context, cookieHeader string) (Resolution, error) {
	token, _, ok := r.sources.Extract(cookieHeader)
	if !ok {
		return Resolution{}, ErrUnauthenticated
	}
	return r.ResolveToken(ctx, token)
}

// ResolveToken looks the token up under the store timeout. The expiry is
// checked again here so a lagging store or cache can never revive a session.
func (r *Resolver) ResolveToken(ctx context.Context, token string) (Resolution, error) {
	if token == "" {
		return Resolution{}, ErrUnauthenticated
	}

	ctx, span := tracer.Start(ctx, "auth.resolve_session")
	defer span.End()

	now := r.now()

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := r.store.FindActiveSession(lookupCtx, token, now)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			span.SetAttributes(attribute.String("auth.outcome", "unauthenticated"))
			return Resolution{}, ErrUnauthenticated
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "session lookup failed")
		return Resolution{}, &InfraError{Op: "session_lookup", Err: err}
	}

	if !rec.Session.ValidAt(now) || rec.Session.Token != token {
		span.SetAttributes(attribute.String("auth.outcome", "unauthenticated"))
		return Resolution{}, ErrUnauthenticated
	}

	span.SetAttributes(
		attribute.String("auth.outcome", "resolved"),
		attribute.String("auth.role", string(rec.User.Role)),
	)

	return Resolution{
		Identity: IdentityFromUser(rec.User),
		Session:  rec.Session,
	}, nil
}

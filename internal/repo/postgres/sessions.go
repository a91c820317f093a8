package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionsRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewSessionsRepo(pool *pgxpool.Pool, obs Observer) *SessionsRepo {
	return &SessionsRepo{pool: pool, obs: observerOrNoop(obs)}
}

// FindActiveSession is a single-row read; expired rows are filtered in SQL
// and never returned.
func (r *SessionsRepo) FindActiveSession(ctx context.Context, token string, now time.Time) (auth.SessionRecord, error) {
	var rec auth.SessionRecord

	err := r.obs.ObserveDB("sessions.find_active", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT s.id, s.token, s.user_id, s.created_at, s.expires_at,
				u.id, u.email, u.name, u.role, u.created_at, u.updated_at
			FROM sessions s
			JOIN users u ON u.id = s.user_id
			WHERE s.token = $1 AND s.expires_at > $2
			LIMIT 1
		`, token, now).Scan(
			&rec.Session.ID,
			&rec.Session.Token,
			&rec.Session.UserID,
			&rec.Session.CreatedAt,
			&rec.Session.ExpiresAt,
			&rec.User.ID,
			&rec.User.Email,
			&rec.User.Name,
			&rec.User.Role,
			&rec.User.CreatedAt,
			&rec.User.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.SessionRecord{}, session.ErrNotFound
		}
		return auth.SessionRecord{}, err
	}
	return rec, nil
}

func (r *SessionsRepo) CreateSession(ctx context.Context, s session.Session) error {
	return r.obs.ObserveDB("sessions.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO sessions (id, token, user_id, created_at, expires_at)
			VALUES ($1,$2,$3,$4,$5)`,
			s.ID, s.Token, s.UserID, s.CreatedAt, s.ExpiresAt,
		)
		return err
	})
}

func (r *SessionsRepo) DeleteSessionsByToken(ctx context.Context, token string) (int64, error) {
	var n int64

	err := r.obs.ObserveDB("sessions.delete_by_token", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}

// DeleteExpired removes at most limit expired rows per call.
func (r *SessionsRepo) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	var n int64

	err := r.obs.ObserveDB("sessions.delete_expired", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM sessions
			WHERE id IN (
				SELECT id FROM sessions
				WHERE expires_at <= $1
				ORDER BY expires_at
				LIMIT $2
			)
		`, now, limit)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}

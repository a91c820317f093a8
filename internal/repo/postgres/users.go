package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewUsersRepo(pool *pgxpool.Pool, obs Observer) *UsersRepo {
	return &UsersRepo{pool: pool, obs: observerOrNoop(obs)}
}

const userColumns = `id, email, COALESCE(password_hash, ''), name, role, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, arg any) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, arg))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		user.NormalizeEmail(email),
	)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.obs.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UsersRepo) Create(ctx context.Context, in user.UserInput) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Name:      in.Name,
		Role:      user.Role(in.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.obs.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, name, role, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			u.ID, u.Email, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}
	return u, nil
}

// Update replaces name, email and role. An empty role keeps the stored one.
func (r *UsersRepo) Update(ctx context.Context, id string, in user.UserInput) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET name = $2, email = $3, role = COALESCE(NULLIF($4, ''), role), updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, in.Name, in.Email, in.Role,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}
	return u, nil
}

// Delete removes the user; sessions and transactions go with it (ON DELETE CASCADE).
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.obs.ObserveDB("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

// UpsertTestUser creates or resets the reserved account. A non-empty
// PasswordHash replaces the stored one.
func (r *UsersRepo) UpsertTestUser(ctx context.Context, u user.User) (user.User, error) {
	var out user.User

	err := r.obs.ObserveDB("users.upsert_test", func() error {
		var err error
		out, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $6)
			ON CONFLICT (email) DO UPDATE
			SET name = EXCLUDED.name,
				role = EXCLUDED.role,
				password_hash = COALESCE(EXCLUDED.password_hash, users.password_hash),
				updated_at = NOW()
			RETURNING `+userColumns,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role, time.Now().UTC(),
		))
		return err
	})

	return out, err
}

func (r *UsersRepo) UpsertProviderUser(ctx context.Context, email, name string, defaultRole user.Role) (user.User, error) {
	var out user.User

	err := r.obs.ObserveDB("users.upsert_provider", func() error {
		var err error
		out, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (id, email, name, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (email) DO UPDATE
			SET role = COALESCE(NULLIF(users.role, ''), EXCLUDED.role),
				updated_at = NOW()
			RETURNING `+userColumns,
			uuid.NewString(), user.NormalizeEmail(email), name, defaultRole, time.Now().UTC(),
		))
		return err
	})

	return out, err
}

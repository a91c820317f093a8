package db

import (
	"context"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/security"
)

type TestUserUpserter interface {
	UpsertTestUser(ctx context.Context, u user.User) (user.User, error)
}

// EnsureTestUser seeds the reserved test account, always as USER. The password
// enables credential sign-in; an empty password leaves any stored hash alone.
func EnsureTestUser(ctx context.Context, users TestUserUpserter, password string) (user.User, error) {
	var hash string

	if password != "" {
		h, err := security.HashPassword(password)
		if err != nil {
			return user.User{}, err
		}
		hash = h
	}

	now := time.Now().UTC()

	return users.UpsertTestUser(ctx, user.User{
		ID:           user.TestUserID,
		Email:        user.TestUserEmail,
		PasswordHash: hash,
		Name:         user.TestUserName,
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

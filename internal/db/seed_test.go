package db

import (
	"context"
	"testing"

	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/security"
)

type captureUpserter struct {
	got user.User
}

func (c *captureUpserter) UpsertTestUser(_ context.Context, u user.User) (user.User, error) {
	c.got = u
	return u, nil
}

func TestEnsureTestUser(t *testing.T) {
	c := &captureUpserter{}

	u, err := EnsureTestUser(context.Background(), c, "test-password")
	if err != nil {
		t.Fatalf("EnsureTestUser error: %v", err)
	}

	if u.Email != user.TestUserEmail || u.Role != user.RoleUser || u.ID != user.TestUserID {
		t.Fatalf("unexpected seeded user: %+v", u)
	}

	if err := security.CheckPassword(c.got.PasswordHash, "test-password"); err != nil {
		t.Fatalf("expected stored hash to match password: %v", err)
	}
}

func TestEnsureTestUser_NoPassword(t *testing.T) {
	c := &captureUpserter{}

	if _, err := EnsureTestUser(context.Background(), c, ""); err != nil {
		t.Fatalf("EnsureTestUser error: %v", err)
	}

	if c.got.PasswordHash != "" {
		t.Fatalf("expected empty hash, got %q", c.got.PasswordHash)
	}
}

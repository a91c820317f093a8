package auth

import (
	"testing"

	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTestCredentials(t *testing.T) {
	hash, err := security.HashPassword("test-password")
	require.NoError(t, err)

	u := user.User{ID: user.TestUserID, Email: user.TestUserEmail, PasswordHash: hash}

	assert.NoError(t, CheckTestCredentials(u, "Test-User@example.com", "test-password"))
	assert.ErrorIs(t, CheckTestCredentials(u, user.TestUserEmail, "nope"), ErrUnauthenticated)
	assert.ErrorIs(t, CheckTestCredentials(u, "other@example.com", "test-password"), ErrUnauthenticated)

	noHash := u
	noHash.PasswordHash = ""
	assert.ErrorIs(t, CheckTestCredentials(noHash, user.TestUserEmail, "test-password"), ErrUnauthenticated)
}

package auth

import (
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/security"
)

// CheckTestCredentials accepts only the reserved test account with a matching
// password hash.
func CheckTestCredentials(u user.User, email, password string) error {
	if !user.IsTestEmail(user.NormalizeEmail(email)) || !u.IsTestAccount() {
		return ErrUnauthenticated
	}
	if u.PasswordHash == "" {
		return ErrUnauthenticated
	}
	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return ErrUnauthenticated
	}
	return nil
}

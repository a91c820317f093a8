package auth

import "github.com/geocoder89/fintrack/internal/domain/user"

// Identity is the user a valid session resolves to.
type Identity struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  user.Role `json:"role"`
}

// EffectiveRole applies the test-account override: the reserved address is
// always USER, whatever is stored.
func EffectiveRole(email string, stored user.Role) user.Role {
	if user.IsTestEmail(email) {
		return user.RoleUser
	}
	return stored
}

func IdentityFromUser(u user.User) Identity {
	return Identity{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  EffectiveRole(u.Email, u.Role),
	}
}

package auth

import "github.com/geocoder89/fintrack/internal/domain/user"

type DenyReason string

const (
	NotAuthenticated DenyReason = "not_authenticated"
	InsufficientRole DenyReason = "insufficient_role"
)

// Decision is the outcome of Authorize. UserRole and RequiredRole are only
// set for InsufficientRole.
type Decision struct {
	Allowed      bool
	Reason       DenyReason
	UserRole     user.Role
	RequiredRole user.Role
}

func Allow() Decision {
	return Decision{Allowed: true}
}

// Authorize is pure. A nil identity is unauthenticated; an empty required role
// admits any authenticated identity.
func Authorize(id *Identity, required user.Role) Decision {
	if id == nil {
		return Decision{Reason: NotAuthenticated}
	}

	if required == "" {
		return Allow()
	}

	if id.Role != required {
		return Decision{
			Reason:       InsufficientRole,
			UserRole:     id.Role,
			RequiredRole: required,
		}
	}

	return Allow()
}

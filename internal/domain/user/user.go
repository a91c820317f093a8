package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// The seeded test account. It can never be deleted and always acts as USER.
const (
	TestUserID    = "test-user-id"
	TestUserEmail = "test-user@example.com"
	TestUserName  = "Usuario de Prueba"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) IsTestAccount() bool {
	return IsTestEmail(u.Email)
}

func IsTestEmail(email string) bool {
	return email == TestUserEmail
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserInput is the body accepted by the admin create and update endpoints.
type UserInput struct {
	Name  string `json:"name" binding:"required,trimmed_min=2"`
	Email string `json:"email" binding:"required,contains=@"`
	Role  string `json:"role" binding:"omitempty,oneof=USER ADMIN"`
}

// Normalized trims the name, lower-cases the email and applies the default role.
func (in UserInput) Normalized(defaultRole Role) UserInput {
	out := UserInput{
		Name:  strings.TrimSpace(in.Name),
		Email: NormalizeEmail(in.Email),
		Role:  in.Role,
	}
	if out.Role == "" {
		out.Role = string(defaultRole)
	}
	return out
}

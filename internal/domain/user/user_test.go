package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserInput_Normalized(t *testing.T) {
	out := UserInput{Name: "  Juan Pérez ", Email: " Juan@Example.COM"}.Normalized(RoleUser)

	assert.Equal(t, "Juan Pérez", out.Name)
	assert.Equal(t, "juan@example.com", out.Email)
	assert.Equal(t, "USER", out.Role)
}

func TestIsTestEmail(t *testing.T) {
	assert.True(t, IsTestEmail("test-user@example.com"))
	assert.False(t, IsTestEmail("Test-User@example.com"))
	assert.True(t, User{Email: TestUserEmail}.IsTestAccount())
}

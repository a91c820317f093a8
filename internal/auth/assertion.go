package auth

import (
	"errors"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidAssertion = errors.New("invalid identity assertion")

type assertionClaims struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// AssertionVerifier checks identity assertions handed over by the OAuth broker
// after its handshake: HS256 tokens signed with a shared secret.
type AssertionVerifier struct {
	secret []byte
	leeway time.Duration
}

func NewAssertionVerifier(secret string) *AssertionVerifier {
	return &AssertionVerifier{secret: []byte(secret), leeway: 30 * time.Second}
}

// Enabled is false when no shared secret is configured.
func (v *AssertionVerifier) Enabled() bool {
	return len(v.secret) > 0
}

func (v *AssertionVerifier) Verify(raw string) (IdentityClaim, error) {
	if !v.Enabled() || raw == "" {
		return IdentityClaim{}, ErrInvalidAssertion
	}

	token, err := jwt.ParseWithClaims(raw, &assertionClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	},
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return IdentityClaim{}, errors.Join(ErrInvalidAssertion, err)
	}

	claims, ok := token.Claims.(*assertionClaims)
	if !ok || !token.Valid {
		return IdentityClaim{}, ErrInvalidAssertion
	}

	email := user.NormalizeEmail(claims.Email)
	if email == "" {
		return IdentityClaim{}, ErrInvalidAssertion
	}

	return IdentityClaim{
		Provider: claims.Provider,
		Subject:  claims.Subject,
		Email:    email,
		Name:     claims.Name,
	}, nil
}

// Sign mints an assertion. The broker normally does this; it is exposed for
// local development and tests.
func (v *AssertionVerifier) Sign(claim IdentityClaim, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := assertionClaims{
		Provider: claim.Provider,
		Email:    claim.Email,
		Name:     claim.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claim.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	CustomTokenCookie  = "custom-auth-token"
	GenericTokenCookie = "session-token"
	DefaultProvider    = "better-auth"
)

// ProviderTokenCookie returns the framework-issued cookie name for a provider
// prefix, e.g. "better-auth.session-token".
func ProviderTokenCookie(provider string) string {
	if provider == "" {
		provider = DefaultProvider
	}
	return provider + "." + GenericTokenCookie
}

// ProviderCSRFCookie is the provider framework's CSRF cookie. It is never read
// here, only cleared when the provider cookies are reset.
func ProviderCSRFCookie(provider string) string {
	if provider == "" {
		provider = DefaultProvider
	}
	return provider + ".csrf-token"
}

// TokenSource is one cookie a session token may be carried in.
type TokenSource struct {
	Cookie string
}

func (s TokenSource) extract(jar map[string]string) (string, bool) {
	v := strings.TrimSpace(jar[s.Cookie])
	return v, v != ""
}

// TokenSources is a prioritized list: the first source holding a non-empty
// value wins.
type TokenSources []TokenSource

func DefaultTokenSources(provider string) TokenSources {
	return TokenSources{
		{Cookie: CustomTokenCookie},
		{Cookie: ProviderTokenCookie(provider)},
		{Cookie: GenericTokenCookie},
	}
}

func (ts TokenSources) Names() []string {
	names := make([]string, 0, len(ts))
	for _, s := range ts {
		names = append(names, s.Cookie)
	}
	return names
}

// Present is the cheap pre-check run before any store access: it only looks
// for a recognized cookie name anywhere in the raw header.
func (ts TokenSources) Present(cookieHeader string) bool {
	if cookieHeader == "" {
		return false
	}
	for _, s := range ts {
		if strings.Contains(cookieHeader, s.Cookie) {
			return true
		}
	}
	return false
}

// Extract returns the token and the cookie it was found in.
func (ts TokenSources) Extract(cookieHeader string) (token string, cookie string, ok bool) {
	if cookieHeader == "" {
		return "", "", false
	}

	jar := parseCookieHeader(cookieHeader)

	for _, s := range ts {
		if v, found := s.extract(jar); found {
			return v, s.Cookie, true
		}
	}
	return "", "", false
}

// parseCookieHeader keeps the first value per name and skips malformed pairs.
func parseCookieHeader(header string) map[string]string {
	req := http.Request{Header: http.Header{"Cookie": {header}}}

	jar := make(map[string]string)
	for _, c := range req.Cookies() {
		if _, seen := jar[c.Name]; !seen {
			jar[c.Name] = c.Value
		}
	}
	return jar
}

// Fingerprint is a stable, non-reversible key for a token. Raw tokens never
// leave the request path as cache keys or log fields.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

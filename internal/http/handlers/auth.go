package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/config"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type SessionResolver interface {
	ResolveSession(ctx context.Context, cookieHeader string) (auth.Resolution, error)
	Sources() auth.TokenSources
}

type SessionRevoker interface {
	Revoke(ctx context.Context, token string) error
}

type AssertionVerifier interface {
	Verify(raw string) (auth.IdentityClaim, error)
}

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type AuthDeps struct {
	Resolver       SessionResolver
	TestIssuer     auth.SessionIssuer
	ProviderIssuer auth.SessionIssuer
	Verifier       AssertionVerifier
	Revoker        SessionRevoker
	Users          UserReader
	ProviderPrefix string
	SecureCookies  bool
}

type AuthHandler struct {
	resolver       SessionResolver
	testIssuer     auth.SessionIssuer
	providerIssuer auth.SessionIssuer
	verifier       AssertionVerifier
	revoker        SessionRevoker
	users          UserReader
	provider       string
	secure         bool
	now            func() time.Time
}

func NewAuthHandler(d AuthDeps) *AuthHandler {
	return &AuthHandler{
		resolver:       d.Resolver,
		testIssuer:     d.TestIssuer,
		providerIssuer: d.ProviderIssuer,
		verifier:       d.Verifier,
		revoker:        d.Revoker,
		users:          d.Users,
		provider:       d.ProviderPrefix,
		secure:         d.SecureCookies,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CheckSession is the status endpoint polled by clients. A missing or invalid
// session is a normal 200 answer; only store faults are errors.
func (h *AuthHandler) CheckSession(ctx *gin.Context) {
	sources := h.resolver.Sources()
	header := ctx.GetHeader("Cookie")

	if _, _, ok := sources.Extract(header); !ok {
		ctx.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"message":       "No hay sesión activa",
		})
		return
	}

	res, err := h.resolver.ResolveSession(ctx.Request.Context(), header)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			ctx.JSON(http.StatusOK, gin.H{
				"authenticated": false,
				"message":       "Sesión no válida",
			})
			return
		}

		slog.Default().ErrorContext(ctx.Request.Context(), "check_session_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          res.Identity,
		"session": gin.H{
			"id":        res.Session.ID,
			"expiresAt": res.Session.ExpiresAt,
		},
	})
}

// TestLogin signs in the reserved test account and redirects home.
func (h *AuthHandler) TestLogin(ctx *gin.Context) {
	issued, ok := h.issue(ctx, h.testIssuer, auth.IdentityClaim{})
	if !ok {
		return
	}

	h.setSessionCookies(ctx, issued)
	ctx.Redirect(http.StatusFound, "/")
}

// TestUser ensures the test account exists and answers with it as JSON.
func (h *AuthHandler) TestUser(ctx *gin.Context) {
	issued, ok := h.issue(ctx, h.testIssuer, auth.IdentityClaim{})
	if !ok {
		return
	}

	h.setSessionCookies(ctx, issued)
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Usuario de prueba configurado correctamente",
		"user":    auth.IdentityFromUser(issued.User),
	})
}

// SignInCredentials accepts email and password for the test account only.
func (h *AuthHandler) SignInCredentials(ctx *gin.Context) {
	var req CredentialsRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, user.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		slog.Default().ErrorContext(ctx.Request.Context(), "credentials_lookup_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	if err != nil || auth.CheckTestCredentials(u, req.Email, req.Password) != nil {
		RespondUnauthorized(ctx, "Email o contraseña incorrectos")
		return
	}

	issued, ok := h.issue(ctx, h.testIssuer, auth.IdentityClaim{})
	if !ok {
		return
	}

	h.setSessionCookies(ctx, issued)
	ctx.JSON(http.StatusOK, gin.H{"user": auth.IdentityFromUser(issued.User)})
}

// ProviderCallback completes an OAuth sign-in. The broker has already done the
// handshake and passes the identity as a signed assertion.
func (h *AuthHandler) ProviderCallback(ctx *gin.Context) {
	claim, err := h.verifier.Verify(ctx.Query("assertion"))
	if err != nil {
		slog.Default().WarnContext(ctx.Request.Context(), "provider_assertion_rejected",
			"provider", ctx.Param("provider"), "err", err)
		RespondUnauthorized(ctx, "No autenticado")
		return
	}

	if claim.Provider == "" {
		claim.Provider = ctx.Param("provider")
	}

	issued, ok := h.issue(ctx, h.providerIssuer, claim)
	if !ok {
		return
	}

	h.setSessionCookies(ctx, issued)
	ctx.Redirect(http.StatusFound, "/")
}

// Logout deletes the session named by the request cookies, clears every
// session cookie and redirects home. It succeeds without a session too.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	sources := h.resolver.Sources()

	if token, _, ok := sources.Extract(ctx.GetHeader("Cookie")); ok {
		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		if err := h.revoker.Revoke(cctx, token); err != nil {
			slog.Default().ErrorContext(ctx.Request.Context(), "logout_failed", "err", err)
			RespondInternal(ctx, "Error interno del servidor")
			return
		}
	}

	for _, name := range sources.Names() {
		h.setCookie(ctx, name, "", -1)
	}
	ctx.Redirect(http.StatusFound, "/")
}

// ForceSessionRefresh clears the provider cookies of a live session so the
// provider issues fresh ones on the next sign-in round trip. The stored
// session and the other cookies are left alone.
func (h *AuthHandler) ForceSessionRefresh(ctx *gin.Context) {
	_, err := h.resolver.ResolveSession(ctx.Request.Context(), ctx.GetHeader("Cookie"))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			RespondUnauthorized(ctx, "No hay sesión activa")
			return
		}

		slog.Default().ErrorContext(ctx.Request.Context(), "force_session_refresh_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	h.setCookie(ctx, auth.ProviderTokenCookie(h.provider), "", -1)
	h.setCookie(ctx, auth.ProviderCSRFCookie(h.provider), "", -1)
	ctx.Redirect(http.StatusFound, "/")
}

// Me returns the identity resolved by the auth middleware.
func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "No autenticado")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": id})
}

func (h *AuthHandler) issue(ctx *gin.Context, issuer auth.SessionIssuer, claim auth.IdentityClaim) (auth.Issued, bool) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	issued, err := issuer.Issue(cctx, claim)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			RespondUnauthorized(ctx, "No autenticado")
			return auth.Issued{}, false
		}

		slog.Default().ErrorContext(ctx.Request.Context(), "session_issue_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return auth.Issued{}, false
	}

	slog.Default().InfoContext(ctx.Request.Context(), "session_issued",
		"user_id", issued.User.ID, "session_id", issued.Session.ID)
	return issued, true
}

func (h *AuthHandler) setSessionCookies(ctx *gin.Context, issued auth.Issued) {
	maxAge := issued.MaxAge(h.now())
	for _, name := range issued.Cookies {
		h.setCookie(ctx, name, issued.Session.Token, maxAge)
	}
}

// setCookie writes an HttpOnly, SameSite=Lax cookie on "/". A negative maxAge
// clears it (Max-Age=0 on the wire).
func (h *AuthHandler) setCookie(ctx *gin.Context, name, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(name, value, maxAge, "/", "", h.secure, true)
}

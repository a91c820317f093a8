package middlewares_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/fintrack/internal/actorctx"
	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	hasCandidateFn func(header string) bool
	resolveFn      func(ctx context.Context, header string) (auth.Identity, error)
	resolveCalls   int
}

func (f *fakeResolver) HasCandidate(header string) bool {
	if f.hasCandidateFn != nil {
		return f.hasCandidateFn(header)
	}
	return auth.DefaultTokenSources("").Present(header)
}

func (f *fakeResolver) Resolve(ctx context.Context, header string) (auth.Identity, error) {
	f.resolveCalls++
	if f.resolveFn != nil {
		return f.resolveFn(ctx, header)
	}
	return auth.Identity{}, auth.ErrUnauthenticated
}

type recordingObserver struct {
	results []string
}

func (o *recordingObserver) ObserveAuth(_, result string) {
	o.results = append(o.results, result)
}

func newGuardedRouter(m *middlewares.AuthMiddleware, required user.Role) *gin.Engine {
	r := gin.New()
	r.GET("/guarded", m.Require(required), func(c *gin.Context) {
		id, _ := middlewares.IdentityFromContext(c)
		ctxID, _ := actorctx.IdentityFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id.ID, "ctxId": ctxID.ID})
	})
	return r
}

func doGet(r http.Handler, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v body=%s", err, w.Body.String())
	}
	return body
}

func TestRequire_NoCookieRejectsWithoutResolving(t *testing.T) {
	res := &fakeResolver{}
	r := newGuardedRouter(middlewares.NewAuthMiddleware(res, nil), "")

	for _, cookie := range []string{"", "theme=dark; other=1"} {
		w := doGet(r, cookie)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("cookie %q: got status %d, want 401", cookie, w.Code)
		}
		if got := decodeBody(t, w)["error"]; got != "No autenticado" {
			t.Fatalf("unexpected error message %v", got)
		}
	}

	if res.resolveCalls != 0 {
		t.Fatalf("resolver should not be called, got %d calls", res.resolveCalls)
	}
}

func TestRequire_AdminAllowedAndIdentityPropagated(t *testing.T) {
	res := &fakeResolver{
		resolveFn: func(ctx context.Context, header string) (auth.Identity, error) {
			return auth.Identity{ID: "u1", Email: "admin@example.com", Role: user.RoleAdmin}, nil
		},
	}
	obs := &recordingObserver{}
	r := newGuardedRouter(middlewares.NewAuthMiddleware(res, obs), user.RoleAdmin)

	w := doGet(r, "custom-auth-token=t1")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["id"] != "u1" || body["ctxId"] != "u1" {
		t.Fatalf("identity not propagated: %v", body)
	}
	if len(obs.results) != 1 || obs.results[0] != "allowed" {
		t.Fatalf("unexpected observations: %v", obs.results)
	}
}

func TestRequire_InsufficientRole(t *testing.T) {
	res := &fakeResolver{
		resolveFn: func(ctx context.Context, header string) (auth.Identity, error) {
			return auth.Identity{ID: "u2", Role: user.RoleUser}, nil
		},
	}
	r := newGuardedRouter(middlewares.NewAuthMiddleware(res, nil), user.RoleAdmin)

	w := doGet(r, "better-auth.session-token=t2")

	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403", w.Code)
	}

	body := decodeBody(t, w)
	if body["error"] != "Acceso denegado. Rol requerido: ADMIN" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
	if body["userRole"] != "USER" || body["requiredRole"] != "ADMIN" {
		t.Fatalf("unexpected roles in body: %v", body)
	}
}

func TestRequire_UnauthenticatedSession(t *testing.T) {
	res := &fakeResolver{}
	r := newGuardedRouter(middlewares.NewAuthMiddleware(res, nil), "")

	w := doGet(r, "session-token=expired")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
	if got := decodeBody(t, w)["error"]; got != "No autenticado" {
		t.Fatalf("unexpected error message %v", got)
	}
	if res.resolveCalls != 1 {
		t.Fatalf("expected one resolve call, got %d", res.resolveCalls)
	}
}

func TestRequire_FailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(ctx context.Context, header string) (auth.Identity, error)
	}{
		{
			name: "store fault",
			resolve: func(ctx context.Context, header string) (auth.Identity, error) {
				return auth.Identity{}, &auth.InfraError{Op: "session_lookup", Err: errors.New("db down")}
			},
		},
		{
			name: "timeout",
			resolve: func(ctx context.Context, header string) (auth.Identity, error) {
				return auth.Identity{}, &auth.InfraError{Op: "session_lookup", Err: context.DeadlineExceeded}
			},
		},
		{
			name: "panic",
			resolve: func(ctx context.Context, header string) (auth.Identity, error) {
				panic("boom")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obs := &recordingObserver{}
			res := &fakeResolver{resolveFn: tc.resolve}
			r := newGuardedRouter(middlewares.NewAuthMiddleware(res, obs), user.RoleUser)

			w := doGet(r, "custom-auth-token=t")

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("got status %d, want 401", w.Code)
			}
			if got := decodeBody(t, w)["error"]; got != "Error de autenticación" {
				t.Fatalf("unexpected error message %v", got)
			}
			if len(obs.results) != 1 || obs.results[0] != "error" {
				t.Fatalf("unexpected observations: %v", obs.results)
			}
		})
	}
}

func TestRequireRole_WithoutIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/admin", middlewares.RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/transaction"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/http/handlers"
	"github.com/geocoder89/fintrack/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake repository implementation of handlers.TransactionStore

type fakeTransactionsRepo struct {
	listFn   func(ctx context.Context, filter transaction.ListFilter) ([]transaction.Transaction, error)
	getFn    func(ctx context.Context, id string) (transaction.Transaction, error)
	createFn func(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error)
	updateFn func(ctx context.Context, id string, in transaction.Input, date time.Time) (transaction.Transaction, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeTransactionsRepo) List(ctx context.Context, filter transaction.ListFilter) ([]transaction.Transaction, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeTransactionsRepo) GetByID(ctx context.Context, id string) (transaction.Transaction, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return transaction.Transaction{}, nil
}

func (f *fakeTransactionsRepo) Create(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	if f.createFn != nil {
		return f.createFn(ctx, t)
	}
	return t, nil
}

func (f *fakeTransactionsRepo) Update(ctx context.Context, id string, in transaction.Input, date time.Time) (transaction.Transaction, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, in, date)
	}
	return transaction.Transaction{ID: id}, nil
}

func (f *fakeTransactionsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

// withIdentity stands in for the auth middleware.
func withIdentity(role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		middlewares.SetIdentity(c, auth.Identity{ID: "u-" + string(role), Email: "x@example.com", Role: role})
		c.Next()
	}
}

func setupRouter(method, path string, role user.Role, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	if role != "" {
		r.Handle(method, path, withIdentity(role), h)
	} else {
		r.Handle(method, path, h)
	}
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTransactionHandler(t *testing.T) {
	valid := `{"amount":150.25,"concept":"Salario","type":"INCOME","date":"2025-05-01"}`

	tests := []struct {
		name           string
		role           user.Role
		body           string
		repoSetUp      func(*fakeTransactionsRepo)
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "success",
			role:           user.RoleAdmin,
			body:           valid,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "user role is forbidden",
			role:           user.RoleUser,
			body:           valid,
			wantStatusCode: http.StatusForbidden,
			wantError:      "Acceso denegado. Solo los administradores pueden crear transacciones.",
		},
		{
			name:           "no identity",
			body:           valid,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "No autenticado",
		},
		{
			name:           "missing fields",
			role:           user.RoleAdmin,
			body:           `{"amount":10,"type":"INCOME"}`,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Todos los campos son requeridos",
		},
		{
			name:           "bad type",
			role:           user.RoleAdmin,
			body:           `{"amount":10,"concept":"Cafe","type":"income","date":"2025-05-01"}`,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Tipo debe ser INCOME o EXPENSE",
		},
		{
			name:           "negative amount",
			role:           user.RoleAdmin,
			body:           `{"amount":-5,"concept":"Cafe","type":"EXPENSE","date":"2025-05-01"}`,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "El monto debe ser mayor a 0",
		},
		{
			name: "repo error",
			role: user.RoleAdmin,
			body: valid,
			repoSetUp: func(f *fakeTransactionsRepo) {
				f.createFn = func(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
					return transaction.Transaction{}, errors.New("db down")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeTransactionsRepo{}
			if tc.repoSetUp != nil {
				tc.repoSetUp(repo)
			}

			h := handlers.NewTransactionsHandler(repo)
			r := setupRouter(http.MethodPost, "/transactions", tc.role, h.Create)

			w := serve(r, http.MethodPost, "/transactions", tc.body)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}

			if tc.wantError != "" {
				var resp map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp["error"] != tc.wantError {
					t.Fatalf("got error %v, want %q", resp["error"], tc.wantError)
				}
			}
		})
	}
}

func TestCreateTransactionHandler_StampsCaller(t *testing.T) {
	var got transaction.Transaction
	repo := &fakeTransactionsRepo{
		createFn: func(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
			got = t
			return t, nil
		},
	}

	h := handlers.NewTransactionsHandler(repo)
	r := setupRouter(http.MethodPost, "/transactions", user.RoleAdmin, h.Create)

	w := serve(r, http.MethodPost, "/transactions", `{"amount":"12.5","concept":" Almuerzo ","type":"EXPENSE","date":"2025-05-01"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d", w.Code)
	}

	if got.UserID != "u-ADMIN" || got.Concept != "Almuerzo" || got.Amount.Cents() != 1250 {
		t.Fatalf("unexpected transaction passed to repo: %+v", got)
	}
}

func TestListTransactionsHandler_Filters(t *testing.T) {
	var seen transaction.ListFilter
	repo := &fakeTransactionsRepo{
		listFn: func(ctx context.Context, filter transaction.ListFilter) ([]transaction.Transaction, error) {
			seen = filter
			return nil, nil
		},
	}

	h := handlers.NewTransactionsHandler(repo)
	r := setupRouter(http.MethodGet, "/transactions", user.RoleUser, h.List)

	w := serve(r, http.MethodGet, "/transactions?type=EXPENSE&q=cafe&from=2025-01-01&to=2025-01-31", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if w.Body.String() != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}

	if seen.Type == nil || *seen.Type != transaction.TypeExpense {
		t.Fatalf("type filter not applied: %+v", seen)
	}
	if seen.Query == nil || *seen.Query != "cafe" {
		t.Fatalf("query filter not applied: %+v", seen)
	}
	if seen.To == nil || seen.To.Day() != 31 || seen.To.Hour() != 23 {
		t.Fatalf("expected inclusive end of day, got %v", seen.To)
	}

	for _, bad := range []string{"?type=OTHER", "?from=yesterday", "?from=2025-02-01&to=2025-01-01"} {
		w := serve(r, http.MethodGet, "/transactions"+bad, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: got status %d, want 400", bad, w.Code)
		}
	}
}

func TestUpdateAndDeleteTransactionHandler_NotFound(t *testing.T) {
	repo := &fakeTransactionsRepo{
		updateFn: func(ctx context.Context, id string, in transaction.Input, date time.Time) (transaction.Transaction, error) {
			return transaction.Transaction{}, transaction.ErrNotFound
		},
		deleteFn: func(ctx context.Context, id string) error {
			return transaction.ErrNotFound
		},
	}
	h := handlers.NewTransactionsHandler(repo)

	r := gin.New()
	r.PUT("/transactions/:id", withIdentity(user.RoleAdmin), h.Update)
	r.DELETE("/transactions/:id", withIdentity(user.RoleAdmin), h.Delete)

	w := serve(r, http.MethodPut, "/transactions/nope", `{"amount":1,"concept":"Algo","type":"INCOME","date":"2025-05-01"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("update: got %d, want 404", w.Code)
	}

	w = serve(r, http.MethodDelete, "/transactions/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete: got %d, want 404", w.Code)
	}
}

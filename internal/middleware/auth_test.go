package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rudrakv/storefront-api/internal/auth"
	"github.com/rudrakv/storefront-api/internal/metrics"
	"github.com/rudrakv/storefront-api/internal/model"
)

const authTestSecret = "middleware-test-secret"

type fakeUserSource struct {
	user model.User
	err  error
}

func (f *fakeUserSource) GetByID(ctx context.Context, id uint64) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	return f.user, nil
}

func activeUser(version int64) model.User {
	return model.User{
		ID:           42,
		Role:         model.RoleCustomer,
		Status:       model.StatusActive,
		TokenVersion: version,
	}
}

func signTestToken(t *testing.T, version int64) string {
	t.Helper()
	token, _, err := auth.SignToken(authTestSecret, auth.Claims{
		UserID:       42,
		Role:         model.RoleCustomer,
		TokenVersion: version,
	}, time.Hour)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}
	return token
}

// runAuth sends a request through RequireAuth into a handler that
// records whether it ran and what principal was injected.
func runAuth(t *testing.T, users UserSource, header string, roles ...string) (*httptest.ResponseRecorder, bool, uint64, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	var gotID uint64
	var gotRole string
	h := RequireAuth(authTestSecret, users, roles...)(func(c echo.Context) error {
		called = true
		gotID, _ = c.Get("user_id").(uint64)
		gotRole, _ = c.Get("role").(string)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, called, gotID, gotRole
}

func TestRequireAuthHappyPath(t *testing.T) {
	users := &fakeUserSource{user: activeUser(1)}
	rec, called, id, role := runAuth(t, users, "Bearer "+signTestToken(t, 1))
	if !called {
		t.Fatalf("expected the handler to run, got status %d: %s", rec.Code, rec.Body.String())
	}
	if id != 42 || role != model.RoleCustomer {
		t.Fatalf("expected principal 42/customer, got %d/%s", id, role)
	}
}

func TestRequireAuthMissingHeader(t *testing.T) {
	users := &fakeUserSource{user: activeUser(1)}
	for _, header := range []string{"", "Basic abc", "bearer lowercase", signTestToken(t, 1)} {
		rec, called, _, _ := runAuth(t, users, header)
		if called || rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for header %q, got %d (called=%v)", header, rec.Code, called)
		}
		if !strings.Contains(rec.Body.String(), "missing bearer token") {
			t.Fatalf("unexpected body for header %q: %s", header, rec.Body.String())
		}
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	users := &fakeUserSource{user: activeUser(1)}
	rec, called, _, _ := runAuth(t, users, "Bearer not.a.token")
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (called=%v)", rec.Code, called)
	}
	if !strings.Contains(rec.Body.String(), "invalid token") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	token, _, err := auth.SignToken(authTestSecret, auth.Claims{UserID: 42, TokenVersion: 1}, -time.Minute)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}
	rec, called, _, _ := runAuth(t, &fakeUserSource{user: activeUser(1)}, "Bearer "+token)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (called=%v)", rec.Code, called)
	}
	if !strings.Contains(rec.Body.String(), "token expired") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequireAuthAccountGone(t *testing.T) {
	users := &fakeUserSource{err: sql.ErrNoRows}
	rec, called, _, _ := runAuth(t, users, "Bearer "+signTestToken(t, 1))
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (called=%v)", rec.Code, called)
	}
	if !strings.Contains(rec.Body.String(), "account no longer exists") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequireAuthStoreFaultFailsClosed(t *testing.T) {
	users := &fakeUserSource{err: errors.New("connection refused")}
	rec, called, _, _ := runAuth(t, users, "Bearer "+signTestToken(t, 1))
	if called || rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on a store fault, got %d (called=%v)", rec.Code, called)
	}
}

func TestRequireAuthSuspendedAccount(t *testing.T) {
	u := activeUser(1)
	u.Status = model.StatusBlocked
	rec, called, _, _ := runAuth(t, &fakeUserSource{user: u}, "Bearer "+signTestToken(t, 1))
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (called=%v)", rec.Code, called)
	}
	if !strings.Contains(rec.Body.String(), "account suspended") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequireAuthRevocationCounter(t *testing.T) {
	// A token carrying the current counter passes.
	rec, called, _, _ := runAuth(t, &fakeUserSource{user: activeUser(2)}, "Bearer "+signTestToken(t, 2))
	if !called {
		t.Fatalf("expected a current-counter token to pass, got %d: %s", rec.Code, rec.Body.String())
	}

	// A token minted before a counter bump is rejected.
	rec, called, _, _ = runAuth(t, &fakeUserSource{user: activeUser(2)}, "Bearer "+signTestToken(t, 1))
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected a stale token to be rejected, got %d (called=%v)", rec.Code, called)
	}
	if !strings.Contains(rec.Body.String(), "session expired") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequireAuthLegacyToken(t *testing.T) {
	// Legacy tokens decode with version 0 and stay valid only while the
	// account has never been revoked.
	legacy := signTestToken(t, 0)

	rec, called, _, _ := runAuth(t, &fakeUserSource{user: activeUser(1)}, "Bearer "+legacy)
	if !called {
		t.Fatalf("expected a legacy token to pass on an unrevoked account, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, called, _, _ = runAuth(t, &fakeUserSource{user: activeUser(2)}, "Bearer "+legacy)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected a legacy token to fail after revocation, got %d (called=%v)", rec.Code, called)
	}
}

func TestRequireAuthRoleGate(t *testing.T) {
	users := &fakeUserSource{user: activeUser(1)}
	token := "Bearer " + signTestToken(t, 1)

	rec, called, _, _ := runAuth(t, users, token, model.RoleAdmin, model.RoleRider)
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a customer on a staff route, got %d (called=%v)", rec.Code, called)
	}

	_, called, _, _ = runAuth(t, users, token, model.RoleCustomer)
	if !called {
		t.Fatal("expected a customer to pass a customer route")
	}
}

func TestRequireAuthRejectionMetric(t *testing.T) {
	// Credential rejections increment the counter; service faults
	// (503) must not, or the metric conflates outages with abuse.
	missing := testutil.ToFloat64(metrics.AuthRejections.WithLabelValues("missing bearer token"))
	fault := testutil.ToFloat64(metrics.AuthRejections.WithLabelValues("auth check failed"))

	runAuth(t, &fakeUserSource{user: activeUser(1)}, "")
	runAuth(t, &fakeUserSource{err: errors.New("connection refused")}, "Bearer "+signTestToken(t, 1))

	if got := testutil.ToFloat64(metrics.AuthRejections.WithLabelValues("missing bearer token")); got != missing+1 {
		t.Fatalf("expected the missing-token rejection to be counted, got %v (was %v)", got, missing)
	}
	if got := testutil.ToFloat64(metrics.AuthRejections.WithLabelValues("auth check failed")); got != fault {
		t.Fatalf("expected store faults to leave the counter at %v, got %v", fault, got)
	}
}

func TestRequireAuthUsesCurrentRole(t *testing.T) {
	// The token says admin but the store says customer; the store wins.
	token, _, err := auth.SignToken(authTestSecret, auth.Claims{
		UserID: 42, Role: model.RoleAdmin, TokenVersion: 1,
	}, time.Hour)
	if err != nil {
		t.Fatalf("SignToken returned error: %v", err)
	}
	users := &fakeUserSource{user: activeUser(1)}

	rec, called, _, _ := runAuth(t, users, "Bearer "+token, model.RoleAdmin)
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("expected the database role to win, got %d (called=%v)", rec.Code, called)
	}

	_, called, _, role := runAuth(t, users, "Bearer "+token)
	if !called || role != model.RoleCustomer {
		t.Fatalf("expected injected role customer, got %q (called=%v)", role, called)
	}
}

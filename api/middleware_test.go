package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskman-api/domain"
)

type stubAuthenticator struct {
	ident Identity
	err   error
}

func (s stubAuthenticator) IdentityFromToken(string) (Identity, error) {
	return s.ident, s.err
}

func TestRequireAuthMissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(echo.Context) error {
		t.Fatal("next handler must not run without credentials")
		return nil
	}
	if err := RequireAuth(stubAuthenticator{})(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 got %d", rec.Code)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer aa.bb.cc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(echo.Context) error {
		t.Fatal("next handler must not run with a bad token")
		return nil
	}
	mw := RequireAuth(stubAuthenticator{err: errors.New("bad signature")})
	if err := mw(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 got %d", rec.Code)
	}
}

func TestRequireAuthMalformedToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	next := func(echo.Context) error { called = true; return nil }
	if err := RequireAuth(stubAuthenticator{})(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if called {
		t.Fatal("next handler must not run")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 got %d", rec.Code)
	}
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer aa.bb.cc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	want := Identity{UserID: uuid.New(), Username: "al", Role: domain.RoleUser}
	next := func(c echo.Context) error {
		got, ok := IdentityFrom(c)
		if !ok {
			t.Fatal("identity not attached to context")
		}
		if got != want {
			t.Fatalf("unexpected identity: %#v", got)
		}
		return c.NoContent(http.StatusOK)
	}
	mw := RequireAuth(stubAuthenticator{ident: want})
	if err := mw(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func staffActor(role string) Actor {
	return Actor{
		UserID:   uuid.New(),
		Role:     role,
		ClinicID: uuid.New(),
	}
}

func TestJWTMiddlewareResolvesActor(t *testing.T) {
	want := staffActor(RoleReceptionist)
	token, err := SignToken(testSecret, want, time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	e := echo.New()
	e.Use(JWTMiddleware(testSecret))
	e.GET("/", func(c echo.Context) error {
		got, ok := ActorFromContext(c.Request().Context())
		if !ok {
			t.Fatal("actor missing from context")
		}
		if got.UserID != want.UserID || got.Role != want.Role || got.ClinicID != want.ClinicID {
			t.Errorf("actor = %+v, want %+v", got, want)
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestJWTMiddlewareRejectsBadTokens(t *testing.T) {
	e := echo.New()
	e.Use(JWTMiddleware(testSecret))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	// No token.
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want 401", rec.Code)
	}

	// Wrong secret.
	token, _ := SignToken([]byte("other-secret"), staffActor(RoleAdmin), time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", rec.Code)
	}

	// Expired.
	token, _ = SignToken(testSecret, staffActor(RoleAdmin), -time.Minute)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expired token: status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	serve := func(actor Actor) *httptest.ResponseRecorder {
		e := echo.New()
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
				return next(c)
			}
		})
		e.GET("/", handler, RequireRole(RoleReceptionist))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec
	}

	if rec := serve(staffActor(RoleReceptionist)); rec.Code != http.StatusOK {
		t.Errorf("receptionist: status = %d, want 200", rec.Code)
	}
	if rec := serve(staffActor(RoleAdmin)); rec.Code != http.StatusOK {
		t.Errorf("admin bypass: status = %d, want 200", rec.Code)
	}
	if rec := serve(staffActor(RoleDoctor)); rec.Code != http.StatusForbidden {
		t.Errorf("doctor: status = %d, want 403", rec.Code)
	}
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole(RoleAdmin))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/vibes/internal/shared"
)

func TestOAuthHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		h := NewOAuthHandler(&fakeAuth{}, "state", "")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/auth/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("Success", func(t *testing.T) {
		h := NewOAuthHandler(&fakeAuth{}, "state", "/callback")
		router := NewBasicRouter()
		router.Handler(h)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state&code=xyz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		res := <-h.Result()
		if res.Error() != nil {
			t.Fatalf("expected no error, got %v", res.Error())
		}
		if res.Token.AccessToken != "access-xyz" {
			t.Errorf("unexpected token %q", res.Token.AccessToken)
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		h := NewOAuthHandler(&fakeAuth{}, "state", "")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?state=other&code=xyz", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := <-h.Result(); !errors.Is(res.Error(), shared.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", res.Error())
		}
	})

	t.Run("Denied", func(t *testing.T) {
		h := NewOAuthHandler(&fakeAuth{}, "state", "")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?state=state&error=access_denied", nil))

		if res := <-h.Result(); !errors.Is(res.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Error())
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		h := NewOAuthHandler(&fakeAuth{err: shared.ErrAuthFailed}, "state", "")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?state=state&code=xyz", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		h := NewOAuthHandler(&fakeAuth{}, "state", "")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/callback?state=state&code=xyz", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?state=state&code=xyz", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

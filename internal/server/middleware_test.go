package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/vibes/internal/shared"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(RequestID(r.Context())))
	})

	t.Run("RequestLogger", func(t *testing.T) {
		var buf bytes.Buffer
		h := RequestLogger(shared.NewLogger(&buf))(ok)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/me", nil))

		id := rec.Header().Get(RequestIDHeader)
		if len(id) != 36 {
			t.Errorf("expected a UUID request id, got %q", id)
		}
		if rec.Body.String() != id {
			t.Error("expected request id in context")
		}
		logged := buf.String()
		for _, want := range []string{"method=GET", "path=/api/spotify/me", "status=200", "request_id=" + id} {
			if !strings.Contains(logged, want) {
				t.Errorf("log missing %q: %s", want, logged)
			}
		}
	})

	t.Run("RequestLogger Keeps Incoming ID", func(t *testing.T) {
		var buf bytes.Buffer
		h := RequestLogger(shared.NewLogger(&buf))(ok)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Header().Get(RequestIDHeader) != "abc" {
			t.Errorf("expected incoming id, got %q", rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("CORS", func(t *testing.T) {
		t.Run("Wildcard", func(t *testing.T) {
			h := CORS([]string{"*"})(ok)
			req := httptest.NewRequest(http.MethodPost, "/api/parse-prompt", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Errorf("expected wildcard origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})

		t.Run("Listed Origin", func(t *testing.T) {
			h := CORS([]string{"http://localhost:3000"})(ok)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
				t.Errorf("expected echoed origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})

		t.Run("Unlisted Origin", func(t *testing.T) {
			h := CORS([]string{"http://localhost:3000"})(ok)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", "http://evil.example")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Header().Get("Access-Control-Allow-Origin") != "" {
				t.Error("expected no CORS headers")
			}
		})

		t.Run("Preflight", func(t *testing.T) {
			called := false
			h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
			req := httptest.NewRequest(http.MethodOptions, "/api/spotify/build-playlist", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", "POST")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("expected 204, got %d", rec.Code)
			}
			if called {
				t.Error("expected preflight to be answered by the middleware")
			}
		})
	})

	t.Run("Recoverer", func(t *testing.T) {
		var buf bytes.Buffer
		h := Recoverer(shared.NewLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Error("expected panic to be logged")
		}
	})

	t.Run("Chain Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		Chain(ok, mw("outer"), mw("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if strings.Join(order, ",") != "outer,inner" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("bearerToken", func(t *testing.T) {
		tests := map[string]string{
			"Bearer abc":   "abc",
			"bearer  abc ": "abc",
			"Basic abc":    "",
			"":             "",
		}
		for header, want := range tests {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", header)
			if got := bearerToken(req); got != want {
				t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
			}
		}
	})
}

func TestServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	var buf bytes.Buffer
	srv := New(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	}), shared.NewLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/star/galkin"
	"github.com/star/galkin/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestHandler(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	srv := NewServer(cfg, galkin.J2000(), galkin.NewPool(2), testLogger())
	return srv.HTTPServer().Handler
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestTransformBudget verifies that requests exceeding the max star budget
// are rejected with 400 instead of consuming unbounded CPU.
func TestTransformBudget(t *testing.T) {
	h := newTestHandler(t, func(cfg *config.Config) {
		cfg.Limits.MaxStars = 4
	})

	batch := func(n int) string {
		vals := make([]string, n)
		for i := range vals {
			vals[i] = "1"
		}
		arr := "[" + strings.Join(vals, ",") + "]"
		return fmt.Sprintf(`{"ra": %s, "dec": %s}`, arr, arr)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"budget exceeded: 5 stars", batch(5), http.StatusBadRequest},
		{"within budget: 4 stars", batch(4), http.StatusOK},
		{"within budget: 1 star", batch(1), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/api/v1/galactic", tt.body)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusBadRequest {
				var resp map[string]any
				json.NewDecoder(rec.Body).Decode(&resp)
				if resp["error"] == nil {
					t.Error("expected error field in response")
				}
				if resp["max_stars"] == nil {
					t.Error("expected max_stars field in response")
				}
			}
		})
	}
}

func TestShapeMismatchBadRequest(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := postJSON(t, h, "/api/v1/galactic", `{"ra": [1, 2, 3], "dec": [1, 2]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if !strings.Contains(resp["error"], "dec") {
		t.Errorf("error = %q, want mention of dec", resp["error"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uvw", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := postJSON(t, h, "/api/v1/galactic", `{"ra": [0], "dec": [0], "epoch": 2000}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBodyTooLarge(t *testing.T) {
	h := newTestHandler(t, func(cfg *config.Config) {
		cfg.Limits.MaxBodyBytes = 64
	})

	body := `{"ra": [` + strings.Repeat("1,", 100) + `1], "dec": [0]}`
	rec := postJSON(t, h, "/api/v1/galactic", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestAuthProtectsTransforms(t *testing.T) {
	h := newTestHandler(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.Token = "tok"
	})

	rec := postJSON(t, h, "/api/v1/galactic", `{"ra": [0], "dec": [0]}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without token", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/galactic", strings.NewReader(`{"ra": [0], "dec": [0]}`))
	req.Header.Set("Authorization", "Bearer tok")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with token", rec2.Code)
	}

	// Probes stay public.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec3 := httptest.NewRecorder()
	h.ServeHTTP(rec3, req)
	if rec3.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec3.Code)
	}
}

func TestRateLimited(t *testing.T) {
	h := newTestHandler(t, func(cfg *config.Config) {
		cfg.Limits.RatePerSecond = 0.001
		cfg.Limits.Burst = 1
	})

	first := postJSON(t, h, "/api/v1/galactic", `{"ra": [0], "dec": [0]}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.Code)
	}
	second := postJSON(t, h, "/api/v1/galactic", `{"ra": [0], "dec": [0]}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}

	// Probes are never limited.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("healthz attempt %d: status = %d, want 200", i, rec.Code)
		}
	}
}

func TestProbeEndpoints(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct{ path, want string }{
		{"/healthz", "ok\n"},
		{"/readyz", "ready\n"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != tt.want {
			t.Errorf("%s: got (%d, %q), want (200, %q)", tt.path, rec.Code, rec.Body.String(), tt.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "galkin_pool_workers") {
		t.Error("metrics output missing galkin_pool_workers")
	}
}

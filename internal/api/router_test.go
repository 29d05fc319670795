package api

import (
	"net/http"
	"testing"
)

func TestRouter_HealthAndFallbacks(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if decode[map[string]string](t, w)["status"] != "ok" {
		t.Fatalf("unexpected health body %s", w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/does-not-exist", nil, nil)
	expectStatus(t, w, http.StatusNotFound)
	if decode[map[string]any](t, w)["error"] == nil {
		t.Fatalf("404 should carry an error body: %s", w.Body.String())
	}

	w = env.do(http.MethodPatch, "/api/wedding/packages", nil, nil)
	expectStatus(t, w, http.StatusMethodNotAllowed)
	if decode[map[string]any](t, w)["error"] == nil {
		t.Fatalf("405 should carry an error body: %s", w.Body.String())
	}
}

func TestRouter_CorrelationIDEchoed(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", nil, map[string]string{"X-Correlation-ID": "abc-123"})
	if got := w.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Fatalf("expected correlation id echoed, got %q", got)
	}
}

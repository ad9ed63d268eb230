package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestMetricsEndpoint_ReportsServedRequests(t *testing.T) {
	app, _ := newTestApp(t, &stubContentService{})
	r := newTestRouterWithMiddleware(app)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/hello", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	metrics := httptest.NewRecorder()
	r.ServeHTTP(metrics, httptest.NewRequest("GET", "/metrics", nil))
	if metrics.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", metrics.Code)
	}

	body := metrics.Body.String()
	if !strings.Contains(body, "microsite_http_requests_total") {
		t.Fatal("expected request counter in metrics output")
	}
	if !strings.Contains(body, `route="/api/v1/hello"`) {
		t.Fatal("expected hello route label in metrics output")
	}
}

func TestMetrics_CountsContentFetchOutcomes(t *testing.T) {
	_, r := newTestApp(t, &stubContentService{item: &ContentItem{ID: 1, Title: "t", Body: "b"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/posts/1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	metrics := httptest.NewRecorder()
	r.ServeHTTP(metrics, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(metrics.Body.String(), `microsite_content_fetches_total{outcome="ok"} 1`) {
		t.Fatal("expected one successful content fetch in metrics output")
	}
}

func TestRequestIDMiddleware_GeneratesAndEchoesID(t *testing.T) {
	app, _ := newTestApp(t, &stubContentService{})

	// Middleware is wired in main; build a router with it for the test.
	r := newTestRouterWithMiddleware(app)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	got := w.Header().Get(requestIDHeader)
	if got == "" {
		t.Fatal("expected a generated request ID header")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected a UUID request ID, got %q", got)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(requestIDHeader, "caller-supplied-id")
	r.ServeHTTP(w, req)
	if w.Header().Get(requestIDHeader) != "caller-supplied-id" {
		t.Fatalf("expected caller-supplied request ID echoed, got %q", w.Header().Get(requestIDHeader))
	}
}

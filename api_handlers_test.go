package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHelloEndpoint_ReturnsFixedBody(t *testing.T) {
	_, r := newTestApp(t, &stubContentService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/hello", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != `{"text":"Hello from the microsite API!"}` {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestHealthz(t *testing.T) {
	_, r := newTestApp(t, &stubContentService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != `{"status":"ok"}` {
		t.Fatalf("unexpected body %q", got)
	}
}

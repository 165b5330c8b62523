package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDrain(t *testing.T) {
	var d Drain
	calls := 0
	h := d.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("before Begin: status = %d, want 200", rec.Code)
	}

	d.Begin()
	d.Begin()
	if !d.Draining() {
		t.Fatal("Draining() = false after Begin")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook", http.NoBody))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if got := rec.Body.String(); got != `{"error":"Service Unavailable"}` {
		t.Errorf("body = %s", got)
	}
	if calls != 1 {
		t.Errorf("next called %d times, want 1", calls)
	}
}

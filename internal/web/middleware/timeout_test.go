package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTimeoutLetsFastHandlersThrough(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/order/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestTimeoutCutsOffSlowHandlers(t *testing.T) {
	released := make(chan struct{})
	handler := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		if _, err := w.Write([]byte("too late")); err != http.ErrHandlerTimeout {
			t.Errorf("late write must report ErrHandlerTimeout, got %v", err)
		}
		close(released)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/order/", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "request timed out") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("abandoned handler never observed the cancelled context")
	}
	if strings.Contains(rec.Body.String(), "too late") {
		t.Error("abandoned handler's write leaked into the response")
	}
}

func TestTimeoutPropagatesPanics(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if p := recover(); p != "boom" {
			t.Fatalf("expected panic to cross the middleware, got %v", p)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/order/", nil))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func appendMiddleware(trace *[]string, name string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trace = append(*trace, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChainRunsInDeclarationOrder(t *testing.T) {
	var trace []string
	chain := NewChain(
		appendMiddleware(&trace, "request-id"),
		appendMiddleware(&trace, "recovery"),
	).Use(appendMiddleware(&trace, "auth"))

	handler := chain.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace = append(trace, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"request-id", "recovery", "auth", "handler"}
	if len(trace) != len(want) {
		t.Fatalf("expected %d stages, got %v", len(want), trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("stage %d: expected %s, got %s", i, want[i], trace[i])
		}
	}
}

func TestChainShortCircuit(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}

	handler := NewChain(deny).Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run past a denying middleware")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestEmptyChain(t *testing.T) {
	handler := NewChain().Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("empty chain must pass straight through, got %d", rec.Code)
	}
}

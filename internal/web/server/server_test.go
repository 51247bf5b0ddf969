package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Address != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Address)
	}
	if cfg.ReadTimeout == 0 || cfg.WriteTimeout == 0 || cfg.ReadHeaderTimeout == 0 {
		t.Error("default config must set timeouts")
	}
	if cfg.MaxHeaderBytes == 0 {
		t.Error("default config must bound header size")
	}
}

func freeAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestServerServesAndShutsDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = freeAddress(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	srv := New(cfg, handler, zap.NewNop())

	if srv.Address() != cfg.Address {
		t.Errorf("expected address %s, got %s", cfg.Address, srv.Address())
	}

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()

	url := "http://" + cfg.Address + "/"
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("unexpected body %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	// A server closed by Shutdown reports a clean exit
	if err := <-done; err != nil {
		t.Fatalf("ListenAndServe after shutdown: %v", err)
	}
}

func TestListenAndServeReportsBindFailure(t *testing.T) {
	addr := freeAddress(t)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cfg := DefaultConfig()
	cfg.Address = addr
	srv := New(cfg, http.NotFoundHandler(), zap.NewNop())

	if err := srv.ListenAndServe(); err == nil {
		t.Fatal("expected an error binding an occupied address")
	}
}

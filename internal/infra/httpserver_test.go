package infra

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"
)

func TestHTTPServerStartReturnsServerClosedAfterShutdown(t *testing.T) {
	cfg := &Config{Port: "0"}
	server := NewHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	started := make(chan error, 1)
	go func() {
		started <- server.Start()
	}()

	// Give ListenAndServe a moment to bind before shutting down.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	select {
	case err := <-started:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("expected http.ErrServerClosed after graceful shutdown, got %v", err)
		}
		if errors.Is(err, os.ErrClosed) {
			t.Fatalf("graceful shutdown must not be reported as os.ErrClosed")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start did not return after Shutdown")
	}
}

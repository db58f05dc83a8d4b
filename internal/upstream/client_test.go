package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestClient_FetchCurrent(t *testing.T) {
	var gotPath, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLang = r.URL.Query().Get("lang")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"temperature":"21 °C","wind":"7 km/h"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, zap.NewNop())
	payload, err := c.FetchCurrent(context.Background(), "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/current" {
		t.Errorf("expected path /v1/current, got %s", gotPath)
	}
	if gotLang != "de" {
		t.Errorf("expected lang de, got %s", gotLang)
	}
	if len(payload) == 0 {
		t.Error("expected non-empty payload")
	}
}

func TestClient_FetchForecast_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, zap.NewNop())
	if _, err := c.FetchForecast(context.Background(), "en"); err == nil {
		t.Fatal("expected error on non-200 upstream status")
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, zap.NewNop())
	if _, err := c.FetchCurrent(context.Background(), "en"); err == nil {
		t.Fatal("expected error on invalid json payload")
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	if _, err := c.FetchCurrent(ctx, "en"); err == nil {
		t.Fatal("expected error when context deadline passes")
	}
}

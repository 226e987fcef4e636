package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthHandlersHealthz(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	handlers := NewHealthHandlers(
		WithHealthClock(func() time.Time { return now }),
		WithHealthVersion("v1.4.0"),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handlers.Healthz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Status    string `json:"status"`
		Uptime    string `json:"uptime"`
		Timestamp string `json:"timestamp"`
		Version   string `json:"version"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	if resp.Version != "v1.4.0" {
		t.Fatalf("expected version v1.4.0, got %q", resp.Version)
	}
	if resp.Timestamp != "2025-03-10T12:00:00Z" {
		t.Fatalf("unexpected timestamp %q", resp.Timestamp)
	}
}

func TestHealthHandlersReadyzAllChecksPass(t *testing.T) {
	handlers := NewHealthHandlers(
		WithReadinessCheck("firestore", func(ctx context.Context) error { return nil }),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ready" {
		t.Fatalf("expected status ready, got %q", resp.Status)
	}
	if resp.Checks["firestore"] != "ok" {
		t.Fatalf("expected firestore check ok, got %q", resp.Checks["firestore"])
	}
}

func TestHealthHandlersReadyzFailingCheck(t *testing.T) {
	handlers := NewHealthHandlers(
		WithReadinessCheck("firestore", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("smtp", func(ctx context.Context) error { return errors.New("connection refused") }),
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "not_ready" {
		t.Fatalf("expected status not_ready, got %q", resp.Status)
	}
	if resp.Checks["firestore"] != "ok" {
		t.Fatalf("expected firestore check ok, got %q", resp.Checks["firestore"])
	}
	if resp.Checks["smtp"] != "connection refused" {
		t.Fatalf("expected smtp failure recorded, got %q", resp.Checks["smtp"])
	}
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

func TestSendAndStatus(t *testing.T) {
	var got domain.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/_api/v1/messages":
			_ = json.NewDecoder(r.Body).Decode(&got)
			n := 4
			_ = json.NewEncoder(w).Encode(domain.Response{Status: domain.StatusCompleted, Count: &n, File: "f.har"})
		case "/_api/v1/status":
			_ = json.NewEncoder(w).Encode(domain.Status{Capturing: true, Clicked: 7})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	resp, err := c.StopCapture(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got.Action != domain.ActionStopCapture || resp.Count == nil || *resp.Count != 4 || resp.File != "f.har" {
		t.Fatalf("sent=%+v resp=%+v", got, resp)
	}
	if _, err := c.StartClicking(context.Background(), 1500); err != nil || got.Type != domain.TypeStartClicking || got.Interval != 1500 {
		t.Fatalf("start clicking: sent=%+v err=%v", got, err)
	}
	st, err := c.Status(context.Background())
	if err != nil || !st.Capturing || st.Clicked != 7 {
		t.Fatalf("status=%+v err=%v", st, err)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":"HAR_UNAVAILABLE","message":"no host HAR source"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ExportHAR(context.Background(), "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "HAR_UNAVAILABLE" || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("err=%v", err)
	}
}

func TestClearExportsSendsDelete(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL).ClearExports(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if method != http.MethodDelete || path != "/_api/v1/exports" {
		t.Fatalf("request=%s %s", method, path)
	}
}

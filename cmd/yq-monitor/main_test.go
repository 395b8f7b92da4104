package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestExtractCommandWritesNotes(t *testing.T) {
	dir := t.TempDir()
	harPath := filepath.Join(dir, "feed.har")
	body := `{"data":{"items":[{"model_type":"note","note_card":{"title":"t","time":1700000000000}}]}}`
	har, _ := json.Marshal(map[string]any{"log": map[string]any{"entries": []any{
		map[string]any{"request": map[string]any{"url": "https://x/feed"}, "response": map[string]any{"content": map[string]any{"text": body}}},
	}}})
	if err := os.WriteFile(harPath, har, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := run(t, "extract", harPath, "--log-level", "error")
	if err != nil {
		t.Fatalf("extract: %v (%s)", err, out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "feed_content.json"))
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	if !strings.Contains(string(data), `"readable_time": "2023-11-15 06:13:20"`) {
		t.Fatalf("unexpected output: %s", data)
	}
	if !strings.Contains(out, "extracted 1 notes") {
		t.Fatalf("stdout=%q", out)
	}
}

func TestStartCommandSendsBothTriggers(t *testing.T) {
	var got []domain.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m domain.Message
		_ = json.NewDecoder(r.Body).Decode(&m)
		got = append(got, m)
		_ = json.NewEncoder(w).Encode(domain.Response{Status: domain.StatusStarted})
	}))
	defer srv.Close()

	out, err := run(t, "start", "--server", srv.URL, "--interval", "800")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(got) != 2 || got[0].Action != domain.ActionStartCapture || got[1].Type != domain.TypeStartClicking || got[1].Interval != 800 {
		t.Fatalf("messages=%+v", got)
	}
	if !strings.Contains(out, "clicking: started") {
		t.Fatalf("stdout=%q", out)
	}
}

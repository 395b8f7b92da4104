package export

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/har"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

type memSaver struct {
	name string
	data []byte
	err  error
}

func (m *memSaver) Save(_ context.Context, name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.name, m.data = name, data
	return "/out/" + name, nil
}

type harFunc func(ctx context.Context) (*har.HAR, error)

func (f harFunc) HAR(ctx context.Context) (*har.HAR, error) { return f(ctx) }

func TestBuildEntrySchema(t *testing.T) {
	doc := Build([]domain.CapturedExchange{{
		URL: "https://x/feed/1", Method: "GET", TimeStamp: 1700000000000,
		Type: domain.ResourceXHR, StatusCode: 200, StatusLine: "OK",
	}})
	if doc.Log.Version != "1.2" || doc.Log.Pages == nil || len(doc.Log.Pages) != 0 {
		t.Fatalf("bad envelope: %+v", doc.Log)
	}
	if doc.Log.Creator.Name != "Feed Capture Extension" || doc.Log.Creator.Version != "1.0" {
		t.Fatalf("creator=%+v", doc.Log.Creator)
	}
	e := doc.Log.Entries[0]
	if e.StartedDateTime != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("startedDateTime=%q", e.StartedDateTime)
	}
	if e.Request.URL != "https://x/feed/1" || e.Request.Method != "GET" {
		t.Fatalf("request=%+v", e.Request)
	}
	if e.Response.Status != 200 || e.Response.StatusText != "OK" {
		t.Fatalf("response=%+v", e.Response)
	}
}

func TestDefaultFilenameHasNoColons(t *testing.T) {
	name := DefaultFilename(time.Date(2024, 3, 9, 13, 4, 5, 678e6, time.UTC))
	if strings.Contains(name, ":") {
		t.Fatalf("colon in %q", name)
	}
	if name != "feed-requests-2024-03-09T13-04-05.678Z.har" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestExportSavesIndentedJSON(t *testing.T) {
	s := &memSaver{}
	e := NewExporter(s, "feed", nil, nil)
	e.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	res, err := e.Export(context.Background(), []domain.CapturedExchange{
		{URL: "https://x/feed/1", Method: "GET", TimeStamp: 1700000000000, StatusCode: 200},
		{URL: "https://x/feed/2", Method: "POST", TimeStamp: 1700000000500, StatusCode: 404},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Count != 2 || res.Location != "/out/"+s.name {
		t.Fatalf("result=%+v", res)
	}
	if !strings.Contains(string(s.data), "\n  \"log\": {") {
		t.Fatalf("expected two-space indentation: %s", s.data)
	}
	var doc Document
	if err := json.Unmarshal(s.data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Log.Entries) != 2 || doc.Log.Entries[1].Response.Status != 404 {
		t.Fatalf("entries=%+v", doc.Log.Entries)
	}
}

func TestExportEmptyStillWritesEntriesArray(t *testing.T) {
	s := &memSaver{}
	if _, err := NewExporter(s, "feed", nil, nil).Export(context.Background(), nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(s.data), `"entries": []`) {
		t.Fatalf("entries should be an empty array: %s", s.data)
	}
}

func TestExportSaveError(t *testing.T) {
	s := &memSaver{err: errors.New("disk full")}
	if _, err := NewExporter(s, "feed", nil, nil).Export(context.Background(), nil); err == nil {
		t.Fatalf("expected save error")
	}
}

func TestExportHARFiltersEntries(t *testing.T) {
	src := harFunc(func(context.Context) (*har.HAR, error) {
		return &har.HAR{Log: &har.Log{
			Version: "1.2",
			Creator: &har.Creator{Name: "host", Version: "1"},
			Entries: []*har.Entry{
				{Request: &har.Request{URL: "https://x/api/homefeed"}},
				{Request: &har.Request{URL: "https://x/img.png"}},
				{Request: nil},
				{Request: &har.Request{URL: "https://x/FEED/2"}},
			},
		}}, nil
	})
	s := &memSaver{}
	res, err := NewExporter(s, "feed", nil, nil).ExportHAR(context.Background(), src, "")
	if err != nil {
		t.Fatalf("export har: %v", err)
	}
	if res.Count != 2 || res.Filename != DefaultHARFilename {
		t.Fatalf("result=%+v", res)
	}
	var out har.HAR
	if err := json.Unmarshal(s.data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Log.Entries) != 2 || out.Log.Entries[1].Request.URL != "https://x/FEED/2" {
		t.Fatalf("unexpected entries")
	}
}

func TestExportHARHostErrorSavesNothing(t *testing.T) {
	s := &memSaver{}
	e := NewExporter(s, "feed", nil, nil)
	_, err := e.ExportHAR(context.Background(), harFunc(func(context.Context) (*har.HAR, error) {
		return nil, errors.New("not attached")
	}), "x.har")
	if err == nil || s.data != nil {
		t.Fatalf("expected failure without save, err=%v", err)
	}
	_, err = e.ExportHAR(context.Background(), harFunc(func(context.Context) (*har.HAR, error) {
		return &har.HAR{}, nil
	}), "x.har")
	if !errors.Is(err, ErrNoHARLog) || s.data != nil {
		t.Fatalf("expected ErrNoHARLog, got %v", err)
	}
}

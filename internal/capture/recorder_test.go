package capture

import (
	"testing"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

func ex(url string) domain.CapturedExchange {
	return domain.CapturedExchange{URL: url, Method: "GET", StatusCode: 200, StatusLine: "HTTP/1.1 200 OK"}
}

func TestRecorderFiltersInObservationOrder(t *testing.T) {
	r := NewRecorder("", nil, nil)
	r.Arm()
	urls := []string{
		"https://x/api/FEED/1",
		"https://x/static/app.js",
		"https://x/homefeed?cursor=2",
		"https://x/user/me",
		"https://x/Feed",
	}
	for _, u := range urls {
		r.Observe(ex(u))
	}
	got := r.Disarm()
	want := []string{urls[0], urls[2], urls[4]}
	if len(got) != len(want) {
		t.Fatalf("got %d exchanges, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].URL != want[i] {
			t.Fatalf("entry %d: got %q want %q", i, got[i].URL, want[i])
		}
	}
}

func TestRecorderIgnoresWhileDisarmed(t *testing.T) {
	r := NewRecorder("feed", nil, nil)
	if r.Observe(ex("https://x/feed")) {
		t.Fatalf("accepted before arm")
	}
	r.Arm()
	r.Observe(ex("https://x/feed"))
	r.Disarm()
	if r.Observe(ex("https://x/feed")) {
		t.Fatalf("accepted after disarm")
	}
	if r.Len() != 1 {
		t.Fatalf("len=%d", r.Len())
	}
}

func TestRecorderArmClears(t *testing.T) {
	r := NewRecorder("feed", nil, nil)
	r.Arm()
	r.Observe(ex("https://x/feed/1"))
	r.Observe(ex("https://x/feed/1"))
	if r.Len() != 2 {
		t.Fatalf("duplicates must be kept, len=%d", r.Len())
	}
	r.Arm()
	if r.Len() != 0 || !r.Armed() {
		t.Fatalf("re-arm should clear: len=%d armed=%v", r.Len(), r.Armed())
	}
}

func TestRecorderDisarmReturnsCopy(t *testing.T) {
	r := NewRecorder("feed", nil, nil)
	r.Arm()
	r.Observe(ex("https://x/feed/1"))
	got := r.Disarm()
	got[0].URL = "mutated"
	again := r.Disarm()
	if again[0].URL != "https://x/feed/1" {
		t.Fatalf("disarm leaked internal slice")
	}
}

func TestRecorderSnapshotKeepsArmed(t *testing.T) {
	r := NewRecorder("feed", nil, nil)
	r.Arm()
	r.Observe(ex("https://x/feed/1"))
	if got := r.Snapshot(); len(got) != 1 || !r.Armed() {
		t.Fatalf("snapshot=%d armed=%v", len(got), r.Armed())
	}
	r.Observe(ex("https://x/feed/2"))
	if r.Len() != 2 {
		t.Fatalf("len=%d", r.Len())
	}
}

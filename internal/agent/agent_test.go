package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	onSleep func(d time.Duration)
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return nil
}

// feedPage renders items in batches; each scroll reveals the next batch.
type feedPage struct {
	mu          sync.Mutex
	batches     [][]Cover
	shown       int
	activations map[string]int
	failClick   map[string]bool
	hideOnClick bool
	noClose     bool
	noMask      bool
	overlay     bool
	closeChecks int
	maskClicks  int
	coverQuery  int
}

func newFeedPage(batches ...[]Cover) *feedPage {
	return &feedPage{batches: batches, shown: 1, activations: map[string]int{}, failClick: map[string]bool{}}
}

func batch(prefix string, n int) []Cover {
	out := make([]Cover, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Cover{ID: fmt.Sprintf("%s%d", prefix, i), InItem: true, Visible: true})
	}
	return out
}

func (p *feedPage) Covers(context.Context) ([]Cover, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coverQuery++
	var out []Cover
	for _, b := range p.batches[:p.shown] {
		out = append(out, b...)
	}
	return out, nil
}

func (p *feedPage) ActivateCover(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activations[id]++
	if p.failClick[id] {
		return errors.New("element detached")
	}
	p.overlay = true
	if p.hideOnClick {
		for _, b := range p.batches {
			for i := range b {
				if b[i].ID == id {
					b[i].Visible = false
				}
			}
		}
	}
	return nil
}

func (p *feedPage) HasCloseControl(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeChecks++
	return p.overlay && !p.noClose, nil
}

func (p *feedPage) ClickCloseControl(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok := p.overlay && !p.noClose
	p.overlay = false
	return ok, nil
}

func (p *feedPage) ClickDetailMask(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.noMask {
		return false, nil
	}
	p.maskClicks++
	p.overlay = false
	return true, nil
}

func (p *feedPage) ContentHeight(context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(p.shown * 1000), nil
}

func (p *feedPage) ScrollToBottom(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shown < len(p.batches) {
		p.shown++
	}
	return nil
}

func (p *feedPage) count(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activations[id]
}

type notifierFunc func(n domain.Notification)

func (f notifierFunc) Notify(n domain.Notification) { f(n) }

type failingInspector struct{ attached, enabled bool }

func (f *failingInspector) Attach(context.Context) error {
	f.attached = true
	return errors.New("another debugger is attached")
}

func (f *failingInspector) EnableNetwork(context.Context) error {
	f.enabled = true
	return nil
}

func waitDone(t *testing.T, a *Agent) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not exit")
	}
}

func TestLoopClicksEverythingThenStops(t *testing.T) {
	page := newFeedPage(batch("a", 4), batch("b", 4), batch("c", 3))
	a := New(page, Options{Clock: newFakeClock()})
	if !a.Start(context.Background(), 0) {
		t.Fatalf("start refused")
	}
	waitDone(t, a)

	for _, b := range page.batches {
		for _, c := range b {
			if n := page.count(c.ID); n != 1 {
				t.Fatalf("item %s activated %d times", c.ID, n)
			}
		}
	}
	if a.Running() || a.State() != domain.StateStopped {
		t.Fatalf("running=%v state=%s", a.Running(), a.State())
	}
	if a.Clicked().Len() != 11 {
		t.Fatalf("clicked=%d", a.Clicked().Len())
	}
}

func TestLoopNeverReactivatesVisibleClickedCover(t *testing.T) {
	// covers stay visible after activation
	page := newFeedPage(batch("a", 3))
	a := New(page, Options{Clock: newFakeClock()})
	a.Start(context.Background(), 0)
	waitDone(t, a)
	for _, c := range page.batches[0] {
		if page.count(c.ID) != 1 {
			t.Fatalf("item %s activated %d times", c.ID, page.count(c.ID))
		}
	}
}

func TestLoopSkipsCoversOutsideItemsAndHidden(t *testing.T) {
	page := newFeedPage([]Cover{
		{ID: "orphan", InItem: false, Visible: true},
		{ID: "hidden", InItem: true, Visible: false},
		{ID: "x", InItem: true, Visible: true},
	})
	a := New(page, Options{Clock: newFakeClock()})
	a.Start(context.Background(), 0)
	waitDone(t, a)
	if page.count("orphan") != 0 || page.count("hidden") != 0 || page.count("x") != 1 {
		t.Fatalf("activations=%v", page.activations)
	}
}

func TestStopIsHonoredAtNextIteration(t *testing.T) {
	page := newFeedPage(batch("a", 10))
	var a *Agent
	notes := 0
	a = New(page, Options{
		Clock: newFakeClock(),
		Notifier: notifierFunc(func(n domain.Notification) {
			notes++
			if n.Type != domain.TypeClickCount || n.Count != notes {
				t.Errorf("unexpected notification %+v", n)
			}
			if notes == 3 {
				a.Stop()
			}
		}),
	})
	a.Start(context.Background(), 0)
	waitDone(t, a)
	total := 0
	for _, n := range page.activations {
		total += n
	}
	if total != 3 {
		t.Fatalf("expected 3 activations after stop, got %d", total)
	}
}

func TestStartIgnoredWhileRunning(t *testing.T) {
	page := newFeedPage(batch("a", 2))
	clock := newFakeClock()
	a := New(page, Options{Clock: clock})
	var second bool
	clock.onSleep = func(time.Duration) {
		if !second {
			second = true
			if a.Start(context.Background(), 5*time.Second) {
				t.Errorf("second start should be ignored")
			}
		}
	}
	a.Start(context.Background(), 0)
	waitDone(t, a)
	if a.Interval() != DefaultInterval {
		t.Fatalf("ignored start must not change interval: %s", a.Interval())
	}
}

func TestClickedSetSurvivesRestart(t *testing.T) {
	page := newFeedPage(batch("a", 3))
	a := New(page, Options{Clock: newFakeClock()})
	a.Start(context.Background(), 0)
	waitDone(t, a)
	a.Start(context.Background(), 0)
	waitDone(t, a)
	for _, c := range page.batches[0] {
		if page.count(c.ID) != 1 {
			t.Fatalf("item %s re-activated after restart", c.ID)
		}
	}
}

func TestActivationRecordedEvenWhenClickFails(t *testing.T) {
	page := newFeedPage(batch("a", 2))
	page.failClick["a0"] = true
	a := New(page, Options{Clock: newFakeClock()})
	a.Start(context.Background(), 0)
	waitDone(t, a)
	if !a.Clicked().Has("a0") || page.count("a0") != 1 {
		t.Fatalf("failed click should be recorded once, count=%d", page.count("a0"))
	}
}

func TestDismissFallsBackToMask(t *testing.T) {
	page := newFeedPage(batch("a", 1))
	page.noClose = true
	a := New(page, Options{Clock: newFakeClock()})
	a.Start(context.Background(), 0)
	waitDone(t, a)
	if page.maskClicks != 1 {
		t.Fatalf("mask clicks=%d", page.maskClicks)
	}
	// polled every 100ms for 1s
	if page.closeChecks != 10 {
		t.Fatalf("close checks=%d", page.closeChecks)
	}
}

func TestDismissWithNothingToClickContinues(t *testing.T) {
	page := newFeedPage(batch("a", 2))
	page.noClose, page.noMask = true, true
	a := New(page, Options{Clock: newFakeClock()})
	a.Start(context.Background(), 0)
	waitDone(t, a)
	if a.Clicked().Len() != 2 {
		t.Fatalf("clicked=%d", a.Clicked().Len())
	}
}

func TestInspectorFailureIsNotFatal(t *testing.T) {
	page := newFeedPage(batch("a", 2))
	insp := &failingInspector{}
	a := New(page, Options{Clock: newFakeClock(), Inspector: insp})
	a.Start(context.Background(), 0)
	waitDone(t, a)
	if !insp.attached || insp.enabled {
		t.Fatalf("attach=%v enable=%v", insp.attached, insp.enabled)
	}
	if a.Clicked().Len() != 2 {
		t.Fatalf("loop should proceed without capture, clicked=%d", a.Clicked().Len())
	}
}

func TestPollsWhenNothingVisible(t *testing.T) {
	page := newFeedPage([]Cover{{ID: "h", InItem: true, Visible: false}})
	clock := newFakeClock()
	a := New(page, Options{Clock: clock, Interval: 250 * time.Millisecond})
	polls := 0
	clock.onSleep = func(d time.Duration) {
		if d != 250*time.Millisecond {
			t.Errorf("unexpected wait %s", d)
		}
		polls++
		if polls == 5 {
			a.Stop()
		}
	}
	a.Start(context.Background(), 0)
	waitDone(t, a)
	if page.shown != 1 {
		t.Fatalf("must not scroll without a visible clicked cover")
	}
	if page.coverQuery != 5 {
		t.Fatalf("cover queries=%d", page.coverQuery)
	}
}

func TestContextCancelEndsLoop(t *testing.T) {
	page := newFeedPage([]Cover{})
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	clock.onSleep = func(time.Duration) { cancel() }
	a := New(page, Options{Clock: clock})
	a.Start(ctx, 0)
	waitDone(t, a)
	if a.Running() {
		t.Fatalf("running after cancel")
	}
}

func TestAllVisibleClicked(t *testing.T) {
	set := NewClickedSet()
	set.Add("1")
	if allVisibleClicked(nil, set) {
		t.Fatalf("no covers is not all-clicked")
	}
	covers := []Cover{{ID: "1", InItem: true, Visible: true}, {ID: "2", InItem: true, Visible: false}}
	if !allVisibleClicked(covers, set) {
		t.Fatalf("hidden unclicked cover should not block scrolling")
	}
	covers = append(covers, Cover{ID: "3", InItem: true, Visible: true})
	if allVisibleClicked(covers, set) {
		t.Fatalf("visible unclicked cover must block scrolling")
	}
}

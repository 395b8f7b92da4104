// Package agent runs the click-scroll loop: activate every unrevealed feed item in
// view, dismiss its detail overlay, then scroll for more until the page stops growing.
package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	obs "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/observability"
)

const DefaultInterval = 1000 * time.Millisecond

type Options struct {
	Inspector Inspector
	Notifier  Notifier
	Clock     Clock
	Timings   *Timings
	Interval  time.Duration
	Clicked   *ClickedSet
	Logger    *zerolog.Logger
	Metrics   *obs.Metrics
}

// Agent owns the run state of the loop. At most one loop runs at a time; the
// clicked set outlives individual runs.
type Agent struct {
	page      Page
	inspector Inspector
	notifier  Notifier
	clock     Clock
	timings   Timings
	clicked   *ClickedSet
	logger    *zerolog.Logger
	metrics   *obs.Metrics

	running  atomic.Bool
	gen      atomic.Uint64
	interval atomic.Int64

	mu    sync.Mutex
	state domain.AgentState
	done  chan struct{}
}

func New(page Page, opts Options) *Agent {
	a := &Agent{
		page:      page,
		inspector: opts.Inspector,
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		timings:   DefaultTimings(),
		clicked:   opts.Clicked,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		state:     domain.StateIdle,
	}
	if a.clock == nil {
		a.clock = realClock{}
	}
	if opts.Timings != nil {
		a.timings = *opts.Timings
	}
	if a.clicked == nil {
		a.clicked = NewClickedSet()
	}
	if a.logger == nil {
		nop := zerolog.Nop()
		a.logger = &nop
	}
	iv := opts.Interval
	if iv <= 0 {
		iv = DefaultInterval
	}
	a.interval.Store(int64(iv))
	closed := make(chan struct{})
	close(closed)
	a.done = closed
	return a
}

// Start launches the loop under ctx. A positive interval replaces the delay
// between actions. It returns false, changing nothing, when a loop is running.
func (a *Agent) Start(ctx context.Context, interval time.Duration) bool {
	if !a.running.CompareAndSwap(false, true) {
		return false
	}
	if interval > 0 {
		a.interval.Store(int64(interval))
	}
	gen := a.gen.Add(1)
	done := make(chan struct{})
	a.mu.Lock()
	a.done = done
	a.state = domain.StateScanning
	a.mu.Unlock()
	if a.metrics != nil {
		a.metrics.AgentRunning.Set(1)
	}
	a.logger.Info().Dur("interval", a.Interval()).Strs("clicked", a.clicked.IDs()).Msg("click loop starting")
	go a.run(ctx, gen, done)
	return true
}

// Stop clears the running flag. The loop exits at its next iteration boundary;
// an in-flight activation or dismissal completes first.
func (a *Agent) Stop() bool {
	was := a.running.Swap(false)
	if was {
		a.logger.Info().Strs("clicked", a.clicked.IDs()).Msg("click loop stop requested")
	}
	return was
}

func (a *Agent) Running() bool { return a.running.Load() }

func (a *Agent) Interval() time.Duration { return time.Duration(a.interval.Load()) }

// SetInterval changes the delay used by the current and later runs.
func (a *Agent) SetInterval(d time.Duration) {
	if d > 0 {
		a.interval.Store(int64(d))
	}
}

func (a *Agent) Clicked() *ClickedSet { return a.clicked }

func (a *Agent) State() domain.AgentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Done is closed when the most recently started loop has exited.
func (a *Agent) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

func (a *Agent) active(gen uint64) bool {
	return a.running.Load() && a.gen.Load() == gen
}

func (a *Agent) setState(gen uint64, s domain.AgentState) {
	a.mu.Lock()
	if a.gen.Load() == gen {
		a.state = s
	}
	a.mu.Unlock()
}

func (a *Agent) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("click loop crashed")
		}
		a.setState(gen, domain.StateStopped)
		if a.gen.Load() == gen {
			a.running.Store(false)
			if a.metrics != nil {
				a.metrics.AgentRunning.Set(0)
			}
		}
		a.logger.Info().Int("clicked", a.clicked.Len()).Msg("click loop exited")
	}()

	a.prepare(ctx)

	for a.active(gen) && ctx.Err() == nil {
		a.setState(gen, domain.StateScanning)
		covers, err := a.page.Covers(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("cover query failed")
			covers = nil
		}
		if next, ok := nextClickable(covers, a.clicked); ok {
			a.activate(ctx, gen, next)
			a.dismiss(ctx, gen)
			_ = a.clock.Sleep(ctx, a.Interval())
			continue
		}
		if allVisibleClicked(covers, a.clicked) {
			a.logger.Info().Msg("visible items done, scrolling")
			if !a.scrollForMore(ctx, gen) {
				a.logger.Info().Msg("reached the end of the feed, stopping")
				return
			}
			a.logger.Debug().Msg("scrolled, waiting for new content")
			_ = a.clock.Sleep(ctx, a.timings.AfterScroll)
			continue
		}
		_ = a.clock.Sleep(ctx, a.Interval())
	}
}

// prepare opens the inspection session. Failures only disable capture.
func (a *Agent) prepare(ctx context.Context) {
	if a.inspector == nil {
		return
	}
	if err := a.inspector.Attach(ctx); err != nil {
		a.logger.Error().Err(err).Msg("enable network capture failed")
		return
	}
	if err := a.inspector.EnableNetwork(ctx); err != nil {
		a.logger.Error().Err(err).Msg("enable network capture failed")
	}
}

// activate records id before clicking, so a failing click is never retried.
func (a *Agent) activate(ctx context.Context, gen uint64, id string) {
	a.setState(gen, domain.StateActivating)
	a.clicked.Add(id)
	n := a.clicked.Len()
	a.logger.Info().Str("index", id).Int("clicked", n).Msg("activating item")
	if a.notifier != nil {
		a.notifier.Notify(domain.Notification{Type: domain.TypeClickCount, ID: id, Count: n})
	}
	if err := a.page.ActivateCover(ctx, id); err != nil {
		a.logger.Warn().Err(err).Str("index", id).Msg("cover click failed")
	}
	if a.metrics != nil {
		a.metrics.ClicksTotal.Inc()
	}
	_ = a.clock.Sleep(ctx, a.timings.Settle)
}

func (a *Agent) dismiss(ctx context.Context, gen uint64) {
	a.setState(gen, domain.StateWaitingForDismiss)
	if a.waitForCloseControl(ctx) {
		if ok, err := a.page.ClickCloseControl(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("close click failed")
		} else if ok {
			a.logger.Debug().Msg("detail closed")
		}
		_ = a.clock.Sleep(ctx, a.timings.DismissWait)
		return
	}
	a.logger.Debug().Msg("close control not found, trying the detail mask")
	ok, err := a.page.ClickDetailMask(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("mask click failed")
	}
	if ok {
		_ = a.clock.Sleep(ctx, a.timings.DismissWait)
	}
}

func (a *Agent) waitForCloseControl(ctx context.Context) bool {
	start := a.clock.Now()
	for a.clock.Now().Sub(start) < a.timings.DismissTimeout {
		if ctx.Err() != nil {
			return false
		}
		if ok, err := a.page.HasCloseControl(ctx); err == nil && ok {
			return true
		}
		_ = a.clock.Sleep(ctx, a.timings.DismissPoll)
	}
	return false
}

// scrollForMore scrolls to the bottom and reports whether the page grew.
func (a *Agent) scrollForMore(ctx context.Context, gen uint64) bool {
	a.setState(gen, domain.StateScrollingForMore)
	before, err := a.page.ContentHeight(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("read page height failed")
		a.countScroll("error")
		return false
	}
	if err := a.page.ScrollToBottom(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("scroll failed")
		a.countScroll("error")
		return false
	}
	_ = a.clock.Sleep(ctx, a.timings.ScrollWait)
	after, err := a.page.ContentHeight(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("read page height failed")
		a.countScroll("error")
		return false
	}
	if after > before {
		a.countScroll("grew")
		return true
	}
	a.countScroll("exhausted")
	return false
}

func (a *Agent) countScroll(outcome string) {
	if a.metrics != nil {
		a.metrics.ScrollsTotal.WithLabelValues(outcome).Inc()
	}
}

// nextClickable returns the first visible, not yet clicked cover inside an item.
func nextClickable(covers []Cover, clicked *ClickedSet) (string, bool) {
	for _, c := range covers {
		if !c.InItem {
			continue
		}
		if clicked.Has(c.ID) {
			continue
		}
		if c.Visible {
			return c.ID, true
		}
	}
	return "", false
}

// allVisibleClicked reports whether some cover is visible and every visible one was clicked.
func allVisibleClicked(covers []Cover, clicked *ClickedSet) bool {
	hasVisible := false
	for _, c := range covers {
		if !c.InItem || !c.Visible {
			continue
		}
		hasVisible = true
		if !clicked.Has(c.ID) {
			return false
		}
	}
	return hasVisible
}

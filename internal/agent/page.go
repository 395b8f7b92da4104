package agent

import (
	"context"
	"time"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

// Cover is one rendered "unrevealed item" element, in document order.
type Cover struct {
	ID      string `json:"id"`      // identifier attribute of the enclosing item
	InItem  bool   `json:"inItem"`  // false when no enclosing item was found
	Visible bool   `json:"visible"` // computed display is not "none"
}

// Page is the slice of the feed page the loop drives.
type Page interface {
	Covers(ctx context.Context) ([]Cover, error)
	ActivateCover(ctx context.Context, id string) error
	HasCloseControl(ctx context.Context) (bool, error)
	ClickCloseControl(ctx context.Context) (bool, error)
	ClickDetailMask(ctx context.Context) (bool, error)
	ContentHeight(ctx context.Context) (int64, error)
	ScrollToBottom(ctx context.Context) error
}

// Inspector opens the inspection session used for network capture.
type Inspector interface {
	Attach(ctx context.Context) error
	EnableNetwork(ctx context.Context) error
}

// Notifier receives best-effort notifications; delivery is not awaited.
type Notifier interface {
	Notify(n domain.Notification)
}

type Clock interface {
	Now() time.Time
	// Sleep waits d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Timings are the fixed waits of the loop.
type Timings struct {
	Settle         time.Duration // after activating a cover
	DismissTimeout time.Duration // how long to look for the close control
	DismissPoll    time.Duration
	DismissWait    time.Duration // after clicking close or mask
	ScrollWait     time.Duration // between scrolling and measuring
	AfterScroll    time.Duration // after a scroll revealed more content
}

func DefaultTimings() Timings {
	return Timings{
		Settle:         2000 * time.Millisecond,
		DismissTimeout: 1000 * time.Millisecond,
		DismissPoll:    100 * time.Millisecond,
		DismissWait:    500 * time.Millisecond,
		ScrollWait:     1000 * time.Millisecond,
		AfterScroll:    1000 * time.Millisecond,
	}
}

// Package browser drives a Chrome tab over the DevTools protocol: it exposes the
// feed page to the click-scroll agent and turns network events into captured exchanges.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/har"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/Sangdi-IT/yq-monitor/internal/agent"
	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	"github.com/Sangdi-IT/yq-monitor/internal/infrastructure/config"
)

const callTimeout = 15 * time.Second

var ErrCoverGone = errors.New("cover no longer rendered")

// Session is one browser tab for the lifetime of the page context.
type Session struct {
	ctx    context.Context // chromedp tab context
	cancel context.CancelFunc
	cfg    config.Config
	sel    config.Selectors
	logger *zerolog.Logger
	j      *journal

	startOnce sync.Once
	startErr  error
}

var (
	_ agent.Page      = (*Session)(nil)
	_ agent.Inspector = (*Session)(nil)
)

// New prepares a tab on a launched or remote Chrome. The browser itself starts
// lazily on the first call that talks to it. sink receives every finished exchange.
func New(parent context.Context, cfg config.Config, sink func(domain.CapturedExchange), logger *zerolog.Logger) *Session {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.ChromeRemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, cfg.ChromeRemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("no-first-run", true),
		)
		if cfg.ChromePath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
		}
		if cfg.UserDataDir != "" {
			opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, opts...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(f string, args ...any) { logger.Debug().Msgf(f, args...) }),
	)
	s := &Session{
		ctx:    tabCtx,
		cancel: func() { tabCancel(); allocCancel() },
		cfg:    cfg,
		sel:    cfg.Selectors,
		logger: logger,
		j:      newJournal(sink),
	}
	s.j.sanitize = cfg.HARSanitize
	chromedp.ListenTarget(tabCtx, s.onEvent)
	return s
}

func (s *Session) onEvent(ev any) {
	switch e := ev.(type) {
	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails != nil {
			s.logger.Error().Str("error", e.ExceptionDetails.Error()).Msg("uncaught page error")
		}
	default:
		s.j.handle(ev)
	}
}

// Open navigates to the target page and installs the feed observer.
func (s *Session) Open(ctx context.Context) error {
	if s.cfg.TargetURL == "" {
		return errors.New("target url is empty")
	}
	if err := s.run(ctx, 60*time.Second,
		chromedp.Navigate(s.cfg.TargetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.TargetURL, err)
	}
	s.logger.Info().Str("url", s.cfg.TargetURL).Msg("page opened")
	var installed bool
	if err := s.eval(ctx, observerScript(s.sel), &installed); err != nil {
		s.logger.Warn().Err(err).Msg("feed observer not installed")
	} else if installed {
		s.logger.Info().Msg("feed observer initialized")
	}
	return nil
}

// Close shuts the tab and, for launched browsers, the browser process.
func (s *Session) Close() {
	if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug().Err(err).Msg("browser close")
	}
	s.cancel()
}

// Attach makes sure the tab exists.
func (s *Session) Attach(ctx context.Context) error {
	return s.run(ctx, callTimeout)
}

func (s *Session) EnableNetwork(ctx context.Context) error {
	if err := s.run(ctx, callTimeout, network.Enable(), runtime.Enable()); err != nil {
		return fmt.Errorf("network enable: %w", err)
	}
	s.j.enable()
	return nil
}

// HAR returns the requests finished since network observation was enabled.
func (s *Session) HAR(ctx context.Context) (*har.HAR, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.j.snapshot()
}

func (s *Session) Covers(ctx context.Context) ([]agent.Cover, error) {
	var covers []agent.Cover
	if err := s.eval(ctx, coversScript(s.sel), &covers); err != nil {
		return nil, err
	}
	return covers, nil
}

func (s *Session) ActivateCover(ctx context.Context, id string) error {
	var ok bool
	if err := s.eval(ctx, activateScript(s.sel, id), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCoverGone, id)
	}
	return nil
}

func (s *Session) HasCloseControl(ctx context.Context) (bool, error) {
	var ok bool
	err := s.eval(ctx, existsScript(s.sel.Close), &ok)
	return ok, err
}

func (s *Session) ClickCloseControl(ctx context.Context) (bool, error) {
	var ok bool
	err := s.eval(ctx, clickScript(s.sel.Close), &ok)
	return ok, err
}

func (s *Session) ClickDetailMask(ctx context.Context) (bool, error) {
	var ok bool
	err := s.eval(ctx, clickScript(s.sel.DetailMask), &ok)
	return ok, err
}

func (s *Session) ContentHeight(ctx context.Context) (int64, error) {
	var h float64
	if err := s.eval(ctx, `document.body.scrollHeight`, &h); err != nil {
		return 0, err
	}
	return int64(h), nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	return s.eval(ctx, `window.scrollTo(0, document.body.scrollHeight)`, nil)
}

func (s *Session) eval(ctx context.Context, expr string, res any) error {
	return s.run(ctx, callTimeout, chromedp.Evaluate(expr, res))
}

// run executes actions on the tab, bounded by timeout and abandoned when ctx is done.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.start(); err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(rctx, actions...)
}

// start allocates the browser on the tab context itself; a first Run on a
// derived, cancellable context would tie the browser's life to it.
func (s *Session) start() error {
	s.startOnce.Do(func() {
		s.startErr = chromedp.Run(s.ctx)
		if s.startErr != nil {
			s.startErr = fmt.Errorf("start browser: %w", s.startErr)
		}
	})
	return s.startErr
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sangdi-IT/yq-monitor/internal/agent"
	"github.com/Sangdi-IT/yq-monitor/internal/capture"
	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	"github.com/Sangdi-IT/yq-monitor/internal/export"
)

// MaxClickIntervalMs bounds the delay between agent actions.
const MaxClickIntervalMs = 60 * 60 * 1000

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrNoHARSource    = errors.New("no host HAR source")
	ErrBadInterval    = errors.New("click interval out of range")
)

// Components are the parts of one page-context session.
type Components struct {
	Recorder  *capture.Recorder
	Agent     *agent.Agent
	Exporter  *export.Exporter
	HARSource export.HARSource // optional
	History   ExportRepository // optional
	Logger    *zerolog.Logger
}

// Service maps trigger messages onto the recorder, the exporter and the agent.
// The agent loop runs under the context given to NewService, not the caller's.
type Service struct {
	ctx      context.Context
	recorder *capture.Recorder
	agent    *agent.Agent
	exporter *export.Exporter
	harSrc   export.HARSource
	history  ExportRepository
	logger   *zerolog.Logger
	newID    func() string
	now      func() time.Time
}

func NewService(ctx context.Context, c Components) *Service {
	logger := c.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		ctx:      ctx,
		recorder: c.Recorder,
		agent:    c.Agent,
		exporter: c.Exporter,
		harSrc:   c.HARSource,
		history:  c.History,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Handle dispatches one trigger message and returns its response.
func (s *Service) Handle(ctx context.Context, msg domain.Message) (domain.Response, error) {
	switch {
	case msg.Action == domain.ActionStartCapture:
		s.StartCapture()
		return domain.Response{Status: domain.StatusStarted}, nil
	case msg.Action == domain.ActionStopCapture:
		rec, err := s.StopCapture(ctx)
		if err != nil {
			return domain.Response{}, err
		}
		n := rec.Count
		return domain.Response{Status: domain.StatusCompleted, Count: &n, File: rec.Filename}, nil
	case msg.Type == domain.TypeStartClicking:
		if msg.Interval < 0 || msg.Interval > MaxClickIntervalMs {
			return domain.Response{}, fmt.Errorf("%w: %d", ErrBadInterval, msg.Interval)
		}
		if !s.StartClicking(time.Duration(msg.Interval) * time.Millisecond) {
			return domain.Response{Status: domain.StatusRunning}, nil
		}
		return domain.Response{Status: domain.StatusStarted}, nil
	case msg.Type == domain.TypeStopClicking:
		s.StopClicking()
		return domain.Response{Status: domain.StatusStopped}, nil
	}
	return domain.Response{}, fmt.Errorf("%w: action=%q type=%q", ErrUnknownMessage, msg.Action, msg.Type)
}

// StartCapture clears previous records and arms the recorder.
func (s *Service) StartCapture() { s.recorder.Arm() }

// StopCapture disarms the recorder and exports what it collected.
func (s *Service) StopCapture(ctx context.Context) (domain.ExportRecord, error) {
	records := s.recorder.Disarm()
	res, err := s.exporter.Export(ctx, records)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(records)).Msg("capture export failed")
		return domain.ExportRecord{}, err
	}
	return s.remember(ctx, domain.ExportCapture, res), nil
}

// CurrentLog builds the log document of what has been captured so far.
func (s *Service) CurrentLog() export.Document { return export.Build(s.recorder.Snapshot()) }

// StartClicking starts the loop; false means a loop was already running.
func (s *Service) StartClicking(interval time.Duration) bool {
	return s.agent.Start(s.ctx, interval)
}

func (s *Service) StopClicking() bool { return s.agent.Stop() }

// ExportHAR saves the keyword-filtered host HAR under filename.
func (s *Service) ExportHAR(ctx context.Context, filename string) (domain.ExportRecord, error) {
	if s.harSrc == nil {
		return domain.ExportRecord{}, ErrNoHARSource
	}
	res, err := s.exporter.ExportHAR(ctx, s.harSrc, filename)
	if err != nil {
		return domain.ExportRecord{}, err
	}
	return s.remember(ctx, domain.ExportHAR, res), nil
}

func (s *Service) remember(ctx context.Context, kind domain.ExportKind, res export.Result) domain.ExportRecord {
	rec := domain.ExportRecord{
		ID:        s.newID(),
		Kind:      kind,
		Filename:  res.Filename,
		Location:  res.Location,
		Count:     res.Count,
		CreatedAt: s.now().UTC(),
	}
	if s.history != nil {
		if err := s.history.AppendExport(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Str("file", rec.Filename).Msg("export history append failed")
		}
	}
	return rec
}

func (s *Service) ListExports(ctx context.Context, f ExportFilter) ([]domain.ExportRecord, int, error) {
	if s.history == nil {
		return []domain.ExportRecord{}, 0, nil
	}
	return s.history.ListExports(ctx, f)
}

// ClearExports forgets the export history. Files already written stay on disk.
func (s *Service) ClearExports(ctx context.Context) error {
	if s.history == nil {
		return nil
	}
	return s.history.ClearExports(ctx)
}

func (s *Service) Status() domain.Status {
	return domain.Status{
		Capturing:       s.recorder.Armed(),
		Captured:        s.recorder.Len(),
		Clicking:        s.agent.Running(),
		State:           s.agent.State(),
		Clicked:         s.agent.Clicked().Len(),
		ClickIntervalMs: s.ClickIntervalMs(),
	}
}

func (s *Service) ClickIntervalMs() int { return int(s.agent.Interval() / time.Millisecond) }

func (s *Service) SetClickIntervalMs(ms int) error {
	if ms <= 0 || ms > MaxClickIntervalMs {
		return fmt.Errorf("%w: %d", ErrBadInterval, ms)
	}
	s.agent.SetInterval(time.Duration(ms) * time.Millisecond)
	return nil
}

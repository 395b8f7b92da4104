// Package export turns captured exchanges into HAR log documents and hands them to a saver.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/har"
	"github.com/rs/zerolog"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	obs "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/observability"
)

const DefaultHARFilename = "network-log.har"

var ErrNoHARLog = errors.New("host HAR has no log")

// Saver persists a serialized document under name and returns where it went.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// HARSource hands out a HAR assembled by the browsing host.
type HARSource interface {
	HAR(ctx context.Context) (*har.HAR, error)
}

type Result struct {
	Filename string
	Location string
	Count    int
}

type Exporter struct {
	saver   Saver
	keyword string
	now     func() time.Time
	logger  *zerolog.Logger
	metrics *obs.Metrics
}

func NewExporter(saver Saver, keyword string, logger *zerolog.Logger, metrics *obs.Metrics) *Exporter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{saver: saver, keyword: strings.ToLower(keyword), now: time.Now, logger: logger, metrics: metrics}
}

var unsafeFilenameChars = strings.NewReplacer(
	":", "-", "/", "-", "\\", "-", "*", "-", "?", "-", "\"", "-", "<", "-", ">", "-", "|", "-",
)

// SafeFilename replaces characters that are not allowed in file names with a hyphen.
func SafeFilename(name string) string { return unsafeFilenameChars.Replace(name) }

// DefaultFilename names a capture export after the given time.
func DefaultFilename(now time.Time) string {
	return SafeFilename("feed-requests-" + FormatISO(now) + ".har")
}

// Export writes records as a log document named after the current time.
func (e *Exporter) Export(ctx context.Context, records []domain.CapturedExchange) (Result, error) {
	doc := Build(records)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		e.count("capture", "error")
		return Result{}, fmt.Errorf("marshal log: %w", err)
	}
	name := DefaultFilename(e.now())
	loc, err := e.saver.Save(ctx, name, data)
	if err != nil {
		e.count("capture", "error")
		return Result{}, fmt.Errorf("save %s: %w", name, err)
	}
	e.count("capture", "ok")
	e.logger.Info().Str("file", loc).Int("count", len(records)).Msg("capture exported")
	return Result{Filename: name, Location: loc, Count: len(records)}, nil
}

// ExportHAR filters a host-assembled HAR by keyword and saves it. Nothing is saved
// when the host cannot provide a complete document.
func (e *Exporter) ExportHAR(ctx context.Context, src HARSource, filename string) (Result, error) {
	h, err := src.HAR(ctx)
	if err != nil {
		e.count("har", "error")
		e.logger.Error().Err(err).Msg("host har unavailable")
		return Result{}, fmt.Errorf("get host har: %w", err)
	}
	if h == nil || h.Log == nil {
		e.count("har", "error")
		return Result{}, ErrNoHARLog
	}
	kept := make([]*har.Entry, 0, len(h.Log.Entries))
	for _, entry := range h.Log.Entries {
		if entry == nil || entry.Request == nil {
			continue
		}
		if strings.Contains(strings.ToLower(entry.Request.URL), e.keyword) {
			kept = append(kept, entry)
		}
	}
	h.Log.Entries = kept

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		e.count("har", "error")
		return Result{}, fmt.Errorf("marshal har: %w", err)
	}
	if filename == "" {
		filename = DefaultHARFilename
	}
	filename = SafeFilename(filename)
	loc, err := e.saver.Save(ctx, filename, data)
	if err != nil {
		e.count("har", "error")
		return Result{}, fmt.Errorf("save %s: %w", filename, err)
	}
	e.count("har", "ok")
	e.logger.Info().Str("file", loc).Int("count", len(kept)).Msg("har exported")
	return Result{Filename: filename, Location: loc, Count: len(kept)}, nil
}

func (e *Exporter) count(kind, result string) {
	if e.metrics != nil {
		e.metrics.ExportsTotal.WithLabelValues(kind, result).Inc()
	}
}

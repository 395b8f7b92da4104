// Package capture accumulates completed network exchanges whose URL matches a keyword.
package capture

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	obs "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/observability"
	"github.com/Sangdi-IT/yq-monitor/pkg/shared/redact"
)

const DefaultKeyword = "feed"

// Recorder holds the exchange sequence for one page-context session.
// The sequence is unbounded while armed.
type Recorder struct {
	mu        sync.Mutex
	armed     bool
	keyword   string
	exchanges []domain.CapturedExchange

	logger  *zerolog.Logger
	metrics *obs.Metrics
}

func NewRecorder(keyword string, logger *zerolog.Logger, metrics *obs.Metrics) *Recorder {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		keyword = DefaultKeyword
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Recorder{keyword: keyword, logger: logger, metrics: metrics}
}

func (r *Recorder) Keyword() string { return r.keyword }

// Matches reports whether url contains the keyword, ignoring case.
func (r *Recorder) Matches(url string) bool {
	return strings.Contains(strings.ToLower(url), r.keyword)
}

// Arm clears the sequence and starts accepting exchanges.
func (r *Recorder) Arm() {
	r.mu.Lock()
	r.exchanges = nil
	r.armed = true
	r.mu.Unlock()
	r.logger.Info().Str("keyword", r.keyword).Msg("capture armed")
}

// Disarm stops accepting exchanges and returns the final sequence.
func (r *Recorder) Disarm() []domain.CapturedExchange {
	r.mu.Lock()
	r.armed = false
	out := make([]domain.CapturedExchange, len(r.exchanges))
	copy(out, r.exchanges)
	r.mu.Unlock()
	r.logger.Info().Int("count", len(out)).Msg("capture disarmed")
	return out
}

// Observe appends ex when armed and its URL matches. It reports whether ex was accepted.
func (r *Recorder) Observe(ex domain.CapturedExchange) bool {
	if !r.Matches(ex.URL) {
		return false
	}
	r.mu.Lock()
	if !r.armed {
		r.mu.Unlock()
		return false
	}
	r.exchanges = append(r.exchanges, ex)
	n := len(r.exchanges)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.CapturedExchanges.Inc()
	}
	r.logger.Debug().Str("url", redact.URL(ex.URL)).Int("status", ex.StatusCode).Int("n", n).Msg("exchange captured")
	return true
}

// Snapshot returns a copy of the sequence without changing the armed state.
func (r *Recorder) Snapshot() []domain.CapturedExchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CapturedExchange, len(r.exchanges))
	copy(out, r.exchanges)
	return out
}

func (r *Recorder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exchanges)
}

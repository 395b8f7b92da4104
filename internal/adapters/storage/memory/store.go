package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
	"github.com/Sangdi-IT/yq-monitor/internal/usecase"
)

// Store is a bounded, process-local export history. Oldest records are evicted
// first, by capacity and by age.
type Store struct {
	mu sync.RWMutex
	// insertion order of record ids
	order []string
	items map[string]domain.ExportRecord

	maxRecords int
	ttl        time.Duration
	now        func() time.Time
}

var _ usecase.ExportRepository = (*Store)(nil)

func NewStore(maxRecords int, ttl time.Duration) *Store {
	if maxRecords <= 0 {
		maxRecords = 100
	}
	return &Store{
		order:      make([]string, 0, maxRecords),
		items:      make(map[string]domain.ExportRecord, maxRecords),
		maxRecords: maxRecords,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *Store) AppendExport(ctx context.Context, rec domain.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	if _, dup := s.items[rec.ID]; dup {
		s.items[rec.ID] = rec
		return nil
	}
	if len(s.order) >= s.maxRecords {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	s.items[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return nil
}

// ListExports returns matching records newest first, with the total before paging.
func (s *Store) ListExports(ctx context.Context, f usecase.ExportFilter) ([]domain.ExportRecord, int, error) {
	s.mu.Lock()
	s.evictExpiredLocked()
	results := make([]domain.ExportRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.items[s.order[i]]
		if f.Kind != nil && rec.Kind != *f.Kind {
			continue
		}
		if f.Q != "" && !strings.Contains(strings.ToLower(rec.Filename), strings.ToLower(f.Q)) {
			continue
		}
		results = append(results, rec)
	}
	s.mu.Unlock()

	total := len(results)
	start := f.Offset
	if start > total {
		start = total
	}
	if start < 0 {
		start = 0
	}
	end := start + f.Limit
	if f.Limit <= 0 || end > total {
		end = total
	}
	return results[start:end], total, nil
}

func (s *Store) ClearExports(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]domain.ExportRecord, len(s.items))
	s.order = s.order[:0]
	return nil
}

func (s *Store) evictExpiredLocked() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	i := 0
	for i < len(s.order) {
		id := s.order[i]
		if now.Sub(s.items[id].CreatedAt) > s.ttl {
			delete(s.items, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			continue
		}
		i++
	}
}

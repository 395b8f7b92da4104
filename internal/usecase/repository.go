package usecase

import (
	"context"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

// ExportRepository keeps the history of completed exports.
type ExportRepository interface {
	AppendExport(ctx context.Context, rec domain.ExportRecord) error
	ListExports(ctx context.Context, f ExportFilter) ([]domain.ExportRecord, int, error)
	ClearExports(ctx context.Context) error
}

type ExportFilter struct {
	Kind   *domain.ExportKind // nil: any
	Q      string             // substring of the file name
	Limit  int
	Offset int
}

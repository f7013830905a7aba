package driven

import (
	"context"

	"github.com/intunetools/intune-export/internal/domain/model"
)

// ExportStore defines the driven port for export history persistence.
type ExportStore interface {
	Add(ctx context.Context, rec model.ExportRecord) error
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.ExportRecord, error)
}

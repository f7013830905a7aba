package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

// defaultHistoryLimit bounds the history page when the caller passes no
// explicit limit.
const defaultHistoryLimit = 50

// ExportService writes the working table to disk and records the export in
// local history. An optional DashboardOpener hands the finished file off to
// an external tool.
type ExportService struct {
	writer  driven.TableWriter
	history driven.ExportStore
	opener  driven.DashboardOpener
	logger  *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewExportService creates an ExportService. opener may be nil.
func NewExportService(writer driven.TableWriter, history driven.ExportStore, opener driven.DashboardOpener) *ExportService {
	return &ExportService{
		writer:  writer,
		history: history,
		opener:  opener,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Export writes the selected columns of table to destination and records the
// result. With openAfter set, the finished file is handed to the dashboard
// opener; a failing handoff is logged and does not fail the export.
func (s *ExportService) Export(ctx context.Context, table *model.ReportTable, sel model.ColumnSelection, destination string, openAfter bool) (model.ExportResult, error) {
	result, err := s.writer.Write(table, sel, destination)
	if err != nil {
		return model.ExportResult{}, err
	}

	rec := model.ExportRecord{
		ID:          s.newID(),
		Report:      table.Report,
		Destination: result.Path,
		Format:      result.Format,
		Columns:     result.Columns,
		Rows:        result.Rows,
		SizeBytes:   result.SizeBytes,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.history.Add(ctx, rec); err != nil {
		// The file on disk is the deliverable; history is best effort.
		s.logger.Warn("could not record export history", "destination", result.Path, "error", err)
	}

	s.logger.Info("export written",
		"report", table.Report,
		"destination", result.Path,
		"rows", result.Rows,
		"columns", result.Columns,
		"bytes", result.SizeBytes,
	)

	if openAfter && s.opener != nil {
		if err := s.opener.Open(ctx, result.Path); err != nil {
			s.logger.Warn("could not open export in dashboard tool", "destination", result.Path, "error", err)
		}
	}

	return result, nil
}

// History returns the most recent exports, newest first.
func (s *ExportService) History(ctx context.Context, limit int) ([]model.ExportRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.history.ListRecent(ctx, limit)
}

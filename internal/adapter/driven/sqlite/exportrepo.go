package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ExportStore = (*ExportRepo)(nil)

// ExportRepo is the SQLite implementation of the ExportStore port.
type ExportRepo struct {
	db *DB
}

// NewExportRepo creates an ExportRepo backed by the given DB.
func NewExportRepo(db *DB) *ExportRepo {
	return &ExportRepo{db: db}
}

// Add appends a completed export to the history.
func (r *ExportRepo) Add(ctx context.Context, rec model.ExportRecord) error {
	const query = `
		INSERT INTO exports (id, report, destination, format, columns, rows, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.ID, rec.Report, rec.Destination, string(rec.Format),
		rec.Columns, rec.Rows, rec.SizeBytes, rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("add export record %q: %w", rec.ID, err)
	}

	return nil
}

// ListRecent returns up to limit export records, newest first.
func (r *ExportRepo) ListRecent(ctx context.Context, limit int) ([]model.ExportRecord, error) {
	const query = `
		SELECT id, report, destination, format, columns, rows, size_bytes, created_at
		FROM exports
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list export records: %w", err)
	}
	defer rows.Close()

	var recs []model.ExportRecord
	for rows.Next() {
		var rec model.ExportRecord
		var format, createdAt string
		if err := rows.Scan(&rec.ID, &rec.Report, &rec.Destination, &format,
			&rec.Columns, &rec.Rows, &rec.SizeBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan export record: %w", err)
		}

		rec.Format = model.ExportFormat(format)
		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for export %q: %w", rec.ID, err)
		}

		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export records: %w", err)
	}

	return recs, nil
}

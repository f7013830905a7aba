// Package exporter writes report tables to CSV and XLSX files on the local
// filesystem.
package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TableWriter = (*Writer)(nil)

// Writer implements the driven.TableWriter port. The output format is chosen
// by the destination's file extension (.csv or .xlsx).
type Writer struct{}

// NewWriter creates a Writer.
func NewWriter() *Writer { return &Writer{} }

// Write serializes the selected columns of table to destination, overwriting
// any existing file, and drops a JSON metadata sidecar next to it. Output is
// deterministic for identical inputs.
func (w *Writer) Write(table *model.ReportTable, sel model.ColumnSelection, destination string) (model.ExportResult, error) {
	format, err := formatForPath(destination)
	if err != nil {
		return model.ExportResult{}, err
	}

	switch format {
	case model.FormatCSV:
		err = writeCSV(table, sel, destination)
	case model.FormatXLSX:
		err = writeXLSX(table, sel, destination)
	}
	if err != nil {
		return model.ExportResult{}, err
	}

	info, err := os.Stat(destination)
	if err != nil {
		return model.ExportResult{}, &model.IOError{Path: destination, Err: err}
	}

	result := model.ExportResult{
		Path:      destination,
		Format:    format,
		Columns:   sel.Len(),
		Rows:      len(table.Rows),
		SizeBytes: info.Size(),
	}

	if err := writeSidecar(table, sel, destination, result); err != nil {
		return model.ExportResult{}, err
	}

	return result, nil
}

// formatForPath maps the destination extension onto an export format.
func formatForPath(destination string) (model.ExportFormat, error) {
	switch strings.ToLower(filepath.Ext(destination)) {
	case ".csv":
		return model.FormatCSV, nil
	case ".xlsx":
		return model.FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export extension %q (use .csv or .xlsx)", filepath.Ext(destination))
	}
}

// sidecar is the JSON metadata written next to every export.
type sidecar struct {
	Report     string   `json:"report"`
	Format     string   `json:"format"`
	Columns    []string `json:"columns"`
	Rows       int      `json:"rows"`
	SizeBytes  int64    `json:"sizeBytes"`
	ExportedAt string   `json:"exportedAt"`
}

// SidecarPath returns the metadata path for an export destination.
func SidecarPath(destination string) string {
	return strings.TrimSuffix(destination, filepath.Ext(destination)) + ".json"
}

func writeSidecar(table *model.ReportTable, sel model.ColumnSelection, destination string, result model.ExportResult) error {
	meta := sidecar{
		Report:     table.Report,
		Format:     string(result.Format),
		Columns:    sel.Columns(),
		Rows:       result.Rows,
		SizeBytes:  result.SizeBytes,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export metadata: %w", err)
	}

	path := SidecarPath(destination)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &model.IOError{Path: path, Err: err}
	}
	return nil
}

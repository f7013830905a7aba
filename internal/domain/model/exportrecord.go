package model

import "time"

// ExportFormat is the on-disk file format of an export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ExportRecord is one completed export, kept in local history.
type ExportRecord struct {
	ID          string
	Report      string
	Destination string
	Format      ExportFormat
	Columns     int
	Rows        int
	SizeBytes   int64
	CreatedAt   time.Time
}

// ExportResult is what a table writer reports back after writing a file.
type ExportResult struct {
	Path      string
	Format    ExportFormat
	Columns   int
	Rows      int
	SizeBytes int64
}

package exporter

import (
	"bufio"
	"encoding/csv"
	"os"

	"github.com/intunetools/intune-export/internal/domain/model"
)

// utf8BOM makes Excel detect the encoding when double-clicking the file.
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

func writeCSV(table *model.ReportTable, sel model.ColumnSelection, destination string) error {
	f, err := os.Create(destination)
	if err != nil {
		return &model.IOError{Path: destination, Err: err}
	}

	buf := bufio.NewWriter(f)
	if _, err := buf.Write(utf8BOM); err != nil {
		_ = f.Close()
		return &model.IOError{Path: destination, Err: err}
	}

	columns := sel.Columns()
	w := csv.NewWriter(buf)
	if err := w.Write(columns); err != nil {
		_ = f.Close()
		return &model.IOError{Path: destination, Err: err}
	}

	record := make([]string, len(columns))
	for _, row := range table.Rows {
		for i, col := range columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return &model.IOError{Path: destination, Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return &model.IOError{Path: destination, Err: err}
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return &model.IOError{Path: destination, Err: err}
	}
	if err := f.Close(); err != nil {
		return &model.IOError{Path: destination, Err: err}
	}
	return nil
}

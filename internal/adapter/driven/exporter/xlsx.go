package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/intunetools/intune-export/internal/domain/model"
)

const sheetName = "Report"

func writeXLSX(table *model.ReportTable, sel model.ColumnSelection, destination string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	columns := sel.Columns()
	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	record := make([]any, len(columns))
	for i, row := range table.Rows {
		for j, col := range columns {
			record[j] = row[col]
		}
		// Row 1 is the header.
		if err := setRow(f, i+2, record); err != nil {
			return err
		}
	}

	if err := f.SaveAs(destination); err != nil {
		return &model.IOError{Path: destination, Err: err}
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

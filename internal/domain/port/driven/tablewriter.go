package driven

import (
	"github.com/intunetools/intune-export/internal/domain/model"
)

// TableWriter defines the driven port for serializing a column-filtered table
// to a local file. Write is deterministic: repeating it with the same inputs
// overwrites the destination with identical content.
type TableWriter interface {
	Write(table *model.ReportTable, sel model.ColumnSelection, destination string) (model.ExportResult, error)
}

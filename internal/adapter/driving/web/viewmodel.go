package web

import (
	"fmt"
	"html/template"
	"time"

	"github.com/intunetools/intune-export/internal/application"
	"github.com/intunetools/intune-export/internal/domain/model"
)

// basePage carries the fields every page template needs.
type basePage struct {
	Title     string
	SignedIn  bool
	User      model.UserInfo
	CSRFToken string
}

type loginPage struct {
	basePage
	Message string
}

type reportsPage struct {
	basePage
	Reports []reportVM
}

type reportVM struct {
	Name            string
	DisplayName     string
	DescriptionHTML template.HTML
	Kind            string
	Permission      string
	Granted         bool
	Slow            bool // export-job reports can take minutes
}

type columnsPage struct {
	basePage
	Report      string
	DisplayName string
	RowCount    int
	IDColumn    string
	Columns     []columnVM
	Destination string
}

type columnVM struct {
	Name   string
	Forced bool // identifying column, always exported
}

type resultPage struct {
	basePage
	Report    string
	Path      string
	Format    string
	Rows      int
	Columns   int
	SizeHuman string
}

type historyPage struct {
	basePage
	Records []exportRecordVM
}

type exportRecordVM struct {
	Report      string
	Destination string
	Format      string
	Columns     int
	Rows        int
	SizeHuman   string
	CreatedAt   string
}

type errorPage struct {
	basePage
	Message string
}

func toReportVM(entry application.CatalogEntry) reportVM {
	def := entry.Definition
	return reportVM{
		Name:            def.Name,
		DisplayName:     def.DisplayName,
		DescriptionHTML: template.HTML(RenderMarkdown(def.Description)),
		Kind:            string(def.Kind),
		Permission:      def.RequiredPermission,
		Granted:         entry.Granted,
		Slow:            def.Kind == model.ReportKindExportJob,
	}
}

func toExportRecordVM(rec model.ExportRecord) exportRecordVM {
	return exportRecordVM{
		Report:      rec.Report,
		Destination: rec.Destination,
		Format:      string(rec.Format),
		Columns:     rec.Columns,
		Rows:        rec.Rows,
		SizeHuman:   humanSize(rec.SizeBytes),
		CreatedAt:   rec.CreatedAt.Local().Format(time.DateTime),
	}
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

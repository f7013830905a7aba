package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

// CatalogEntry pairs a report definition with whether the tenant granted the
// permission it needs.
type CatalogEntry struct {
	Definition model.ReportDefinition
	Granted    bool
}

// ReportService retrieves report datasets and holds the one dataset the user
// is currently working with. A fetched table stays in memory until it is
// exported or discarded; there is no partial retrieval.
type ReportService struct {
	graph  driven.GraphClient
	auth   *AuthService
	logger *slog.Logger

	mu         sync.Mutex
	current    *model.ReportTable
	currentDef model.ReportDefinition
}

// NewReportService creates a ReportService.
func NewReportService(graph driven.GraphClient, auth *AuthService) *ReportService {
	return &ReportService{
		graph:  graph,
		auth:   auth,
		logger: slog.Default(),
	}
}

// Catalog returns every report with its permission flag resolved against the
// signed-in session.
func (s *ReportService) Catalog() []CatalogEntry {
	defs := model.Catalog()
	entries := make([]CatalogEntry, 0, len(defs))
	for _, def := range defs {
		entries = append(entries, CatalogEntry{
			Definition: def,
			Granted:    s.auth.HasScope(def.RequiredPermission),
		})
	}
	return entries
}

// Fetch retrieves the named report's complete dataset and makes it the
// current working table, replacing any previous one.
func (s *ReportService) Fetch(ctx context.Context, name string) (*model.ReportTable, error) {
	def, ok := model.LookupReport(name)
	if !ok {
		return nil, fmt.Errorf("unknown report %q", name)
	}

	if err := s.auth.EnsureValid(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var table *model.ReportTable
	var err error
	switch def.Kind {
	case model.ReportKindDirect:
		table, err = s.graph.FetchDirectReport(ctx, def)
	case model.ReportKindExportJob:
		table, err = s.graph.RunExportJob(ctx, def)
	default:
		return nil, fmt.Errorf("report %q has unknown kind %q", name, def.Kind)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("report fetched",
		"report", def.Name,
		"rows", len(table.Rows),
		"columns", len(table.Columns),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	s.mu.Lock()
	s.current = table
	s.currentDef = def
	s.mu.Unlock()

	return table, nil
}

// Current returns the working table, or false when nothing is fetched.
func (s *ReportService) Current() (*model.ReportTable, model.ReportDefinition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.currentDef, s.current != nil
}

// Select validates the kept columns against the current table. The report's
// identifying column is always retained.
func (s *ReportService) Select(keep []string) (model.ColumnSelection, error) {
	s.mu.Lock()
	table, def := s.current, s.currentDef
	s.mu.Unlock()

	if table == nil {
		return model.ColumnSelection{}, fmt.Errorf("no report fetched")
	}
	return model.NewColumnSelection(table, keep, model.EffectiveIDColumn(table, def))
}

// Discard drops the working table without exporting it.
func (s *ReportService) Discard() {
	s.mu.Lock()
	s.current = nil
	s.currentDef = model.ReportDefinition{}
	s.mu.Unlock()
}

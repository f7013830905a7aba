// Package httphandler implements the JSON API driving adapter. It exposes the
// same operations as the web GUI for scripted use against the local server.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/intunetools/intune-export/internal/application"
	"github.com/intunetools/intune-export/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	auth    *application.AuthService
	reports *application.ReportService
	exports *application.ExportService
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(auth *application.AuthService, reports *application.ReportService, exports *application.ExportService, logger *slog.Logger) *Handler {
	return &Handler{
		auth:    auth,
		reports: reports,
		exports: exports,
		logger:  logger,
	}
}

// RegisterRoutes registers all API routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/session", h.Session)
	mux.HandleFunc("GET /api/v1/reports", h.ListReports)
	mux.HandleFunc("POST /api/v1/reports/{name}/fetch", h.FetchReport)
	mux.HandleFunc("POST /api/v1/export", h.Export)
	mux.HandleFunc("GET /api/v1/exports", h.ListExports)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Session reports the sign-in state.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{
		SignedIn:      h.auth.SignedIn(),
		GrantedScopes: h.auth.GrantedScopes(),
	}
	if resp.SignedIn {
		user := h.auth.User()
		resp.DisplayName = user.DisplayName
		resp.UserPrincipalName = user.UserPrincipalName
	}
	if resp.GrantedScopes == nil {
		resp.GrantedScopes = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListReports returns the catalog with permission flags.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	entries := h.reports.Catalog()
	out := make([]ReportResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toReportResponse(entry))
	}
	writeJSON(w, http.StatusOK, out)
}

// FetchReport retrieves the named dataset and makes it the working table.
func (h *Handler) FetchReport(w http.ResponseWriter, r *http.Request) {
	table, err := h.reports.Fetch(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, FetchResponse{
		Report:  table.Report,
		Rows:    len(table.Rows),
		Columns: table.Columns,
	})
}

// Export writes the working table with the requested columns. An empty column
// list exports everything.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Destination == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}

	table, _, ok := h.reports.Current()
	if !ok {
		writeError(w, http.StatusConflict, "no report fetched")
		return
	}

	var sel model.ColumnSelection
	var err error
	if len(req.Columns) == 0 {
		sel = model.SelectAll(table)
	} else {
		sel, err = h.reports.Select(req.Columns)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := h.exports.Export(r.Context(), table, sel, req.Destination, req.OpenAfter)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.reports.Discard()

	writeJSON(w, http.StatusOK, ExportResponse{
		Path:      result.Path,
		Format:    string(result.Format),
		Columns:   result.Columns,
		Rows:      result.Rows,
		SizeBytes: result.SizeBytes,
	})
}

// ListExports returns recent history, newest first. limit defaults in the
// service.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	recs, err := h.exports.History(r.Context(), limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	out := make([]ExportRecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toExportRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeFailure maps domain errors onto API status codes.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("api request failed", "path", r.URL.Path, "error", err)

	var authErr *model.AuthError
	var apiErr *model.ApiError
	var ioErr *model.IOError
	switch {
	case errors.As(err, &authErr):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &ioErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/intunetools/intune-export/internal/application"
	"github.com/intunetools/intune-export/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SessionResponse is the JSON representation of the sign-in state.
type SessionResponse struct {
	SignedIn          bool     `json:"signed_in"`
	DisplayName       string   `json:"display_name,omitempty"`
	UserPrincipalName string   `json:"user_principal_name,omitempty"`
	GrantedScopes     []string `json:"granted_scopes"`
}

// ReportResponse is the JSON representation of a catalog entry.
type ReportResponse struct {
	Name               string `json:"name"`
	DisplayName        string `json:"display_name"`
	Kind               string `json:"kind"`
	RequiredPermission string `json:"required_permission"`
	Granted            bool   `json:"granted"`
}

// FetchResponse reports the shape of a freshly fetched dataset.
type FetchResponse struct {
	Report  string   `json:"report"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// ExportRequest is the JSON body for the export endpoint.
type ExportRequest struct {
	Destination string   `json:"destination"`
	Columns     []string `json:"columns"`
	OpenAfter   bool     `json:"open_after"`
}

// ExportResponse is the JSON representation of a finished export.
type ExportResponse struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	Columns   int    `json:"columns"`
	Rows      int    `json:"rows"`
	SizeBytes int64  `json:"size_bytes"`
}

// ExportRecordResponse is the JSON representation of a history entry.
type ExportRecordResponse struct {
	ID          string `json:"id"`
	Report      string `json:"report"`
	Destination string `json:"destination"`
	Format      string `json:"format"`
	Columns     int    `json:"columns"`
	Rows        int    `json:"rows"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toReportResponse(entry application.CatalogEntry) ReportResponse {
	def := entry.Definition
	return ReportResponse{
		Name:               def.Name,
		DisplayName:        def.DisplayName,
		Kind:               string(def.Kind),
		RequiredPermission: def.RequiredPermission,
		Granted:            entry.Granted,
	}
}

func toExportRecordResponse(rec model.ExportRecord) ExportRecordResponse {
	return ExportRecordResponse{
		ID:          rec.ID,
		Report:      rec.Report,
		Destination: rec.Destination,
		Format:      string(rec.Format),
		Columns:     rec.Columns,
		Rows:        rec.Rows,
		SizeBytes:   rec.SizeBytes,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

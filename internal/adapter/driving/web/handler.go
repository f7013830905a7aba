// Package web implements the HTML GUI driving adapter: sign-in, report
// catalog, column selection and export pages rendered from embedded
// templates.
package web

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/intunetools/intune-export/internal/application"
	"github.com/intunetools/intune-export/internal/domain/model"
)

// pageNames lists the page templates, each paired with layout.html.
var pageNames = []string{"login", "reports", "columns", "result", "history", "error"}

// Handler is the web GUI driving adapter.
type Handler struct {
	auth    *application.AuthService
	reports *application.ReportService
	exports *application.ExportService
	logger  *slog.Logger

	templates map[string]*template.Template
}

// NewHandler creates a Handler, parsing the embedded page templates.
func NewHandler(auth *application.AuthService, reports *application.ReportService, exports *application.ExportService, logger *slog.Logger) (*Handler, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(TemplateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = t
	}

	return &Handler{
		auth:      auth,
		reports:   reports,
		exports:   exports,
		logger:    logger,
		templates: templates,
	}, nil
}

// render writes the named page. data must embed basePage.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := h.templates[name]
	if !ok {
		h.logger.Error("unknown page template", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("render failed", "page", name, "error", err)
	}
}

func (h *Handler) base(w http.ResponseWriter, r *http.Request, title string) basePage {
	return basePage{
		Title:     title,
		SignedIn:  h.auth.SignedIn(),
		User:      h.auth.User(),
		CSRFToken: csrfToken(w, r),
	}
}

// renderError shows the error page with the failure classified for the user.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	var authErr *model.AuthError
	var apiErr *model.ApiError
	switch {
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
		message = fmt.Sprintf("Microsoft Graph rejected the request (HTTP %d, %s): %s",
			apiErr.StatusCode, apiErr.Code, apiErr.Message)
	}

	h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	h.render(w, status, "error", errorPage{
		basePage: h.base(w, r, "Error"),
		Message:  message,
	})
}

// Home shows the sign-in page, or forwards a signed-in user to the catalog.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if h.auth.SignedIn() {
		http.Redirect(w, r, "/reports", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "login", loginPage{basePage: h.base(w, r, "Sign in")})
}

// SignIn starts the interactive sign-in by redirecting to the authorize URL.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	authURL, err := h.auth.BeginSignIn()
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// AuthCallback completes the OAuth2 flow.
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		h.render(w, http.StatusOK, "login", loginPage{
			basePage: h.base(w, r, "Sign in"),
			Message:  fmt.Sprintf("Sign-in was not completed: %s (%s)", errCode, q.Get("error_description")),
		})
		return
	}

	if _, err := h.auth.CompleteSignIn(r.Context(), q.Get("state"), q.Get("code")); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/reports", http.StatusSeeOther)
}

// SignOut drops the session.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	if err := h.auth.SignOut(r.Context()); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Reports shows the report catalog with permission flags.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	entries := h.reports.Catalog()
	vms := make([]reportVM, 0, len(entries))
	for _, entry := range entries {
		vms = append(vms, toReportVM(entry))
	}

	h.render(w, http.StatusOK, "reports", reportsPage{
		basePage: h.base(w, r, "Reports"),
		Reports:  vms,
	})
}

// FetchReport retrieves the named report's dataset and forwards to the column
// page.
func (h *Handler) FetchReport(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	name := r.PathValue("name")
	if _, err := h.reports.Fetch(r.Context(), name); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/columns", http.StatusSeeOther)
}

// Columns shows the column picker for the current dataset.
func (h *Handler) Columns(w http.ResponseWriter, r *http.Request) {
	table, def, ok := h.reports.Current()
	if !ok {
		http.Redirect(w, r, "/reports", http.StatusSeeOther)
		return
	}

	idColumn := model.EffectiveIDColumn(table, def)
	cols := make([]columnVM, 0, len(table.Columns))
	for _, c := range table.Columns {
		cols = append(cols, columnVM{Name: c, Forced: c == idColumn})
	}

	h.render(w, http.StatusOK, "columns", columnsPage{
		basePage:    h.base(w, r, def.DisplayName),
		Report:      def.Name,
		DisplayName: def.DisplayName,
		RowCount:    len(table.Rows),
		IDColumn:    idColumn,
		Columns:     cols,
		Destination: def.Name + ".csv",
	})
}

// Export writes the current dataset with the confirmed columns.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	table, _, ok := h.reports.Current()
	if !ok {
		http.Redirect(w, r, "/reports", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	destination := strings.TrimSpace(r.PostForm.Get("destination"))
	if destination == "" {
		h.renderError(w, r, fmt.Errorf("no destination file given"))
		return
	}

	sel, err := h.reports.Select(r.PostForm["columns"])
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	openAfter := r.PostForm.Get("open_after") == "on"
	result, err := h.exports.Export(r.Context(), table, sel, destination, openAfter)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.reports.Discard()

	h.render(w, http.StatusOK, "result", resultPage{
		basePage:  h.base(w, r, "Export complete"),
		Report:    table.Report,
		Path:      result.Path,
		Format:    string(result.Format),
		Rows:      result.Rows,
		Columns:   result.Columns,
		SizeHuman: humanSize(result.SizeBytes),
	})
}

// History shows recent exports.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	recs, err := h.exports.History(r.Context(), 0)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	vms := make([]exportRecordVM, 0, len(recs))
	for _, rec := range recs {
		vms = append(vms, toExportRecordVM(rec))
	}

	h.render(w, http.StatusOK, "history", historyPage{
		basePage: h.base(w, r, "Export history"),
		Records:  vms,
	})
}

// requireSignIn redirects anonymous requests to the sign-in page.
func (h *Handler) requireSignIn(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.auth.SignedIn() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intunetools/intune-export/internal/adapter/driven/exporter"
	"github.com/intunetools/intune-export/internal/application"
	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

type stubIdentityProvider struct{}

func (stubIdentityProvider) AuthCodeURL(state string) string {
	return "https://login.example.com/authorize?state=" + state
}

func (stubIdentityProvider) Exchange(context.Context, string) (model.Credential, error) {
	return model.Credential{AccessToken: "at-1", RefreshToken: "rt-1", Expiry: time.Now().Add(time.Hour)}, nil
}

func (stubIdentityProvider) Refresh(context.Context, string) (model.Credential, error) {
	return model.Credential{AccessToken: "at-2", Expiry: time.Now().Add(time.Hour)}, nil
}

func (stubIdentityProvider) GrantedScopes(string) ([]string, error) { return nil, nil }

type stubGraphClient struct {
	table *model.ReportTable
}

func (s *stubGraphClient) SignedInUser(context.Context) (model.UserInfo, error) {
	return model.UserInfo{DisplayName: "Avery Admin", UserPrincipalName: "avery@contoso.com"}, nil
}

func (s *stubGraphClient) FetchDirectReport(_ context.Context, def model.ReportDefinition) (*model.ReportTable, error) {
	t := *s.table
	t.Report = def.Name
	return &t, nil
}

func (s *stubGraphClient) RunExportJob(_ context.Context, def model.ReportDefinition) (*model.ReportTable, error) {
	return s.FetchDirectReport(context.Background(), def)
}

type nopCredentialStore struct{}

func (nopCredentialStore) Set(context.Context, string, string) error { return nil }
func (nopCredentialStore) Get(context.Context, string) (string, error) {
	return "", nil
}
func (nopCredentialStore) Delete(context.Context, string) error { return nil }

type memHistory struct {
	mu   sync.Mutex
	recs []model.ExportRecord
}

func (m *memHistory) Add(_ context.Context, rec model.ExportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memHistory) ListRecent(_ context.Context, limit int) ([]model.ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ExportRecord, 0, limit)
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}

// harness wires a Handler over real services with stubbed driven adapters.
type harness struct {
	mux     *http.ServeMux
	auth    *application.AuthService
	history *memHistory
	cookies []*http.Cookie
}

var _ driven.CredentialStore = nopCredentialStore{}
var _ driven.ExportStore = (*memHistory)(nil)

func newHarness(t *testing.T) *harness {
	t.Helper()

	graph := &stubGraphClient{table: &model.ReportTable{
		Columns: []string{"deviceName", "operatingSystem", "complianceState"},
		Rows: []model.ReportRow{
			{"deviceName": "LAPTOP-01", "operatingSystem": "Windows", "complianceState": "compliant"},
		},
	}}

	auth := application.NewAuthService(stubIdentityProvider{}, nopCredentialStore{})
	auth.AttachGraph(graph)
	reports := application.NewReportService(graph, auth)
	history := &memHistory{}
	exports := application.NewExportService(exporter.NewWriter(), history, nil)

	h, err := NewHandler(auth, reports, exports, slog.Default())
	require.NoError(t, err)

	mux := http.NewServeMux()
	RegisterRoutes(mux, h)

	return &harness{mux: mux, auth: auth, history: history}
}

// signIn establishes a session directly on the auth service.
func (h *harness) signIn(t *testing.T) {
	t.Helper()
	rawURL, err := h.auth.BeginSignIn()
	require.NoError(t, err)
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	_, err = h.auth.CompleteSignIn(context.Background(), u.Query().Get("state"), "the-code")
	require.NoError(t, err)
}

// do performs a request carrying the harness cookies and captures new ones.
func (h *harness) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range h.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	h.cookies = append(h.cookies, rec.Result().Cookies()...)
	return rec
}

// csrf fetches a page to obtain the CSRF token.
func (h *harness) csrf(t *testing.T) string {
	t.Helper()
	h.do(t, http.MethodGet, "/", nil)
	h.do(t, http.MethodGet, "/reports", nil)
	for _, c := range h.cookies {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	t.Fatal("no csrf cookie set")
	return ""
}

func TestHome_Anonymous(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in with Microsoft")
}

func TestHome_SignedInRedirectsToReports(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	rec := h.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/reports", rec.Header().Get("Location"))
}

func TestSignIn_RequiresCSRF(t *testing.T) {
	h := newHarness(t)
	h.csrf(t)

	rec := h.do(t, http.MethodPost, "/auth/signin", url.Values{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignIn_RedirectsToAuthorizeURL(t *testing.T) {
	h := newHarness(t)
	token := h.csrf(t)

	rec := h.do(t, http.MethodPost, "/auth/signin", url.Values{csrfFormField: {token}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "login.example.com/authorize")
}

func TestAuthCallback_CompletesSignIn(t *testing.T) {
	h := newHarness(t)
	token := h.csrf(t)

	rec := h.do(t, http.MethodPost, "/auth/signin", url.Values{csrfFormField: {token}})
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")

	rec = h.do(t, http.MethodGet, "/auth/callback?state="+state+"&code=the-code", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/reports", rec.Header().Get("Location"))
	assert.True(t, h.auth.SignedIn())
}

func TestAuthCallback_ProviderError(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/auth/callback?error=access_denied&error_description=user+cancelled", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_denied")
	assert.False(t, h.auth.SignedIn())
}

func TestReports_AnonymousRedirected(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/reports", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestReports_ListsCatalog(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	rec := h.do(t, http.MethodGet, "/reports", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "All Managed Devices")
	assert.Contains(t, body, "Detected Malware")
	// Markdown descriptions are rendered to HTML.
	assert.Contains(t, body, "<strong>compliance state</strong>")
}

func TestColumns_WithoutFetchRedirects(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	rec := h.do(t, http.MethodGet, "/columns", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/reports", rec.Header().Get("Location"))
}

func TestFetchAndExportFlow(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	token := h.csrf(t)

	rec := h.do(t, http.MethodPost, "/reports/Devices/fetch", url.Values{csrfFormField: {token}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/columns", rec.Header().Get("Location"))

	rec = h.do(t, http.MethodGet, "/columns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "operatingSystem")

	dest := filepath.Join(t.TempDir(), "devices.csv")
	rec = h.do(t, http.MethodPost, "/export", url.Values{
		csrfFormField: {token},
		"columns":     {"deviceName", "operatingSystem"},
		"destination": {dest},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Export complete")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "\xef\xbb\xbfdeviceName,operatingSystem\nLAPTOP-01,Windows\n", string(data))

	// The export was recorded and the working table discarded.
	recs, err := h.history.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Devices", recs[0].Report)

	rec = h.do(t, http.MethodGet, "/columns", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestExport_RequiresCSRF(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	token := h.csrf(t)

	rec := h.do(t, http.MethodPost, "/reports/Devices/fetch", url.Values{csrfFormField: {token}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(t, http.MethodPost, "/export", url.Values{
		"columns":     {"deviceName"},
		"destination": {"devices.csv"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHistoryPage(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	require.NoError(t, h.history.Add(context.Background(), model.ExportRecord{
		ID: "export-1", Report: "Devices", Destination: "/tmp/devices.csv",
		Format: model.FormatCSV, Columns: 3, Rows: 12, SizeBytes: 2048,
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}))

	rec := h.do(t, http.MethodGet, "/history", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/tmp/devices.csv")
	assert.Contains(t, body, "2.0 KiB")
}

func TestSignOut(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	token := h.csrf(t)

	rec := h.do(t, http.MethodPost, "/auth/signout", url.Values{csrfFormField: {token}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, h.auth.SignedIn())
}

package application

import (
	"context"
	"errors"
	"sync"

	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

// mockIdentityProvider scripts the OAuth2 flow for service tests.
type mockIdentityProvider struct {
	exchangeCred model.Credential
	exchangeErr  error
	refreshCred  model.Credential
	refreshErr   error
	scopes       []string
	scopesErr    error

	exchangedCode    string
	refreshedToken   string
	refreshCallCount int
}

var _ driven.IdentityProvider = (*mockIdentityProvider)(nil)

func (m *mockIdentityProvider) AuthCodeURL(state string) string {
	return "https://login.example.com/authorize?state=" + state
}

func (m *mockIdentityProvider) Exchange(_ context.Context, code string) (model.Credential, error) {
	m.exchangedCode = code
	return m.exchangeCred, m.exchangeErr
}

func (m *mockIdentityProvider) Refresh(_ context.Context, refreshToken string) (model.Credential, error) {
	m.refreshedToken = refreshToken
	m.refreshCallCount++
	return m.refreshCred, m.refreshErr
}

func (m *mockIdentityProvider) GrantedScopes(string) ([]string, error) {
	return m.scopes, m.scopesErr
}

// mockGraphClient returns canned datasets.
type mockGraphClient struct {
	user      model.UserInfo
	userErr   error
	direct    *model.ReportTable
	directErr error
	job       *model.ReportTable
	jobErr    error

	fetchedDirect string
	ranJob        string
}

var _ driven.GraphClient = (*mockGraphClient)(nil)

func (m *mockGraphClient) SignedInUser(context.Context) (model.UserInfo, error) {
	return m.user, m.userErr
}

func (m *mockGraphClient) FetchDirectReport(_ context.Context, def model.ReportDefinition) (*model.ReportTable, error) {
	m.fetchedDirect = def.Name
	return m.direct, m.directErr
}

func (m *mockGraphClient) RunExportJob(_ context.Context, def model.ReportDefinition) (*model.ReportTable, error) {
	m.ranJob = def.Name
	return m.job, m.jobErr
}

// memCredentialStore is an in-memory CredentialStore.
type memCredentialStore struct {
	mu       sync.Mutex
	values   map[string]string
	disabled bool
}

var _ driven.CredentialStore = (*memCredentialStore)(nil)

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{values: map[string]string{}}
}

func (m *memCredentialStore) Set(_ context.Context, key, plaintext string) error {
	if m.disabled {
		return driven.ErrEncryptionKeyNotSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = plaintext
	return nil
}

func (m *memCredentialStore) Get(_ context.Context, key string) (string, error) {
	if m.disabled {
		return "", driven.ErrEncryptionKeyNotSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memCredentialStore) Delete(_ context.Context, key string) error {
	if m.disabled {
		return driven.ErrEncryptionKeyNotSet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// mockTableWriter records the write and fabricates a result.
type mockTableWriter struct {
	result   model.ExportResult
	err      error
	lastDest string
	lastSel  model.ColumnSelection
}

var _ driven.TableWriter = (*mockTableWriter)(nil)

func (m *mockTableWriter) Write(_ *model.ReportTable, sel model.ColumnSelection, destination string) (model.ExportResult, error) {
	m.lastDest = destination
	m.lastSel = sel
	if m.err != nil {
		return model.ExportResult{}, m.err
	}
	result := m.result
	if result.Path == "" {
		result.Path = destination
	}
	return result, nil
}

// memExportStore is an in-memory ExportStore.
type memExportStore struct {
	mu     sync.Mutex
	recs   []model.ExportRecord
	addErr error
}

var _ driven.ExportStore = (*memExportStore)(nil)

func (m *memExportStore) Add(_ context.Context, rec model.ExportRecord) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memExportStore) ListRecent(_ context.Context, limit int) ([]model.ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ExportRecord, 0, limit)
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}

// mockOpener records the handoff.
type mockOpener struct {
	err    error
	opened []string
}

var _ driven.DashboardOpener = (*mockOpener)(nil)

func (m *mockOpener) Open(_ context.Context, path string) error {
	m.opened = append(m.opened, path)
	return m.err
}

var errBoom = errors.New("boom")

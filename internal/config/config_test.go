package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every INTUNE_EXPORT_ env var that Load() reads.
var allConfigKeys = []string{
	"INTUNE_EXPORT_CLIENT_ID",
	"INTUNE_EXPORT_CLIENT_SECRET",
	"INTUNE_EXPORT_TENANT_ID",
	"INTUNE_EXPORT_LISTEN_ADDR",
	"INTUNE_EXPORT_DB_PATH",
	"INTUNE_EXPORT_SECRET_KEY",
	"INTUNE_EXPORT_JOB_TIMEOUT",
}

// isolateConfigEnv saves and unsets all INTUNE_EXPORT_ env vars so tests
// don't inherit values from the host environment.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("INTUNE_EXPORT_CLIENT_ID", "11111111-2222-3333-4444-555555555555")
	t.Setenv("INTUNE_EXPORT_TENANT_ID", "contoso.onmicrosoft.com")
	t.Setenv("INTUNE_EXPORT_LISTEN_ADDR", "127.0.0.1:9090")
	t.Setenv("INTUNE_EXPORT_DB_PATH", "/tmp/test.db")
	t.Setenv("INTUNE_EXPORT_JOB_TIMEOUT", "10m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", cfg.ClientID)
	assert.Equal(t, "contoso.onmicrosoft.com", cfg.TenantID)
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 10*time.Minute, cfg.ExportJobTimeout)
	assert.Equal(t, "http://127.0.0.1:9090/auth/callback", cfg.RedirectURL())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("INTUNE_EXPORT_CLIENT_ID", "client-id")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "organizations", cfg.TenantID)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "intune-export.db", cfg.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.ExportJobTimeout)
	assert.Nil(t, cfg.SecretKey)
}

func TestLoad_MissingClientID(t *testing.T) {
	isolateConfigEnv(t)

	_, err := Load()
	assert.ErrorContains(t, err, "INTUNE_EXPORT_CLIENT_ID")
}

func TestLoad_SecretKey(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("INTUNE_EXPORT_CLIENT_ID", "client-id")
	t.Setenv("INTUNE_EXPORT_SECRET_KEY", "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKeyWrongLength(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("INTUNE_EXPORT_CLIENT_ID", "client-id")
	t.Setenv("INTUNE_EXPORT_SECRET_KEY", "abcdef")

	_, err := Load()
	assert.ErrorContains(t, err, "32 bytes")
}

func TestLoad_InvalidJobTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("INTUNE_EXPORT_CLIENT_ID", "client-id")
	t.Setenv("INTUNE_EXPORT_JOB_TIMEOUT", "banana")

	_, err := Load()
	assert.ErrorContains(t, err, "INTUNE_EXPORT_JOB_TIMEOUT")
}

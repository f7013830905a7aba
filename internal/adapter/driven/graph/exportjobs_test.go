package graph

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intunetools/intune-export/internal/domain/model"
)

func malwareDefinition() model.ReportDefinition {
	return model.ReportDefinition{
		Name:     "Malware",
		Kind:     model.ReportKindExportJob,
		IDColumn: "DeviceName",
	}
}

func zipWithCSV(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRunExportJob_FullFlow(t *testing.T) {
	csvContent := "\xef\xbb\xbfDeviceName,MalwareName,Severity\nLAPTOP-01,EICAR-Test-File,low\nPHONE-07,Trickbot,high\n"

	mux := http.NewServeMux()
	var baseURL string
	polls := 0
	mux.HandleFunc("POST /beta/deviceManagement/reports/exportJobs", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Malware", body["reportName"])
		assert.Equal(t, "csv", body["format"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "job-1", "status": "notStarted"}`))
	})
	mux.HandleFunc("GET /beta/deviceManagement/reports/exportJobs('job-1')", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		polls++
		if polls < 2 {
			_, _ = w.Write([]byte(`{"id": "job-1", "status": "inProgress"}`))
			return
		}
		fmt.Fprintf(w, `{"id": "job-1", "status": "completed", "url": "%s/results/job-1.zip"}`, baseURL)
	})
	mux.HandleFunc("GET /results/job-1.zip", func(w http.ResponseWriter, r *http.Request) {
		// Result URLs are pre-authenticated; a bearer token must not be sent.
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write(zipWithCSV(t, "Malware_job-1.csv", csvContent))
	})

	client := newTestClient(t, mux)
	client.pollEvery = time.Millisecond
	baseURL = client.base

	table, err := client.RunExportJob(context.Background(), malwareDefinition())
	require.NoError(t, err)
	assert.Equal(t, []string{"DeviceName", "MalwareName", "Severity"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Trickbot", table.Rows[1]["MalwareName"])
	assert.GreaterOrEqual(t, polls, 2)
}

func TestRunExportJob_PlainCSVResult(t *testing.T) {
	mux := http.NewServeMux()
	var baseURL string
	mux.HandleFunc("POST /beta/deviceManagement/reports/exportJobs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": "job-2", "status": "completed", "url": "%s/results/job-2.csv"}`, baseURL)
	})
	mux.HandleFunc("GET /results/job-2.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("DeviceName,FirewallStatus\nLAPTOP-01,enabled\n"))
	})

	client := newTestClient(t, mux)
	client.pollEvery = time.Millisecond
	baseURL = client.base

	table, err := client.RunExportJob(context.Background(), malwareDefinition())
	require.NoError(t, err)
	assert.Equal(t, []string{"DeviceName", "FirewallStatus"}, table.Columns)
	require.Len(t, table.Rows, 1)
}

func TestRunExportJob_FailedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /beta/deviceManagement/reports/exportJobs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "job-3", "status": "failed"}`))
	})

	client := newTestClient(t, mux)
	client.pollEvery = time.Millisecond

	_, err := client.RunExportJob(context.Background(), malwareDefinition())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestRunExportJob_CreateRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /beta/deviceManagement/reports/exportJobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"Forbidden","message":"Missing DeviceManagementManagedDevices.Read.All"}}`))
	})

	client := newTestClient(t, mux)

	_, err := client.RunExportJob(context.Background(), malwareDefinition())
	var apiErr *model.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestRunExportJob_TimeoutAbandonsPolling(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /beta/deviceManagement/reports/exportJobs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "job-4", "status": "notStarted"}`))
	})
	mux.HandleFunc("GET /beta/deviceManagement/reports/exportJobs('job-4')", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "job-4", "status": "inProgress"}`))
	})

	client := newTestClient(t, mux)
	client.pollEvery = time.Millisecond
	client.jobTimeout = 25 * time.Millisecond

	_, err := client.RunExportJob(context.Background(), malwareDefinition())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseExportCSV_ShortRowsBackfilled(t *testing.T) {
	table, err := parseExportCSV("Malware", []byte("DeviceName,Severity\nLAPTOP-01\n"))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "LAPTOP-01", table.Rows[0]["DeviceName"])
	assert.Equal(t, "", table.Rows[0]["Severity"])
	require.NoError(t, table.Validate())
}

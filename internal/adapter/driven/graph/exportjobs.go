package graph

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/intunetools/intune-export/internal/domain/model"
)

const exportJobsPath = "/beta/deviceManagement/reports/exportJobs"

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// exportJob is the subset of the Graph export job resource the client reads.
type exportJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

// RunExportJob creates an export job for the report, polls it until Graph
// reports completed, downloads the result and parses it into a table. The
// whole run is bounded by the configured job timeout.
func (c *Client) RunExportJob(ctx context.Context, def model.ReportDefinition) (*model.ReportTable, error) {
	ctx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()

	job, err := c.createExportJob(ctx, def.Name)
	if err != nil {
		return nil, err
	}

	for job.Status != "completed" {
		if job.Status == "failed" {
			return nil, fmt.Errorf("export job for %s failed on the service side", def.Name)
		}
		if err := sleepCtx(ctx, c.pollEvery); err != nil {
			return nil, fmt.Errorf("export job for %s: %w", def.Name, err)
		}
		job, err = c.pollExportJob(ctx, job.ID)
		if err != nil {
			return nil, err
		}
	}

	data, err := c.downloadExport(ctx, job.URL)
	if err != nil {
		return nil, err
	}

	return parseExportCSV(def.Name, data)
}

func (c *Client) createExportJob(ctx context.Context, reportName string) (exportJob, error) {
	// LocalizedValuesAsAdditionalColumn keeps the raw value columns stable
	// for export while still including the display strings.
	payload, err := json.Marshal(map[string]string{
		"reportName":       reportName,
		"format":           "csv",
		"localizationType": "LocalizedValuesAsAdditionalColumn",
	})
	if err != nil {
		return exportJob{}, fmt.Errorf("marshal export job request: %w", err)
	}

	url := c.base + exportJobsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return exportJob{}, fmt.Errorf("build export job request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return exportJob{}, &model.NetworkError{Op: "POST " + url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return exportJob{}, apiError(resp)
	}

	var job exportJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return exportJob{}, fmt.Errorf("decode export job response: %w", err)
	}
	if job.ID == "" {
		return exportJob{}, fmt.Errorf("export job response carries no id")
	}
	return job, nil
}

func (c *Client) pollExportJob(ctx context.Context, id string) (exportJob, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s%s('%s')", c.base, exportJobsPath, id))
	if err != nil {
		return exportJob{}, err
	}
	defer resp.Body.Close()

	var job exportJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return exportJob{}, fmt.Errorf("decode export job status: %w", err)
	}
	return job, nil
}

// downloadExport fetches the pre-authenticated result URL and returns the
// CSV bytes, unzipping if the service delivered a zip archive.
func (c *Client) downloadExport(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, &model.NetworkError{Op: "GET " + url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.NetworkError{Op: "download export result", Err: err}
	}

	if bytes.HasPrefix(data, []byte("PK")) {
		return unzipFirstCSV(data)
	}
	return data, nil
}

func unzipFirstCSV(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open export zip: %w", err)
	}

	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in export zip: %w", f.Name, err)
		}
		csvData, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s in export zip: %w", f.Name, err)
		}
		return csvData, nil
	}

	return nil, fmt.Errorf("export zip contains no csv file")
}

// parseExportCSV turns the downloaded CSV into a table. The header row fixes
// the column order; short data rows are back-filled by the builder.
func parseExportCSV(report string, data []byte) (*model.ReportTable, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s export csv: %w", report, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s export csv has no header row", report)
	}

	header := records[0]
	builder := model.NewTableBuilder(report)
	builder.SetColumns(header)
	for _, rec := range records[1:] {
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				fields[col] = rec[i]
			}
		}
		builder.Append(fields, header)
	}

	return builder.Build(), nil
}

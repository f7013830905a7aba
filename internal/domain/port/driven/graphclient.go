package driven

import (
	"context"

	"github.com/intunetools/intune-export/internal/domain/model"
)

// GraphClient defines the driven port for retrieving report data from
// Microsoft Graph. Both fetch methods accumulate the complete dataset before
// returning; there is no partial or streaming result.
type GraphClient interface {
	// SignedInUser returns the /me identity of the delegated session.
	SignedInUser(ctx context.Context) (model.UserInfo, error)

	// FetchDirectReport GETs a direct report endpoint and follows
	// @odata.nextLink until the dataset is exhausted.
	FetchDirectReport(ctx context.Context, def model.ReportDefinition) (*model.ReportTable, error)

	// RunExportJob creates an export job for the report, polls it to
	// completion, downloads the result and parses it into a table.
	RunExportJob(ctx context.Context, def model.ReportDefinition) (*model.ReportTable, error)
}

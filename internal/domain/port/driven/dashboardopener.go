package driven

import "context"

// DashboardOpener is an optional collaborator that hands an exported dataset
// off to an external dashboard tool (PowerBI). Best effort only: failures are
// logged, never propagated into the export flow.
type DashboardOpener interface {
	Open(ctx context.Context, path string) error
}

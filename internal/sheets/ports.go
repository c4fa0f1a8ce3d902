// Package sheets defines the ports for external staged-transaction
// sources, with Google Sheets as the production adapter.
package sheets

import "context"

// StagedRow is one raw candidate row from an external source. All fields
// are strings as found in the source; validation happens in the staging
// pipeline.
type StagedRow struct {
	Date        string
	Type        string
	Amount      string
	Description string
	Category    string
	TxRef       string
}

// StagedSource lists candidate rows to feed into the approval queue.
type StagedSource interface {
	ListRows(ctx context.Context) ([]StagedRow, error)
}

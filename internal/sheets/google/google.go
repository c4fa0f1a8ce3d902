// Package google reads staged transaction rows from a Google Sheets
// spreadsheet using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "caja/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	readRange     string
}

var _ ports.StagedSource = (*Client)(nil)

// Credentials locates the service account key, inline JSON taking
// precedence over a key file.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) resolve() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		key, err := os.ReadFile(strings.TrimSpace(c.File))
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return key, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// New creates a Sheets client for the given spreadsheet and range,
// e.g. "Movimientos!A2:F".
func New(ctx context.Context, spreadsheetID, readRange string, creds Credentials) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(readRange) == "" {
		return nil, errors.New("missing sheet range")
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
	}, nil
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	credentialsJSON, err := creds.resolve()
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// ListRows reads the configured range and parses each row into a staged
// candidate. Rows that cannot be parsed are skipped with a warning so one
// bad row never blocks an import run.
func (c *Client) ListRows(ctx context.Context) ([]ports.StagedRow, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", c.readRange, err)
	}

	var rows []ports.StagedRow
	for i, raw := range resp.Values {
		row, err := parseRow(raw)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unparseable sheet row",
				"row", i+2, // range starts at row 2
				"error", err)
			continue
		}
		rows = append(rows, row)
	}

	slog.InfoContext(ctx, "Read staged rows from sheet",
		"spreadsheet_id", c.spreadsheetID,
		"range", c.readRange,
		"rows", len(rows))

	return rows, nil
}

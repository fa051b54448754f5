package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"billing/internal/core"
	ports "billing/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID *int64
}

var _ ports.Mirror = (*Client)(nil)

// Options configure a Client. Credentials come from ServiceAccountJSON,
// then ServiceAccountFile, then GOOGLE_APPLICATION_CREDENTIALS.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if opts.SheetName == "" {
		opts.SheetName = "Billings"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
	}, nil
}

// NewFromEnv reads Options from GOOGLE_* environment variables.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:          strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	})
}

func credentialsJSON(opts Options) ([]byte, error) {
	file := opts.ServiceAccountFile
	if opts.ServiceAccountJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case opts.ServiceAccountJSON != "":
		return []byte(opts.ServiceAccountJSON), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	creds, err := credentialsJSON(opts)
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(creds))
	return service, nil
}

// UpsertEntry implements ports.EntryWriter
func (c *Client) UpsertEntry(ctx context.Context, e core.BillingEntry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	column, err := c.readIDColumn(ctx)
	if err != nil {
		return "", err
	}
	if len(column) == 0 {
		if err := c.writeHeader(ctx); err != nil {
			return "", err
		}
		column = [][]interface{}{Header[:1]}
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{entryRow(e)}}

	if idx := findRow(column, e.ID); idx > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, idx+1, lastColumn, idx+1)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("update row: %w", err)
		}
		return rng, nil
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append row: %w", err)
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// DeleteEntry implements ports.EntryDeleter
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	column, err := c.readIDColumn(ctx)
	if err != nil {
		return err
	}
	idx := findRow(column, id)
	if idx <= 0 {
		slog.InfoContext(ctx, "Entry not present in sheet, nothing to delete", "entry_id", id)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", idx+1, err)
	}
	return nil
}

// EnsureHeader checks that the mirror tab exists and writes the header
// row when the tab is empty. It reports whether the header was written.
func (c *Client) EnsureHeader(ctx context.Context) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	if _, err := c.lookupSheetID(ctx); err != nil {
		return false, err
	}
	column, err := c.readIDColumn(ctx)
	if err != nil {
		return false, err
	}
	if len(column) > 0 {
		return false, nil
	}
	if err := c.writeHeader(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) readIDColumn(ctx context.Context) ([][]interface{}, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read id column: %w", err)
	}
	return resp.Values, nil
}

func (c *Client) writeHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:%s1", c.sheetName, lastColumn)
	vr := &gsheet.ValueRange{Values: [][]interface{}{Header}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// lookupSheetID resolves the numeric id of the mirror tab once.
func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

// Command billing-sheet-init checks that the mirror spreadsheet is
// reachable with the configured service account and writes the header
// row into an empty billing tab. Run it once before starting the worker.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"billing/internal/cli"
	applog "billing/internal/log"
	gsheet "billing/internal/sheets/google"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentSheets)

	if cfg.GoogleSpreadsheetID == "" {
		fmt.Fprintln(os.Stderr, "GOOGLE_SPREADSHEET_ID is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Unable to create sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	wrote, err := client.EnsureHeader(ctx)
	if err != nil {
		logger.Error("Unable to prepare billing sheet", applog.FieldError, err, "sheet", cfg.GoogleSheetName)
		os.Exit(1)
	}
	if wrote {
		fmt.Printf("Header written to %q in spreadsheet %s\n", cfg.GoogleSheetName, cfg.GoogleSpreadsheetID)
		return
	}
	fmt.Printf("Sheet %q already initialised\n", cfg.GoogleSheetName)
}

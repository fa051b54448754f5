// Package report serialises the loaded billing rows for download.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"billing/internal/core"
)

// ContentType is sent with every export.
const ContentType = "text/csv; charset=utf-8"

var header = []string{"date", "clinic", "gross", "notes"}

// Export renders rows as CSV. ok is false when there is nothing to export.
func Export(rows []core.BillingEntry) (data []byte, ok bool, err error) {
	if len(rows) == 0 {
		return nil, false, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, false, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.BillDate.String(),
			string(r.Clinic),
			r.GrossBilling.String(),
			r.Notes,
		}
		if err := w.Write(rec); err != nil {
			return nil, false, fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, false, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), true, nil
}

// Filename names the export after the app slug and the filter range.
func Filename(slug string, from, to core.Date) string {
	if slug == "" {
		slug = "novabody"
	}
	return fmt.Sprintf("%s-billing-%s_to_%s.csv", slug, from, to)
}

package google

import (
	"strings"
	"time"

	"billing/internal/core"
)

// Header is the first row of the mirror sheet.
var Header = []interface{}{"ID", "Date", "Clinic", "Gross", "Notes", "Practitioner", "Updated"}

// lastColumn is the column letter of the final Header cell.
const lastColumn = "G"

func entryRow(e core.BillingEntry) []interface{} {
	return []interface{}{
		e.ID,
		e.BillDate.String(),
		string(e.Clinic),
		e.GrossBilling.StringFixed(2),
		e.Notes,
		e.UserName,
		e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// findRow returns the zero-based index of id in an ID column, or -1.
// Index 0 is the header row.
func findRow(column [][]interface{}, id string) int {
	for i, row := range column {
		if len(row) == 0 {
			continue
		}
		if s, ok := row[0].(string); ok && strings.TrimSpace(s) == id {
			return i
		}
	}
	return -1
}

package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"billing/internal/core"
)

func row(date core.Date, clinic core.Clinic, gross, notes string) core.BillingEntry {
	return core.BillingEntry{
		BillDate:     date,
		Clinic:       clinic,
		GrossBilling: decimal.RequireFromString(gross),
		Notes:        notes,
	}
}

func TestExport(t *testing.T) {
	rows := []core.BillingEntry{
		row(core.NewDate(2024, 1, 2), core.Hemac, "100", "a,b"),
		row(core.NewDate(2024, 1, 3), core.MMBalwyn, "12.5", `said "hi"`),
		row(core.NewDate(2024, 1, 4), core.FNMC, "0", ""),
	}

	data, ok, err := Export(rows)
	require.NoError(t, err)
	require.True(t, ok)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "date,clinic,gross,notes", lines[0])
	require.Equal(t, `2024-01-02,Hemac,100,"a,b"`, lines[1])
	require.Equal(t, `2024-01-03,MM Balwyn,12.5,"said ""hi"""`, lines[2])
	require.Equal(t, "2024-01-04,FNMC,0,", lines[3])
}

func TestExport_MultilineNotes(t *testing.T) {
	data, ok, err := Export([]core.BillingEntry{
		row(core.NewDate(2024, 5, 1), core.NovaBody, "1", "line one\nline two"),
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, string(data), "\"line one\nline two\"")
}

func TestExport_PaddedNotesRoundTrip(t *testing.T) {
	// A leading space or a carriage return gets quoted as well; trailing
	// space alone does not.
	data, ok, err := Export([]core.BillingEntry{
		row(core.NewDate(2024, 1, 2), core.Hemac, "100", " padded"),
		row(core.NewDate(2024, 1, 3), core.Hemac, "100", "trailing "),
		row(core.NewDate(2024, 1, 4), core.Hemac, "100", "a\rb"),
	})
	require.NoError(t, err)
	require.True(t, ok)

	lines := strings.Split(string(data), "\n")
	require.Equal(t, `2024-01-02,Hemac,100," padded"`, lines[1])
	require.Equal(t, `2024-01-03,Hemac,100,trailing `, lines[2])
	require.Equal(t, "2024-01-04,Hemac,100,\"a\rb\"", lines[3])

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Equal(t, " padded", records[1][3])
	require.Equal(t, "trailing ", records[2][3])
}

func TestExport_NoRows(t *testing.T) {
	data, ok, err := Export(nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, data)
}

func TestFilename(t *testing.T) {
	from, to := core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)
	require.Equal(t, "novabody-billing-2024-01-01_to_2024-01-31.csv", Filename("novabody", from, to))
	require.Equal(t, "novabody-billing-2024-01-01_to_2024-01-31.csv", Filename("", from, to))
	require.Equal(t, "acme-billing-2024-01-01_to_2024-01-31.csv", Filename("acme", from, to))
}

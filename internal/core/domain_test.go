package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-02")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-01-02" || d.Display() != "02 Jan 2024" {
		t.Fatalf("unexpected formatting: %q / %q", d.String(), d.Display())
	}
	for _, bad := range []string{"", "2024-13-01", "02/01/2024", "2024-02-30"} {
		if _, err := ParseDate(bad); err != ErrInvalidDate {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestStartOfMonth(t *testing.T) {
	d := NewDate(2024, 3, 17)
	if got := d.StartOfMonth().String(); got != "2024-03-01" {
		t.Fatalf("start of month = %s", got)
	}
	if got := DateOf(time.Date(2024, 5, 9, 23, 59, 0, 0, time.Local)).String(); got != "2024-05-09" {
		t.Fatalf("DateOf = %s", got)
	}
}

func TestParseClinic(t *testing.T) {
	for _, c := range Clinics() {
		got, err := ParseClinic(string(c))
		if err != nil || got != c {
			t.Fatalf("%q expected ok, got %q err=%v", c, got, err)
		}
	}
	for _, bad := range []string{"", "All", "hemac", "Other"} {
		if _, err := ParseClinic(bad); err != ErrInvalidClinic {
			t.Fatalf("%q expected ErrInvalidClinic, got %v", bad, err)
		}
	}
	if DefaultClinic() != Hemac {
		t.Fatalf("default clinic = %s", DefaultClinic())
	}
}

func TestEntryFieldsValidate(t *testing.T) {
	good := EntryFields{
		BillDate:     NewDate(2025, 1, 1),
		Clinic:       FNMC,
		GrossBilling: decimal.NewFromInt(100),
		Notes:        "ok",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		f    EntryFields
		want error
	}{
		{EntryFields{Clinic: FNMC}, ErrInvalidDate},
		{EntryFields{BillDate: NewDate(2025, 1, 1), Clinic: "Elsewhere"}, ErrInvalidClinic},
		{EntryFields{BillDate: NewDate(2025, 1, 1), Clinic: FNMC, GrossBilling: decimal.NewFromInt(-1)}, ErrNegativeGross},
		{EntryFields{BillDate: NewDate(2025, 1, 1), Clinic: FNMC, Notes: strings.Repeat("é", 501)}, ErrNotesTooLong},
	}
	for i, tc := range bads {
		if err := tc.f.Validate(); err != tc.want {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestEntryFieldsValidate_NotesCountCharacters(t *testing.T) {
	// 500 two-byte characters are 1000 bytes but still within the limit.
	f := EntryFields{BillDate: NewDate(2025, 1, 1), Clinic: Hemac, Notes: strings.Repeat("é", MaxNotesLength)}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

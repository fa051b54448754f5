package store

import (
	"testing"

	"billing/internal/core"
)

func TestFilterMatches(t *testing.T) {
	f := Filter{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 1, 31), Clinic: AllClinics}
	cases := []struct {
		name string
		e    core.BillingEntry
		want bool
	}{
		{"lower bound inclusive", core.BillingEntry{BillDate: core.NewDate(2024, 1, 1), Clinic: core.Hemac}, true},
		{"upper bound inclusive", core.BillingEntry{BillDate: core.NewDate(2024, 1, 31), Clinic: core.FNMC}, true},
		{"before range", core.BillingEntry{BillDate: core.NewDate(2023, 12, 31), Clinic: core.Hemac}, false},
		{"after range", core.BillingEntry{BillDate: core.NewDate(2024, 2, 1), Clinic: core.Hemac}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.Matches(tc.e); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}

	f.Clinic = string(core.NovaBody)
	if f.Matches(core.BillingEntry{BillDate: core.NewDate(2024, 1, 5), Clinic: core.Hemac}) {
		t.Error("clinic filter should exclude other clinics")
	}
	if !f.Matches(core.BillingEntry{BillDate: core.NewDate(2024, 1, 5), Clinic: core.NovaBody}) {
		t.Error("clinic filter should include its clinic")
	}
	if f.ClinicFilter() != "NovaBody" {
		t.Errorf("ClinicFilter = %q", f.ClinicFilter())
	}
	if (Filter{Clinic: AllClinics}).ClinicFilter() != "" {
		t.Error("All should disable clinic filtering")
	}
}

// Package store defines the row store the billing tracker delegates
// persistence, querying and filtering to.
package store

import (
	"context"
	"errors"

	"billing/internal/core"
)

// AllClinics is the clinic filter value that disables clinic filtering.
const AllClinics = "All"

var (
	ErrNotFound = errors.New("entry not found")
)

// Filter selects entries with From <= bill_date <= To and, unless Clinic
// is AllClinics, clinic = Clinic.
type Filter struct {
	From   core.Date
	To     core.Date
	Clinic string
}

// Matches reports whether e falls inside the filter.
func (f Filter) Matches(e core.BillingEntry) bool {
	if e.BillDate.Before(f.From.Time) || e.BillDate.After(f.To.Time) {
		return false
	}
	if f.Clinic != "" && f.Clinic != AllClinics && string(e.Clinic) != f.Clinic {
		return false
	}
	return true
}

// ClinicFilter returns the clinic to filter on, or "" when every clinic matches.
func (f Filter) ClinicFilter() string {
	if f.Clinic == AllClinics {
		return ""
	}
	return f.Clinic
}

// NewEntry is the insert payload; the store assigns ID and timestamps.
type NewEntry struct {
	UserName string
	core.EntryFields
}

// Ports for the billings table.
type (
	// BillingLister runs the report range query, ordered by bill_date ascending.
	BillingLister interface {
		List(ctx context.Context, f Filter) ([]core.BillingEntry, error)
	}

	BillingReader interface {
		Get(ctx context.Context, id string) (core.BillingEntry, error)
	}

	BillingWriter interface {
		Insert(ctx context.Context, e NewEntry) (core.BillingEntry, error)
		// Update replaces every editable field of entry id.
		Update(ctx context.Context, id string, f core.EntryFields) (core.BillingEntry, error)
	}

	BillingDeleter interface {
		Delete(ctx context.Context, id string) error
	}

	// BillingStore is everything the tracker needs from the billings table.
	BillingStore interface {
		BillingLister
		BillingReader
		BillingWriter
		BillingDeleter
	}

	// Pinger is implemented by stores that can report their health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

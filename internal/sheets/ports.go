package sheets

import (
	"context"

	"billing/internal/core"
)

// Ports for the spreadsheet mirror of the billings table.
type (
	// EntryWriter writes the current state of an entry, inserting or
	// replacing the row keyed by its ID.
	EntryWriter interface {
		UpsertEntry(ctx context.Context, e core.BillingEntry) (rowRef string, err error)
	}

	// EntryDeleter removes the row of an entry. Deleting an ID that is not
	// mirrored is not an error.
	EntryDeleter interface {
		DeleteEntry(ctx context.Context, id string) error
	}

	Mirror interface {
		EntryWriter
		EntryDeleter
	}
)

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"billing/internal/core"
	"billing/internal/store"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "billing.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func entry(date core.Date, clinic core.Clinic, gross string) store.NewEntry {
	return store.NewEntry{
		UserName: "Dr Test",
		EntryFields: core.EntryFields{
			BillDate:     date,
			Clinic:       clinic,
			GrossBilling: decimal.RequireFromString(gross),
		},
	}
}

func TestSQLiteRepository_InsertListOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, e := range []store.NewEntry{
		entry(core.NewDate(2024, 1, 10), core.Hemac, "50"),
		entry(core.NewDate(2024, 1, 2), core.FNMC, "100.25"),
		entry(core.NewDate(2024, 1, 10), core.MMBalwyn, "25"),
		entry(core.NewDate(2024, 2, 1), core.Hemac, "999"),
	} {
		if _, err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	rows, err := repo.List(ctx, store.Filter{
		From:   core.NewDate(2024, 1, 1),
		To:     core.NewDate(2024, 1, 31),
		Clinic: store.AllClinics,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []core.Clinic{core.FNMC, core.Hemac, core.MMBalwyn}
	for i, r := range rows {
		if r.Clinic != want[i] {
			t.Errorf("row %d: clinic = %s, want %s", i, r.Clinic, want[i])
		}
		if r.UserName != "Dr Test" {
			t.Errorf("row %d: user = %q", i, r.UserName)
		}
	}
	if got := core.Total(rows); !got.Equal(decimal.RequireFromString("175.25")) {
		t.Errorf("total = %s, want 175.25", got)
	}

	byClinic, err := repo.List(ctx, store.Filter{
		From:   core.NewDate(2024, 1, 1),
		To:     core.NewDate(2024, 2, 1),
		Clinic: string(core.Hemac),
	})
	if err != nil {
		t.Fatalf("List by clinic: %v", err)
	}
	if len(byClinic) != 2 {
		t.Fatalf("expected 2 Hemac rows with inclusive bounds, got %d", len(byClinic))
	}
}

func TestSQLiteRepository_UpdateGetDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, entry(core.NewDate(2024, 3, 5), core.Hemac, "80"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	fields := created.Fields()
	fields.GrossBilling = decimal.RequireFromString("120.50")
	fields.Notes = "follow-up"
	updated, err := repo.Update(ctx, created.ID, fields)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != created.ID || !updated.GrossBilling.Equal(fields.GrossBilling) || updated.Notes != "follow-up" {
		t.Errorf("unexpected updated entry: %+v", updated)
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.BillDate.String() != "2024-03-05" {
		t.Errorf("bill date = %s", got.BillDate)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}
	if _, err := repo.Update(ctx, "not-a-uuid", fields); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update invalid id: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_RejectsInvalidFields(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Insert(context.Background(), entry(core.NewDate(2024, 3, 5), core.Clinic("Elsewhere"), "10"))
	if !errors.Is(err, core.ErrInvalidClinic) {
		t.Fatalf("got %v, want ErrInvalidClinic", err)
	}
}

func TestSQLiteRepository_SyncBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, _ := repo.Insert(ctx, entry(core.NewDate(2024, 4, 1), core.Hemac, "10"))
	b, _ := repo.Insert(ctx, entry(core.NewDate(2024, 4, 2), core.FNMC, "20"))

	pending, err := repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingSync: %v", err)
	}
	if len(pending) != 2 || pending[0] != a.ID || pending[1] != b.ID {
		t.Fatalf("pending = %v, want [%s %s]", pending, a.ID, b.ID)
	}

	if err := repo.MarkSynced(ctx, a.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, b.ID); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}
	pending, _ = repo.ListPendingSync(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("expected no pending entries, got %v", pending)
	}

	// Editing puts an entry back in the queue.
	if _, err := repo.Update(ctx, a.ID, a.Fields()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pending, _ = repo.ListPendingSync(ctx, 10)
	if len(pending) != 1 || pending[0] != a.ID {
		t.Errorf("pending after update = %v", pending)
	}
}

func TestRebind(t *testing.T) {
	q := New(nil, Postgres)
	got := q.rebind("SELECT * FROM billings WHERE a = ? AND b = ?")
	if want := "SELECT * FROM billings WHERE a = $1 AND b = $2"; got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}
	if got := New(nil, SQLite).rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

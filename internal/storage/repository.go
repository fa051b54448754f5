package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"billing/internal/core"
	"billing/internal/store"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLRepository stores billing entries in SQLite or Postgres.
type SQLRepository struct {
	db      *sql.DB
	queries *Queries
	dialect Dialect
	now     func() time.Time
}

var (
	_ store.BillingStore = (*SQLRepository)(nil)
	_ store.Pinger       = (*SQLRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

func NewPostgresRepository(databaseURL string) (*SQLRepository, error) {
	return open(Postgres, databaseURL)
}

func open(d Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == SQLite {
		// A single writer avoids SQLITE_BUSY under concurrent sessions.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		queries: New(db, d),
		dialect: d,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// List implements store.BillingLister
func (r *SQLRepository) List(ctx context.Context, f store.Filter) ([]core.BillingEntry, error) {
	rows, err := r.queries.ListBillings(ctx, ListBillingsParams{
		From:   f.From.String(),
		To:     f.To.String(),
		Clinic: f.ClinicFilter(),
	})
	if err != nil {
		return nil, fmt.Errorf("list billings: %w", err)
	}

	out := make([]core.BillingEntry, 0, len(rows))
	for _, row := range rows {
		e, err := toEntry(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Get implements store.BillingReader
func (r *SQLRepository) Get(ctx context.Context, id string) (core.BillingEntry, error) {
	if !validID(id) {
		return core.BillingEntry{}, store.ErrNotFound
	}
	row, err := r.queries.GetBilling(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BillingEntry{}, store.ErrNotFound
	}
	if err != nil {
		return core.BillingEntry{}, fmt.Errorf("get billing %s: %w", id, err)
	}
	return toEntry(row)
}

// Insert implements store.BillingWriter
func (r *SQLRepository) Insert(ctx context.Context, e store.NewEntry) (core.BillingEntry, error) {
	if err := e.Validate(); err != nil {
		return core.BillingEntry{}, err
	}
	row, err := r.queries.CreateBilling(ctx, CreateBillingParams{
		ID:           uuid.NewString(),
		UserName:     e.UserName,
		BillDate:     e.BillDate.String(),
		Clinic:       string(e.Clinic),
		GrossBilling: e.GrossBilling,
		Notes:        e.Notes,
		Now:          r.now(),
	})
	if err != nil {
		return core.BillingEntry{}, fmt.Errorf("create billing: %w", err)
	}

	slog.InfoContext(ctx, "Billing saved",
		"backend", string(r.dialect),
		"id", row.ID,
		"bill_date", row.BillDate,
		"clinic", row.Clinic,
		"gross", row.GrossBilling.String())

	return toEntry(row)
}

// Update implements store.BillingWriter
func (r *SQLRepository) Update(ctx context.Context, id string, f core.EntryFields) (core.BillingEntry, error) {
	if !validID(id) {
		return core.BillingEntry{}, store.ErrNotFound
	}
	if err := f.Validate(); err != nil {
		return core.BillingEntry{}, err
	}
	row, err := r.queries.UpdateBilling(ctx, UpdateBillingParams{
		ID:           id,
		BillDate:     f.BillDate.String(),
		Clinic:       string(f.Clinic),
		GrossBilling: f.GrossBilling,
		Notes:        f.Notes,
		Now:          r.now(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.BillingEntry{}, store.ErrNotFound
	}
	if err != nil {
		return core.BillingEntry{}, fmt.Errorf("update billing %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Billing updated", "backend", string(r.dialect), "id", id)
	return toEntry(row)
}

// Delete implements store.BillingDeleter
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return store.ErrNotFound
	}
	n, err := r.queries.DeleteBilling(ctx, id)
	if err != nil {
		return fmt.Errorf("delete billing %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Billing deleted", "backend", string(r.dialect), "id", id)
	return nil
}

// ListPendingSync returns ids of entries not yet mirrored, oldest change first.
func (r *SQLRepository) ListPendingSync(ctx context.Context, limit int) ([]string, error) {
	ids, err := r.queries.GetPendingSyncBillings(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync billings: %w", err)
	}
	return ids, nil
}

func (r *SQLRepository) MarkSynced(ctx context.Context, id string) error {
	if err := r.queries.MarkBillingSynced(ctx, id, r.now()); err != nil {
		return fmt.Errorf("mark billing %s synced: %w", id, err)
	}
	return nil
}

func (r *SQLRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.queries.MarkBillingSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark billing %s sync error: %w", id, err)
	}
	return nil
}

func toEntry(b Billing) (core.BillingEntry, error) {
	d, err := core.ParseDate(b.BillDate)
	if err != nil {
		return core.BillingEntry{}, fmt.Errorf("billing %s: %w", b.ID, err)
	}
	return core.BillingEntry{
		ID:           b.ID,
		UserName:     b.UserName,
		BillDate:     d,
		Clinic:       core.Clinic(b.Clinic),
		GrossBilling: b.GrossBilling,
		Notes:        b.Notes,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billing/internal/core"
)

// Dialect selects the SQL flavour and driver of a repository.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

// Billing is a row of the billings table.
type Billing struct {
	ID           string
	UserName     string
	BillDate     string
	Clinic       string
	GrossBilling decimal.Decimal
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const billingColumns = `id, user_name, bill_date, clinic, gross_billing, notes, created_at, updated_at`

const listBillings = `SELECT ` + billingColumns + ` FROM billings
WHERE bill_date >= ? AND bill_date <= ?
ORDER BY bill_date ASC, created_at ASC`

const listBillingsByClinic = `SELECT ` + billingColumns + ` FROM billings
WHERE bill_date >= ? AND bill_date <= ? AND clinic = ?
ORDER BY bill_date ASC, created_at ASC`

type ListBillingsParams struct {
	From   string
	To     string
	Clinic string
}

// ListBillings runs the report range query. An empty Clinic matches all clinics.
func (q *Queries) ListBillings(ctx context.Context, arg ListBillingsParams) ([]Billing, error) {
	query, args := listBillings, []interface{}{arg.From, arg.To}
	if arg.Clinic != "" {
		query, args = listBillingsByClinic, append(args, arg.Clinic)
	}
	rows, err := q.db.QueryContext(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Billing
	for rows.Next() {
		i, err := scanBilling(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getBilling = `SELECT ` + billingColumns + ` FROM billings WHERE id = ?`

func (q *Queries) GetBilling(ctx context.Context, id string) (Billing, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(getBilling), id)
	return scanBilling(row)
}

const createBilling = `INSERT INTO billings (id, user_name, bill_date, clinic, gross_billing, notes, created_at, updated_at, sync_status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending')
RETURNING ` + billingColumns

type CreateBillingParams struct {
	ID           string
	UserName     string
	BillDate     string
	Clinic       string
	GrossBilling decimal.Decimal
	Notes        string
	Now          time.Time
}

func (q *Queries) CreateBilling(ctx context.Context, arg CreateBillingParams) (Billing, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(createBilling),
		arg.ID,
		arg.UserName,
		arg.BillDate,
		arg.Clinic,
		arg.GrossBilling.String(),
		arg.Notes,
		formatTimestamp(arg.Now),
		formatTimestamp(arg.Now),
	)
	return scanBilling(row)
}

const updateBilling = `UPDATE billings
SET bill_date = ?, clinic = ?, gross_billing = ?, notes = ?, updated_at = ?, sync_status = 'pending'
WHERE id = ?
RETURNING ` + billingColumns

type UpdateBillingParams struct {
	ID           string
	BillDate     string
	Clinic       string
	GrossBilling decimal.Decimal
	Notes        string
	Now          time.Time
}

func (q *Queries) UpdateBilling(ctx context.Context, arg UpdateBillingParams) (Billing, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(updateBilling),
		arg.BillDate,
		arg.Clinic,
		arg.GrossBilling.String(),
		arg.Notes,
		formatTimestamp(arg.Now),
		arg.ID,
	)
	return scanBilling(row)
}

const deleteBilling = `DELETE FROM billings WHERE id = ?`

// DeleteBilling returns the number of deleted rows.
func (q *Queries) DeleteBilling(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(deleteBilling), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getPendingSyncBillings = `SELECT id FROM billings
WHERE sync_status = 'pending'
ORDER BY updated_at ASC
LIMIT ?`

func (q *Queries) GetPendingSyncBillings(ctx context.Context, limit int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(getPendingSyncBillings), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const markBillingSynced = `UPDATE billings SET sync_status = 'synced', synced_at = ? WHERE id = ?`

func (q *Queries) MarkBillingSynced(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, q.rebind(markBillingSynced), formatTimestamp(at), id)
	return err
}

const markBillingSyncError = `UPDATE billings SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkBillingSyncError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, q.rebind(markBillingSyncError), id)
	return err
}

// rebind rewrites ? placeholders to $n for Postgres.
func (q *Queries) rebind(query string) string {
	if q.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBilling(s scanner) (Billing, error) {
	var (
		i                    Billing
		billDate             dbDate
		gross                string
		createdAt, updatedAt dbTime
	)
	if err := s.Scan(&i.ID, &i.UserName, &billDate, &i.Clinic, &gross, &i.Notes, &createdAt, &updatedAt); err != nil {
		return Billing{}, err
	}
	g, err := decimal.NewFromString(gross)
	if err != nil {
		return Billing{}, fmt.Errorf("parse gross_billing %q: %w", gross, err)
	}
	i.BillDate = string(billDate)
	i.GrossBilling = g
	i.CreatedAt = time.Time(createdAt)
	i.UpdatedAt = time.Time(updatedAt)
	return i, nil
}

// dbDate scans a DATE (Postgres) or TEXT (SQLite) column into ISO form.
type dbDate string

func (d *dbDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = dbDate(v.Format(core.ISODateLayout))
	case string:
		*d = dbDate(v)
	case []byte:
		*d = dbDate(v)
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
	return nil
}

// timestampLayout is fixed width so text timestamps sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// dbTime scans timestamps stored natively or as text.
type dbTime time.Time

func (t *dbTime) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case time.Time:
		*t = dbTime(v)
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*t = dbTime(time.Time{})
		return nil
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = dbTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

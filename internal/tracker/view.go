// Package tracker holds the state of one billing tracker page: the entry
// form, the report filter, the loaded rows and their total.
//
// A View is safe for concurrent use. Store calls run outside the view lock;
// every list query is numbered when issued and a result that arrives after
// a newer query was issued is dropped.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"billing/internal/core"
	"billing/internal/report"
	"billing/internal/store"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusLoaded  Status = "loaded"
)

// Form is the entry form as shown to the user.
type Form struct {
	Date      string
	Clinic    string
	Gross     string
	Notes     string
	EditingID string
}

func (f Form) Mode() Mode {
	if f.EditingID != "" {
		return ModeEdit
	}
	return ModeCreate
}

// Snapshot is a consistent copy of the view state for rendering.
type Snapshot struct {
	Form   Form
	Filter store.Filter
	Rows   []core.BillingEntry
	Status Status
	Err    string
	Total  decimal.Decimal
}

type Options struct {
	Practitioner string
	AppSlug      string
	// ListTimeout bounds each list query; zero means no extra bound.
	ListTimeout time.Duration
	Now         func() time.Time
	Validator   *validator.Validate
}

type View struct {
	store    store.BillingStore
	opts     Options
	validate *validator.Validate

	mu     sync.Mutex
	form   Form
	filter store.Filter
	rows   []core.BillingEntry
	status Status
	errMsg string
	issued uint64
}

func New(s store.BillingStore, opts Options) *View {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Validator == nil {
		opts.Validator = NewValidator()
	}
	v := &View{
		store:    s,
		opts:     opts,
		validate: opts.Validator,
		status:   StatusLoading,
	}
	today := v.today()
	v.form = DefaultForm(today)
	v.filter = DefaultFilter(today)
	return v
}

// DefaultForm is today's date, the first clinic and empty amount and notes.
func DefaultForm(today core.Date) Form {
	return Form{Date: today.String(), Clinic: string(core.DefaultClinic())}
}

// DefaultFilter covers the current month to date across all clinics.
func DefaultFilter(today core.Date) store.Filter {
	return store.Filter{From: today.StartOfMonth(), To: today, Clinic: store.AllClinics}
}

func (v *View) today() core.Date {
	return core.DateOf(v.opts.Now())
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	rows := make([]core.BillingEntry, len(v.rows))
	copy(rows, v.rows)
	return Snapshot{
		Form:   v.form,
		Filter: v.filter,
		Rows:   rows,
		Status: v.status,
		Err:    v.errMsg,
		Total:  core.Total(rows),
	}
}

// Total sums the gross billing of the rows currently loaded.
func (v *View) Total() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return core.Total(v.rows)
}

// SetFilter applies the submitted filter and reloads the rows. Bounds that
// do not parse and unknown clinics keep their previous value.
func (v *View) SetFilter(ctx context.Context, in FilterInput) error {
	v.mu.Lock()
	if d, err := core.ParseDate(in.From); err == nil {
		v.filter.From = d
	}
	if d, err := core.ParseDate(in.To); err == nil {
		v.filter.To = d
	}
	if in.Clinic != "" && v.validate.Var(in.Clinic, "clinic_filter") == nil {
		v.filter.Clinic = in.Clinic
	}
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// Refresh re-issues the query for the current filter.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.issued++
	seq := v.issued
	f := v.filter
	v.status = StatusLoading
	v.mu.Unlock()

	if v.opts.ListTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.opts.ListTimeout)
		defer cancel()
	}
	rows, err := v.store.List(ctx, f)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.issued {
		slog.DebugContext(ctx, "Discarding stale report result", "seq", seq, "latest", v.issued)
		return nil
	}
	if err != nil {
		v.rows = nil
		v.status = StatusError
		v.errMsg = err.Error()
		return err
	}
	v.rows = rows
	v.status = StatusLoaded
	v.errMsg = ""
	return nil
}

// Submit inserts a new entry, or updates the one being edited. On any
// failure the form keeps the submitted values and edit mode is kept.
func (v *View) Submit(ctx context.Context, in FormInput) error {
	v.mu.Lock()
	editing := v.form.EditingID
	v.form = Form{
		Date:      in.Date,
		Clinic:    in.Clinic,
		Gross:     in.Gross,
		Notes:     in.Notes,
		EditingID: editing,
	}
	v.mu.Unlock()

	fields, err := in.fields(v.validate)
	if err != nil {
		return err
	}

	if editing != "" {
		_, err = v.store.Update(ctx, editing, fields)
	} else {
		_, err = v.store.Insert(ctx, store.NewEntry{UserName: v.opts.Practitioner, EntryFields: fields})
	}
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.form = DefaultForm(v.today())
	v.mu.Unlock()

	// A failed reload is shown inline; the write itself succeeded.
	_ = v.Refresh(ctx)
	return nil
}

// Edit copies a loaded row into the form and switches to edit mode.
func (v *View) Edit(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.rows {
		if r.ID == id {
			v.form = Form{
				Date:      r.BillDate.String(),
				Clinic:    string(r.Clinic),
				Gross:     r.GrossBilling.String(),
				Notes:     r.Notes,
				EditingID: r.ID,
			}
			return nil
		}
	}
	return store.ErrNotFound
}

// CancelEdit leaves edit mode and resets the form.
func (v *View) CancelEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.form = DefaultForm(v.today())
}

// Delete removes an entry and reloads the rows. On store failure the rows
// are left as they are.
func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.store.Delete(ctx, id); err != nil {
		return err
	}

	v.mu.Lock()
	if v.form.EditingID == id {
		v.form = DefaultForm(v.today())
	}
	v.mu.Unlock()

	_ = v.Refresh(ctx)
	return nil
}

// Export renders the loaded rows as CSV. ok is false when no rows are loaded.
func (v *View) Export() (data []byte, filename string, ok bool, err error) {
	snap := v.Snapshot()
	data, ok, err = report.Export(snap.Rows)
	if err != nil || !ok {
		return nil, "", ok, err
	}
	return data, report.Filename(v.opts.AppSlug, snap.Filter.From, snap.Filter.To), true, nil
}

package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"billing/internal/core"
	"billing/internal/store"
)

// Store keeps billing entries in process memory.
type Store struct {
	mu    sync.Mutex
	items map[string]core.BillingEntry
	now   func() time.Time
}

var _ store.BillingStore = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string]core.BillingEntry), now: time.Now}
}

// NewFromFiles seeds the store from base/seed_billings.csv when present.
// The file has the export layout: date,clinic,gross,notes with a header row.
func NewFromFiles(base, practitioner string) *Store {
	s := New()
	rows := readSeed(filepath.Join(base, "seed_billings.csv"))
	for i, rec := range rows {
		fields, err := parseSeedRecord(rec)
		if err != nil {
			slog.Warn("Skipping invalid seed row", "row", i+2, "error", err)
			continue
		}
		if _, err := s.Insert(context.Background(), store.NewEntry{UserName: practitioner, EntryFields: fields}); err != nil {
			slog.Warn("Skipping invalid seed row", "row", i+2, "error", err)
		}
	}
	return s
}

// List returns entries inside f ordered by bill date, then creation time.
func (s *Store) List(_ context.Context, f store.Filter) ([]core.BillingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BillingEntry, 0, len(s.items))
	for _, e := range s.items {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BillDate.Equal(out[j].BillDate.Time) {
			return out[i].BillDate.Before(out[j].BillDate.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (core.BillingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.BillingEntry{}, store.ErrNotFound
	}
	return e, nil
}

// Insert stores the entry under a fresh UUID.
func (s *Store) Insert(_ context.Context, n store.NewEntry) (core.BillingEntry, error) {
	if err := n.Validate(); err != nil {
		return core.BillingEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	e := core.BillingEntry{
		ID:           uuid.NewString(),
		UserName:     n.UserName,
		BillDate:     n.BillDate,
		Clinic:       n.Clinic,
		GrossBilling: n.GrossBilling,
		Notes:        n.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) Update(_ context.Context, id string, f core.EntryFields) (core.BillingEntry, error) {
	if err := f.Validate(); err != nil {
		return core.BillingEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.BillingEntry{}, store.ErrNotFound
	}
	e.BillDate = f.BillDate
	e.Clinic = f.Clinic
	e.GrossBilling = f.GrossBilling
	e.Notes = f.Notes
	e.UpdatedAt = s.stamp()
	s.items[id] = e
	return e, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// stamp returns a strictly increasing timestamp so insertion order is stable.
func (s *Store) stamp() time.Time {
	now := s.now().UTC()
	for _, e := range s.items {
		if !now.After(e.UpdatedAt) {
			now = e.UpdatedAt.Add(time.Nanosecond)
		}
	}
	return now
}

func readSeed(path string) [][]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out [][]string
	header := true
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn("Stopping seed read", "path", path, "error", err)
			break
		}
		if header {
			header = false
			continue
		}
		if len(rec) == 0 || strings.HasPrefix(strings.TrimSpace(rec[0]), "#") {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func parseSeedRecord(rec []string) (core.EntryFields, error) {
	if len(rec) < 3 {
		return core.EntryFields{}, errors.New("expected at least date,clinic,gross")
	}
	d, err := core.ParseDate(rec[0])
	if err != nil {
		return core.EntryFields{}, err
	}
	c, err := core.ParseClinic(rec[1])
	if err != nil {
		return core.EntryFields{}, err
	}
	g, err := core.ParseGross(rec[2])
	if err != nil {
		return core.EntryFields{}, err
	}
	f := core.EntryFields{BillDate: d, Clinic: c, GrossBilling: g}
	if len(rec) > 3 {
		f.Notes = strings.TrimSpace(rec[3])
	}
	return f, nil
}

package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ISODateLayout is the wire and storage format of bill dates.
const ISODateLayout = "2006-01-02"

// MaxNotesLength is the longest note accepted, in characters.
const MaxNotesLength = 500

const (
	Hemac    Clinic = "Hemac"
	MMBalwyn Clinic = "MM Balwyn"
	FNMC     Clinic = "FNMC"
	NovaBody Clinic = "NovaBody"
)

type (
	Clinic string

	Date struct {
		time.Time
	}

	// BillingEntry is one day's gross billing at one clinic.
	BillingEntry struct {
		ID           string
		UserName     string
		BillDate     Date
		Clinic       Clinic
		GrossBilling decimal.Decimal
		Notes        string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// EntryFields are the user-editable fields of an entry. Updates always
	// carry the full set.
	EntryFields struct {
		BillDate     Date
		Clinic       Clinic
		GrossBilling decimal.Decimal
		Notes        string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidClinic = errors.New("invalid clinic")
	ErrInvalidGross  = errors.New("invalid gross billing amount")
	ErrNegativeGross = errors.New("gross billing cannot be negative")
	ErrNotesTooLong  = errors.New("notes too long (max 500 characters)")
)

var clinics = []Clinic{Hemac, MMBalwyn, FNMC, NovaBody}

// Clinics returns the practice locations in display order.
func Clinics() []Clinic {
	return append([]Clinic(nil), clinics...)
}

// DefaultClinic is the first clinic, preselected in a fresh form.
func DefaultClinic() Clinic {
	return clinics[0]
}

func (c Clinic) String() string {
	return string(c)
}

func (c Clinic) Valid() bool {
	for _, known := range clinics {
		if c == known {
			return true
		}
	}
	return false
}

// ParseClinic matches s exactly against the known clinics.
func ParseClinic(s string) (Clinic, error) {
	c := Clinic(strings.TrimSpace(s))
	if !c.Valid() {
		return "", ErrInvalidClinic
	}
	return c, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(ISODateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// StartOfMonth returns the first day of d's month.
func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// String returns the ISO form used for storage and filters.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(ISODateLayout)
}

// Display renders the date as shown in the report table (e.g. 02 Jan 2024).
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02 Jan 2006")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (f EntryFields) Validate() error {
	if err := f.BillDate.Validate(); err != nil {
		return err
	}
	if !f.Clinic.Valid() {
		return ErrInvalidClinic
	}
	if f.GrossBilling.IsNegative() {
		return ErrNegativeGross
	}
	if utf8.RuneCountInString(f.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// Fields returns the editable part of the entry.
func (e BillingEntry) Fields() EntryFields {
	return EntryFields{
		BillDate:     e.BillDate,
		Clinic:       e.Clinic,
		GrossBilling: e.GrossBilling,
		Notes:        e.Notes,
	}
}

package tracker

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"billing/internal/core"
	"billing/internal/store"
)

// User-facing validation messages.
const (
	MsgInvalidGross  = "Enter a valid gross billing number"
	MsgNegativeGross = "Gross billing cannot be negative"
	MsgInvalidDate   = "Enter a valid date"
	MsgInvalidClinic = "Choose a clinic"
	MsgNotesTooLong  = "Notes must be 500 characters or fewer"
)

// FormInput is the entry form as submitted, all fields still text.
type FormInput struct {
	Date   string `validate:"required,datetime=2006-01-02"`
	Clinic string `validate:"required,clinic"`
	Gross  string `validate:"gross"`
	Notes  string `validate:"max=500"`
}

// FilterInput is the report filter as submitted.
type FilterInput struct {
	From   string
	To     string
	Clinic string
}

// ValidationError rejects a submission before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var messages = map[string]string{
	"Date":   MsgInvalidDate,
	"Clinic": MsgInvalidClinic,
	"Gross":  MsgInvalidGross,
	"Notes":  MsgNotesTooLong,
}

// NewValidator returns a validator with the clinic and gross rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	// oneof splits on spaces, which breaks "MM Balwyn".
	_ = v.RegisterValidation("clinic", func(fl validator.FieldLevel) bool {
		return core.Clinic(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("clinic_filter", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == store.AllClinics || core.Clinic(s).Valid()
	})
	_ = v.RegisterValidation("gross", func(fl validator.FieldLevel) bool {
		_, err := core.ParseGross(fl.Field().String())
		return err == nil
	}, true)
	return v
}

// fields validates in and converts it to entry fields.
func (in FormInput) fields(v *validator.Validate) (core.EntryFields, error) {
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0].Field()
			return core.EntryFields{}, &ValidationError{Field: strings.ToLower(f), Message: messages[f]}
		}
		return core.EntryFields{}, err
	}

	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.EntryFields{}, &ValidationError{Field: "date", Message: MsgInvalidDate}
	}
	gross, err := core.ParseGross(in.Gross)
	if err != nil {
		return core.EntryFields{}, &ValidationError{Field: "gross", Message: MsgInvalidGross}
	}
	f := core.EntryFields{
		BillDate:     date,
		Clinic:       core.Clinic(in.Clinic),
		GrossBilling: gross,
		Notes:        in.Notes,
	}
	if err := f.Validate(); err != nil {
		switch {
		case errors.Is(err, core.ErrNegativeGross):
			return core.EntryFields{}, &ValidationError{Field: "gross", Message: MsgNegativeGross}
		case errors.Is(err, core.ErrNotesTooLong):
			return core.EntryFields{}, &ValidationError{Field: "notes", Message: MsgNotesTooLong}
		}
		return core.EntryFields{}, err
	}
	return f, nil
}

package http

import (
	"billing/internal/core"
	"billing/internal/store"
	"billing/internal/tracker"
)

// Template data. Amounts and dates are formatted here so the templates
// only print strings.
type (
	pageData struct {
		AppName      string
		Practitioner string
		Form         formView
		Report       reportView
	}

	formView struct {
		tracker.Form
		Editing bool
		Error   string
		Clinics []string
		// OOB marks the partial for an out-of-band swap.
		OOB bool
	}

	reportView struct {
		From    string
		To      string
		Clinic  string
		Clinics []string
		Rows    []rowView
		Status  string
		Err     string
		Total   string
		OOB     bool
	}

	rowView struct {
		ID      string
		Date    string
		Clinic  string
		Gross   string
		Notes   string
		Editing bool
	}
)

func clinicNames() []string {
	clinics := core.Clinics()
	out := make([]string, len(clinics))
	for i, c := range clinics {
		out[i] = string(c)
	}
	return out
}

func newFormView(snap tracker.Snapshot) formView {
	return formView{
		Form:    snap.Form,
		Editing: snap.Form.Mode() == tracker.ModeEdit,
		Clinics: clinicNames(),
	}
}

func newReportView(snap tracker.Snapshot) reportView {
	rv := reportView{
		From:    snap.Filter.From.String(),
		To:      snap.Filter.To.String(),
		Clinic:  snap.Filter.Clinic,
		Clinics: append([]string{store.AllClinics}, clinicNames()...),
		Status:  string(snap.Status),
		Err:     snap.Err,
		Total:   core.FormatAUD(snap.Total),
	}
	for _, e := range snap.Rows {
		rv.Rows = append(rv.Rows, rowView{
			ID:      e.ID,
			Date:    e.BillDate.Display(),
			Clinic:  string(e.Clinic),
			Gross:   core.FormatAUD(e.GrossBilling),
			Notes:   e.Notes,
			Editing: e.ID == snap.Form.EditingID,
		})
	}
	return rv
}

func (s *Server) newPageData(snap tracker.Snapshot) pageData {
	return pageData{
		AppName:      s.opts.AppName,
		Practitioner: s.opts.Practitioner,
		Form:         newFormView(snap),
		Report:       newReportView(snap),
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	applog "billing/internal/log"
	"billing/internal/report"
	"billing/internal/store"
	"billing/internal/tracker"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, v *tracker.View) {
	ctx := r.Context()
	if err := v.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "Report query failed", applog.FieldError, err, applog.FieldOperation, applog.OpList)
	}
	body, err := s.render(ctx, "index.html", s.newPageData(v.Snapshot()))
	if err != nil {
		InternalServerError("Could not render page").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleSubmit creates an entry, or updates the one being edited. On
// success the reloaded report goes out of band with the reset form.
// Failures re-render the form with the submitted values and raise an error
// notification; the status stays 200 so HTMX swaps the form.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, v *tracker.View) {
	ctx := r.Context()
	in, err := ParseEntryForm(r)
	if err != nil {
		s.logger.WarnContext(ctx, "Unreadable entry form", applog.FieldError, err)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	editing := v.Snapshot().Form.EditingID
	op := applog.OpCreate
	if editing != "" {
		op = applog.OpUpdate
	}

	err = v.Submit(ctx, in)
	form := newFormView(v.Snapshot())
	resp := NewHTMXResponse()

	var verr *tracker.ValidationError
	switch {
	case errors.As(err, &verr):
		s.logger.InfoContext(ctx, "Entry rejected",
			"field", verr.Field,
			applog.FieldErrorType, applog.ErrorTypeValidation,
			applog.FieldOperation, op)
		form.Error = verr.Message
		resp.TriggerErrorNotification(verr.Message)
	case err != nil:
		s.appMetrics.writeErrors.Add(1)
		s.events.LogError(ctx, "Saving billing entry failed", err, op,
			applog.NewFields().WithEntry(editing, in.Date, in.Clinic, in.Gross))
		resp.TriggerErrorNotification(err.Error())
	default:
		s.appMetrics.entriesSaved.Add(1)
		s.events.LogEntrySaved(ctx, op, editing, in.Date, in.Clinic, in.Gross)
		msg := "Billing saved"
		if editing != "" {
			msg = "Billing updated"
		}
		resp.TriggerFormReset().TriggerSuccessNotification(msg)

		// Submit already reloaded the rows; ship them with the form.
		body, err := s.render(ctx, "entry_form", form)
		if err != nil {
			InternalServerError("Could not render form").Write(w)
			return
		}
		rep := newReportView(v.Snapshot())
		rep.OOB = true
		extra, err := s.render(ctx, "report", rep)
		if err != nil {
			InternalServerError("Could not render report").Write(w)
			return
		}
		resp.BodyHTML(append(body, extra...)).Write(w)
		return
	}

	s.writePartial(ctx, w, resp, "entry_form", form)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, v *tracker.View) {
	ctx := r.Context()
	id := r.PathValue("id")
	resp := NewHTMXResponse()
	if err := v.Edit(id); err != nil {
		s.logger.InfoContext(ctx, "Edit of unknown entry", applog.FieldEntryID, id, applog.FieldError, err)
		resp.TriggerErrorNotification(err.Error())
	}
	s.writePartial(ctx, w, resp, "entry_form", newFormView(v.Snapshot()))
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request, v *tracker.View) {
	v.CancelEdit()
	resp := NewHTMXResponse().TriggerFormReset()
	s.writePartial(r.Context(), w, resp, "entry_form", newFormView(v.Snapshot()))
}

// handleDelete answers with the report partial. When the deleted entry was
// in the form, the reset form is sent along as an out-of-band swap.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, v *tracker.View) {
	ctx := r.Context()
	id := r.PathValue("id")
	wasEditing := v.Snapshot().Form.EditingID == id

	err := v.Delete(ctx, id)
	snap := v.Snapshot()
	resp := NewHTMXResponse()
	if err != nil {
		s.appMetrics.writeErrors.Add(1)
		s.events.LogError(ctx, "Deleting billing entry failed", err, applog.OpDelete,
			applog.NewFields().WithEntry(id, "", "", ""))
		resp.TriggerErrorNotification(err.Error())
		s.writePartial(ctx, w, resp, "report", newReportView(snap))
		return
	}

	s.appMetrics.entriesDeleted.Add(1)
	s.logger.InfoContext(ctx, "Billing entry deleted", applog.FieldEntryID, id, applog.FieldOperation, applog.OpDelete)
	resp.TriggerSuccessNotification("Entry deleted")

	body, err := s.render(ctx, "report", newReportView(snap))
	if err != nil {
		InternalServerError("Could not render report").Write(w)
		return
	}
	if wasEditing {
		form := newFormView(snap)
		form.OOB = true
		extra, err := s.render(ctx, "entry_form", form)
		if err != nil {
			InternalServerError("Could not render form").Write(w)
			return
		}
		body = append(body, extra...)
		resp.TriggerFormReset()
	}
	resp.BodyHTML(body).Write(w)
}

// handleReport applies the filter in the query string and re-renders the
// report. Query errors are shown inside the report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, v *tracker.View) {
	ctx := r.Context()
	in := ParseFilterQuery(r.URL.Query())
	if err := v.SetFilter(ctx, in); err != nil {
		s.logger.WarnContext(ctx, "Report query failed",
			applog.FieldFrom, in.From,
			applog.FieldTo, in.To,
			applog.FieldClinic, in.Clinic,
			applog.FieldError, err)
	}
	s.writePartial(ctx, w, NewHTMXResponse(), "report", newReportView(v.Snapshot()))
}

func (s *Server) handleReportRefresh(w http.ResponseWriter, r *http.Request, v *tracker.View) {
	ctx := r.Context()
	if err := v.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "Report refresh failed", applog.FieldError, err)
	}
	s.writePartial(ctx, w, NewHTMXResponse(), "report", newReportView(v.Snapshot()))
}

// handleExport downloads the loaded rows as CSV, or answers 204 when there
// are none.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, v *tracker.View) {
	ctx := r.Context()
	data, filename, ok, err := v.Export()
	if err != nil {
		s.events.LogError(ctx, "CSV export failed", err, applog.OpExport, nil)
		InternalServerError("Could not export report").Write(w)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.appMetrics.exports.Add(1)
	s.logger.InfoContext(ctx, "Report exported", "filename", filename, applog.FieldOperation, applog.OpExport)
	NewHTMXResponse().
		Header("Content-Type", report.ContentType).
		Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename)).
		Body(data).
		Write(w)
}

func (s *Server) writePartial(ctx context.Context, w http.ResponseWriter, resp *HTMXResponseBuilder, name string, data any) {
	body, err := s.render(ctx, name, data)
	if err != nil {
		InternalServerError("Could not render " + name).Write(w)
		return
	}
	resp.BodyHTML(body).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady reports 503 until the templates are loaded and the store
// answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if p, ok := s.store.(store.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "ok"
	}
	checks["sessions"] = s.sessions.Size()

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", s.trace.GetMetrics().TotalRequests)
	metric("billing_entries_saved_total", "counter", "Billing entries created or updated", s.appMetrics.entriesSaved.Load())
	metric("billing_entries_deleted_total", "counter", "Billing entries deleted", s.appMetrics.entriesDeleted.Load())
	metric("billing_write_errors_total", "counter", "Store failures on create, update or delete", s.appMetrics.writeErrors.Load())
	metric("billing_exports_total", "counter", "CSV exports served", s.appMetrics.exports.Load())
	metric("sessions_opened_total", "counter", "Tracker sessions started", s.appMetrics.sessionsOpened.Load())
	metric("sessions_active", "gauge", "Tracker sessions held in memory", s.sessions.Size())
	metric("rate_limit_hits_total", "counter", "Write requests rejected by the rate limiter", s.limiter.Hits())
	metric("suspicious_requests_total", "counter", "Requests that looked like probes", s.detector.SuspiciousCount())
	metric("uptime_seconds", "gauge", "Process uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

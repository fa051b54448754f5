// This file turns request bodies and query strings into tracker inputs.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billing/internal/tracker"
)

const maxBodyBytes = 64 << 10

// RequestBodyParser reads a form-encoded or JSON body once. HTMX sends
// forms; the json-enc extension and scripts send JSON.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
		}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("decode form body: %w", p.err)
	}
	return p.err
}

// Get returns the sanitised value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		return sanitizeInput(stringValue(p.jsonData[key]))
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Raw returns the value of key exactly as submitted, or "".
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseEntryForm reads the entry form fields from the request body.
func ParseEntryForm(r *http.Request) (tracker.FormInput, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return tracker.FormInput{}, err
	}
	return tracker.FormInput{
		Date:   p.Get("date"),
		Clinic: p.Get("clinic"),
		Gross:  p.Get("gross"),
		Notes:  p.Raw("notes"),
	}, nil
}

// ParseFilterQuery reads the report filter from a query string. Missing
// values stay empty and leave the current filter untouched.
func ParseFilterQuery(q url.Values) tracker.FilterInput {
	return tracker.FilterInput{
		From:   sanitizeInput(q.Get("from")),
		To:     sanitizeInput(q.Get("to")),
		Clinic: sanitizeInput(q.Get("clinic")),
	}
}

// sanitizeInput trims s and drops control characters other than tab and
// line breaks.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

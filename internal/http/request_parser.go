// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// query filters, bounded integers, JSON bodies and multipart uploads.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"fintrack/internal/core"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadSize = 10 << 20
)

// errBadRequest marks malformed requests; handlers answer them with 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// ParseTransactionFilter reads start, end, type, category_id, vendor_id and
// project_id from the query string.
func ParseTransactionFilter(q url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter

	for key, dst := range map[string]**core.Date{"start": &f.StartDate, "end": &f.EndDate} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.TransactionFilter{}, fmt.Errorf("%s: %w", key, core.ErrInvalidDate)
		}
		*dst = &d
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(f.StartDate.Time) {
		return core.TransactionFilter{}, core.ErrInvalidDateRange
	}

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		f.Type = core.TransactionType(strings.ToLower(v))
		if !f.Type.Valid() {
			return core.TransactionFilter{}, core.ErrInvalidType
		}
	}

	f.CategoryID = strings.TrimSpace(q.Get("category_id"))
	f.VendorID = strings.TrimSpace(q.Get("vendor_id"))
	f.ProjectID = strings.TrimSpace(q.Get("project_id"))
	return f, nil
}

// ParseBudgetFilter reads department, status and period from the query
// string. A period filter is anchored on today.
func ParseBudgetFilter(q url.Values, now time.Time) (core.BudgetFilter, error) {
	f := core.BudgetFilter{
		Department: strings.TrimSpace(q.Get("department")),
		Status:     core.BudgetStatus(strings.ToLower(strings.TrimSpace(q.Get("status")))),
		Period:     core.BudgetPeriod(strings.ToLower(strings.TrimSpace(q.Get("period")))),
	}
	if f.Status != "" && !f.Status.Valid() {
		return core.BudgetFilter{}, core.ErrInvalidStatus
	}
	if !f.Period.Valid() {
		return core.BudgetFilter{}, core.ErrInvalidPeriod
	}
	if f.Period != "" {
		f.AsOf = core.DateOf(now)
	}
	return f, nil
}

// ParseIntParam returns the named query integer clamped to [lo, hi], or def
// when it is missing or malformed.
func ParseIntParam(q url.Values, key string, def, lo, hi int) int {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return max(lo, min(hi, n))
}

// DecodeJSON decodes a single JSON object from the request body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case core.IsValidation(err):
			return err
		default:
			return badRequest("invalid JSON body")
		}
	}
	if dec.More() {
		return badRequest("request body must hold a single JSON object")
	}
	return nil
}

// Upload is a file received through a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Reader returns a reader over the upload's content.
func (u Upload) Reader() io.Reader {
	return bytes.NewReader(u.Data)
}

// ReadUpload reads the multipart file field. The content type falls back to
// sniffing when the client did not send one.
func ReadUpload(w http.ResponseWriter, r *http.Request, field string) (Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return Upload{}, badRequest("file exceeds %d MB", maxUploadSize>>20)
		}
		return Upload{}, badRequest("missing file field %q", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Upload{}, badRequest("read uploaded file")
	}
	if len(data) == 0 {
		return Upload{}, badRequest("uploaded file is empty")
	}

	ct := header.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return Upload{Filename: sanitizeFilename(header.Filename), ContentType: ct, Data: data}, nil
}

// sanitizeInput trims s and drops control characters.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s))
}

// sanitizeFilename keeps the base name of an uploaded file.
func sanitizeFilename(name string) string {
	name = sanitizeInput(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

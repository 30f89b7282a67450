// Package respond writes API bodies: season row tables in JSON or CSV,
// cached payloads with their ETag headers and structured errors.
package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// Error codes carried in ErrorResponse.
const (
	CodeInvalidSeason = "INVALID_SEASON"
	CodeNotFound      = "NOT_FOUND"
	CodeNotAcceptable = "NOT_ACCEPTABLE"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInternal      = "INTERNAL"
)

// Format is the body encoding of a row table.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

// Formats lists every supported Format, default first.
var Formats = []Format{JSON, CSV}

// ErrUnsupportedFormat is returned by Negotiate for an unknown ?format=.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ContentType returns the Content-Type header for f.
func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Negotiate picks the body format. An explicit ?format= wins over Accept;
// anything else is JSON.
func Negotiate(r *http.Request) (Format, error) {
	if v := r.URL.Query().Get("format"); v != "" {
		for _, f := range Formats {
			if strings.EqualFold(v, string(f)) {
				return f, nil
			}
		}
		return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, v)
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if mt, _, err := mime.ParseMediaType(strings.TrimSpace(part)); err == nil && mt == "text/csv" {
			return CSV, nil
		}
	}
	return JSON, nil
}

// Table is a block of dataset rows in CSV column order.
type Table struct {
	Season  string     `json:"season"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Encode renders the table. CSV bodies are a header line plus rows, the
// same layout as a season file on disk.
func (t Table) Encode(f Format) ([]byte, error) {
	if f != CSV {
		return json.Marshal(t)
	}
	var buf bytes.Buffer
	cw := gocsv.DefaultCSVWriter(&buf)
	if err := cw.Write(t.Columns); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(t.Columns))
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Cached describes an encoded body served from (or just stored in) the cache.
type Cached struct {
	Format   Format
	ETag     string
	TTL      time.Duration
	Hit      bool
	Filename string // CSV attachment name, optional
}

// Write sends an encoded body with its cache and ETag headers.
func Write(w http.ResponseWriter, data []byte, c Cached) {
	h := w.Header()
	h.Set("Content-Type", c.Format.ContentType())
	h.Set("ETag", c.ETag)
	h.Set("Vary", "Accept, Accept-Encoding")
	if c.Format == CSV && c.Filename != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": c.Filename}))
	}
	if c.Hit {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}
	maxAge := int(c.TTL.Seconds())
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, maxAge/2))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteNotModified sends a 304 with the matching ETag.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// ErrorResponse is the error body. Formats is filled when the request asked
// for an encoding the endpoint cannot produce.
type ErrorResponse struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Detail  string   `json:"detail,omitempty"`
		Formats []Format `json:"formats,omitempty"`
	} `json:"error"`
}

// WriteError sends a structured JSON error.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetail(w, status, code, message, "")
}

// WriteErrorDetail sends a structured JSON error with a detail line.
func WriteErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Detail = detail
	writeError(w, status, resp)
}

// WriteNotAcceptable reports an unsupported format along with the ones the
// endpoint serves.
func WriteNotAcceptable(w http.ResponseWriter, err error) {
	var resp ErrorResponse
	resp.Error.Code = CodeNotAcceptable
	resp.Error.Message = "Unsupported response format"
	resp.Error.Detail = err.Error()
	resp.Error.Formats = Formats
	writeError(w, http.StatusNotAcceptable, resp)
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", JSON.ContentType())
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteObject encodes v as an uncached JSON body.
func WriteObject(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", JSON.ContentType())
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

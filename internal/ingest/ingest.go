// Package ingest fetches the character-separated selection sheet export and
// parses it into raw rows. The source is a spreadsheet published over HTTP
// GET with a header row; real exports arrive with ragged rows and sloppy
// quoting, so parsing is lenient and collects warnings instead of aborting.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/candidatesuite/shortlist/internal/schema"
)

const defaultTimeout = 15 * time.Second

// FetchError reports a transport failure or a non-success HTTP status.
type FetchError struct {
	URL    string
	Status string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("ingest: fetch %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("ingest: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a payload that cannot be decoded as tabular data at all.
// Row-level problems are warnings, not ParseErrors.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("ingest: parse: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Warning is a non-fatal row-level parsing issue. Warnings are surfaced to the
// log, never to the operator as a blocking state.
type Warning struct {
	Row     int
	Message string
}

func (w Warning) String() string { return fmt.Sprintf("row %d: %s", w.Row, w.Message) }

// Fetcher reads the selection sheet. Safe to invoke repeatedly: each call
// returns the current upstream state and has no side effect beyond the GET.
type Fetcher struct {
	url    string
	client *http.Client
}

// Option customizes Fetcher construction.
type Option func(*Fetcher)

// WithClient overrides the HTTP client, primarily for tests.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// NewFetcher builds a fetcher for the given CSV export URL.
func NewFetcher(url string, opts ...Option) *Fetcher {
	f := &Fetcher{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fetch downloads and parses the sheet. The returned warnings accompany a
// successful parse; a nil record slice with a nil error means the sheet held
// only a header.
func (f *Fetcher) Fetch(ctx context.Context) ([]schema.RawRecord, []Warning, error) {
	if f.url == "" {
		return nil, nil, &FetchError{URL: "(empty)", Err: errors.New("no source URL configured")}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, nil, &FetchError{URL: f.url, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, &FetchError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &FetchError{URL: f.url, Status: resp.Status}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &FetchError{URL: f.url, Err: err}
	}
	return Parse(body)
}

// Parse decodes a CSV payload into raw records. The first row is the header;
// header labels and every cell are trimmed before use; rows whose every cell
// trims to empty are discarded so trailing blank sheet rows never become
// phantom candidates. Ragged rows are padded or truncated with a warning.
func Parse(data []byte) ([]schema.RawRecord, []Warning, error) {
	reader := csv.NewReader(bytes.NewReader(stripBOM(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &ParseError{Err: errors.New("empty payload: no header row")}
		}
		return nil, nil, &ParseError{Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var (
		records  []schema.RawRecord
		warnings []Warning
	)
	rowNum := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			warnings = append(warnings, Warning{Row: rowNum, Message: fmt.Sprintf("unreadable row: %v", err)})
			continue
		}
		if len(row) != len(header) {
			if len(row) < len(header) {
				warnings = append(warnings, Warning{Row: rowNum, Message: fmt.Sprintf("%d column(s), expected %d; padding", len(row), len(header))})
				padded := make([]string, len(header))
				copy(padded, row)
				row = padded
			} else {
				warnings = append(warnings, Warning{Row: rowNum, Message: fmt.Sprintf("%d column(s), expected %d; truncating", len(row), len(header))})
				row = row[:len(header)]
			}
		}
		rec := make(schema.RawRecord, len(header))
		blank := true
		for i, label := range header {
			value := strings.TrimSpace(row[i])
			if value != "" {
				blank = false
			}
			rec[label] = value
		}
		if blank {
			continue
		}
		records = append(records, rec)
	}
	return records, warnings, nil
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

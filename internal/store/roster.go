// Package store holds the thin repository facades over the two remote
// candidate stores: the read-only selection queue and the read/write roster.
// Neither keeps local state; every listing re-ingests the upstream sheet
// wholesale.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/candidatesuite/shortlist/internal/ingest"
	"github.com/candidatesuite/shortlist/internal/schema"
)

const defaultTimeout = 15 * time.Second

// RosterEntry is one accepted/ongoing candidate record. Datetime is formatted
// at write time; it is never parsed back.
type RosterEntry struct {
	Name         string `json:"Name"`
	Email        string `json:"Email"`
	PhoneNumber  string `json:"Phone Number"`
	JobRoleAdmin string `json:"Job Role Admin"`
	Datetime     string `json:"Datetime"`
}

// Key returns the entry's natural de-duplication key.
func (e RosterEntry) Key() schema.NaturalKey {
	return schema.NewKey(e.Name, e.Email)
}

// WriteError is a store-reported write failure: either the remote endpoint
// answered success=false with a message, or the request itself failed.
type WriteError struct {
	Op      string
	Message string
	Err     error
}

func (e *WriteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("roster: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("roster: %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ValidationError reports an entry that fails the roster schema constraints
// before any remote call is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("roster: invalid %s: %s", e.Field, e.Reason)
}

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\d{8,15}$`)
)

// ValidateEntry checks the constraints the roster sheet expects: non-empty
// name and job role, a lowercase e-mail address, and a numeric-only phone of
// 8 to 15 digits (country code included).
func ValidateEntry(e RosterEntry) error {
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	email := strings.ToLower(strings.TrimSpace(e.Email))
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	if !phonePattern.MatchString(strings.TrimSpace(e.PhoneNumber)) {
		return &ValidationError{Field: "phone", Reason: "must be 8-15 digits, numeric only"}
	}
	if strings.TrimSpace(e.JobRoleAdmin) == "" {
		return &ValidationError{Field: "job role", Reason: "required"}
	}
	return nil
}

// FormatDateTime renders the roster creation timestamp in the sheet's
// 12-hour format with two-digit minutes and seconds, e.g.
// "5/3/2025, 2:07:09 pm".
func FormatDateTime(t time.Time) string {
	hours := t.Hour() % 12
	if hours == 0 {
		hours = 12
	}
	ampm := "am"
	if t.Hour() >= 12 {
		ampm = "pm"
	}
	return fmt.Sprintf("%d/%d/%d, %d:%02d:%02d %s",
		t.Day(), int(t.Month()), t.Year(), hours, t.Minute(), t.Second(), ampm)
}

// HasEntry reports whether any listed entry already carries the key. The
// duplicate check is client-side: the store itself will happily append a
// second row, so callers must consult this before Create.
func HasEntry(entries []RosterEntry, key schema.NaturalKey) bool {
	for _, entry := range entries {
		if entry.Key() == key {
			return true
		}
	}
	return false
}

// writeKey identifies the record an update or delete targets.
type writeKey struct {
	KeyName  string `json:"keyName"`
	KeyEmail string `json:"keyEmail"`
}

type writeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Roster is the read/write store of accepted candidates. Reads come from the
// sheet's CSV export; writes go through the CRUD endpoint, which reports
// business failures as {success:false, message}.
type Roster struct {
	apiURL  string
	fetcher *ingest.Fetcher
	client  *http.Client
	clock   func() time.Time
}

// RosterOption customizes Roster construction.
type RosterOption func(*Roster)

// WithRosterClient overrides the HTTP client used for writes.
func WithRosterClient(c *http.Client) RosterOption {
	return func(r *Roster) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRosterClock injects a deterministic clock for tests.
func WithRosterClock(clock func() time.Time) RosterOption {
	return func(r *Roster) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRoster wires the roster facade to its CSV export and CRUD endpoint.
func NewRoster(csvURL, apiURL string, opts ...RosterOption) *Roster {
	r := &Roster{
		apiURL: strings.TrimRight(strings.TrimSpace(apiURL), "/"),
		client: &http.Client{Timeout: defaultTimeout},
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.fetcher = ingest.NewFetcher(csvURL, ingest.WithClient(r.client))
	return r
}

// Now returns the roster's current clock reading.
func (r *Roster) Now() time.Time { return r.clock() }

// List re-ingests the roster sheet. A parse failure blocks the whole listing;
// warnings accompany a successful read.
func (r *Roster) List(ctx context.Context) ([]RosterEntry, []ingest.Warning, error) {
	records, warnings, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]RosterEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entryFromRecord(rec))
	}
	return entries, warnings, nil
}

// Create appends a new entry. Callers are responsible for the duplicate
// (name, email) check; the store does not enforce it.
func (r *Roster) Create(ctx context.Context, entry RosterEntry) error {
	return r.post(ctx, "create", entry)
}

// Update rewrites the entry identified by key.
func (r *Roster) Update(ctx context.Context, key schema.NaturalKey, entry RosterEntry) error {
	payload := struct {
		writeKey
		RosterEntry
	}{
		writeKey:    writeKey{KeyName: key.Name, KeyEmail: key.Email},
		RosterEntry: entry,
	}
	return r.post(ctx, "update", payload)
}

// Delete removes the entry identified by key.
func (r *Roster) Delete(ctx context.Context, key schema.NaturalKey) error {
	return r.post(ctx, "delete", writeKey{KeyName: key.Name, KeyEmail: key.Email})
}

func (r *Roster) post(ctx context.Context, op string, payload any) error {
	if r.apiURL == "" {
		return &WriteError{Op: op, Err: fmt.Errorf("no roster API URL configured")}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &WriteError{Op: op, Err: err}
	}
	url := r.apiURL + "/" + op
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &WriteError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return &WriteError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &WriteError{Op: op, Message: resp.Status}
	}
	var decoded writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return &WriteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !decoded.Success {
		msg := decoded.Message
		if msg == "" {
			msg = "remote store rejected the write"
		}
		return &WriteError{Op: op, Message: msg}
	}
	return nil
}

func entryFromRecord(rec schema.RawRecord) RosterEntry {
	return RosterEntry{
		Name:         field(rec, "Name"),
		Email:        field(rec, "Email"),
		PhoneNumber:  field(rec, "Phone Number"),
		JobRoleAdmin: field(rec, "Job Role Admin"),
		Datetime:     field(rec, "Datetime"),
	}
}

func field(rec schema.RawRecord, label string) string {
	if v, ok := rec[label]; ok {
		return strings.TrimSpace(v)
	}
	for key, v := range rec {
		if strings.TrimSpace(key) == label {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

package transition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/candidatesuite/shortlist/internal/ingest"
	"github.com/candidatesuite/shortlist/internal/notify"
	"github.com/candidatesuite/shortlist/internal/schema"
	"github.com/candidatesuite/shortlist/internal/store"
)

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	sent  []notify.Decision
	block chan struct{}
}

func (f *fakeNotifier) Send(ctx context.Context, c schema.Candidate, d notify.Decision) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, d)
	return nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeRoster struct {
	mu        sync.Mutex
	entries   []store.RosterEntry
	listErr   error
	createErr error
	created   []store.RosterEntry
}

func (f *fakeRoster) List(ctx context.Context) ([]store.RosterEntry, []ingest.Warning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	return append([]store.RosterEntry(nil), f.entries...), nil, nil
}

func (f *fakeRoster) Create(ctx context.Context, entry store.RosterEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, entry)
	return nil
}

type recordingLog struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLog) Info(string, ...any) {}
func (l *recordingLog) Warn(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, format)
}

func candidate() schema.Candidate {
	return schema.Candidate{
		Name:             "Ada Lovelace",
		Email:            "ada@example.com",
		Mobile:           "919876543210",
		JobRoleCandidate: "Backend Engineer",
	}
}

var fixedClock = func() time.Time {
	return time.Date(2025, 3, 5, 14, 7, 9, 0, time.Local)
}

func TestAcceptCreatesRosterEntry(t *testing.T) {
	notifier := &fakeNotifier{}
	roster := &fakeRoster{}
	o := New(notifier, roster, WithClock(fixedClock))

	res, err := o.Run(context.Background(), Request{Candidate: candidate(), Decision: notify.DecisionAccept})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != StateAccepted {
		t.Fatalf("state = %s", res.State)
	}
	if !res.Refresh.Queue || !res.Refresh.Roster {
		t.Fatalf("accept must refresh both stores, got %+v", res.Refresh)
	}
	if len(roster.created) != 1 {
		t.Fatalf("expected one roster create, got %d", len(roster.created))
	}
	entry := roster.created[0]
	if entry.JobRoleAdmin != "Backend Engineer" {
		t.Fatalf("job role not mapped: %+v", entry)
	}
	if entry.Datetime != "5/3/2025, 2:07:09 pm" {
		t.Fatalf("datetime = %q", entry.Datetime)
	}
	if o.IsProcessing("ada@example.com") {
		t.Fatalf("marker not cleared after success")
	}
}

func TestAcceptNotificationFailureSkipsRosterWrite(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("sink down")}
	roster := &fakeRoster{}
	o := New(notifier, roster)

	res, err := o.Run(context.Background(), Request{Candidate: candidate(), Decision: notify.DecisionAccept})
	var se *StepError
	if !errors.As(err, &se) || se.Step != StepNotification {
		t.Fatalf("expected notification StepError, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("state = %s", res.State)
	}
	if len(roster.created) != 0 {
		t.Fatalf("roster create must not run after failed notification")
	}
	if o.IsProcessing("ada@example.com") {
		t.Fatalf("marker must be cleared on failure")
	}
}

func TestAcceptDuplicateRejectedBeforeWrite(t *testing.T) {
	notifier := &fakeNotifier{}
	roster := &fakeRoster{entries: []store.RosterEntry{{Name: "ADA LOVELACE", Email: "Ada@Example.com"}}}
	o := New(notifier, roster)

	_, err := o.Run(context.Background(), Request{Candidate: candidate(), Decision: notify.DecisionAccept})
	var se *StepError
	if !errors.As(err, &se) || se.Step != StepDuplicateCheck {
		t.Fatalf("expected duplicate check StepError, got %v", err)
	}
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if len(roster.created) != 0 {
		t.Fatalf("no remote write may be attempted on duplicate")
	}
}

func TestAcceptRosterFailureNamesStep(t *testing.T) {
	notifier := &fakeNotifier{}
	roster := &fakeRoster{createErr: &store.WriteError{Op: "create", Message: "quota exceeded"}}
	o := New(notifier, roster)

	_, err := o.Run(context.Background(), Request{Candidate: candidate(), Decision: notify.DecisionAccept})
	var se *StepError
	if !errors.As(err, &se) || se.Step != StepRosterCreate {
		t.Fatalf("expected roster create StepError, got %v", err)
	}
	var we *store.WriteError
	if !errors.As(err, &we) || we.Message != "quota exceeded" {
		t.Fatalf("remote error text lost: %v", err)
	}
}

func TestAcceptRetryAfterPartialFailureWarns(t *testing.T) {
	notifier := &fakeNotifier{}
	roster := &fakeRoster{createErr: errors.New("write failed")}
	log := &recordingLog{}
	o := New(notifier, roster, WithLogger(log))

	req := Request{Candidate: candidate(), Decision: notify.DecisionAccept}
	if _, err := o.Run(context.Background(), req); err == nil {
		t.Fatalf("expected first run to fail")
	}
	if len(log.warns) != 0 {
		t.Fatalf("no warning expected on first attempt")
	}

	roster.createErr = nil
	if _, err := o.Run(context.Background(), req); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(log.warns) != 1 {
		t.Fatalf("expected duplicate-delivery warning on retry, got %d", len(log.warns))
	}
	if notifier.sentCount() != 2 {
		t.Fatalf("duplicate delivery is flagged, not suppressed: %d sends", notifier.sentCount())
	}
}

func TestRejectSkipsRoster(t *testing.T) {
	notifier := &fakeNotifier{}
	roster := &fakeRoster{}
	o := New(notifier, roster)

	res, err := o.Run(context.Background(), Request{Candidate: candidate(), Decision: notify.DecisionReject})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != StateRejected {
		t.Fatalf("state = %s", res.State)
	}
	if res.Refresh.Roster || !res.Refresh.Queue {
		t.Fatalf("reject refreshes the queue only, got %+v", res.Refresh)
	}
	if len(roster.created) != 0 {
		t.Fatalf("reject must not touch the roster")
	}
	if notifier.sent[0] != notify.DecisionReject {
		t.Fatalf("decision = %s", notifier.sent[0])
	}
}

func TestSecondDecisionForInFlightEmailRefused(t *testing.T) {
	release := make(chan struct{})
	notifier := &fakeNotifier{block: release}
	o := New(notifier, &fakeRoster{})

	req := Request{Candidate: candidate(), Decision: notify.DecisionAccept}
	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), req)
		done <- err
	}()

	for !o.IsProcessing("ada@example.com") {
		time.Sleep(time.Millisecond)
	}
	if _, err := o.Run(context.Background(), req); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if o.IsProcessing("ada@example.com") {
		t.Fatalf("marker not cleared")
	}
}

func TestDifferentCandidatesMayInterleave(t *testing.T) {
	release := make(chan struct{})
	notifier := &fakeNotifier{block: release}
	o := New(notifier, &fakeRoster{})

	first := Request{Candidate: candidate(), Decision: notify.DecisionReject}
	go func() { _, _ = o.Run(context.Background(), first) }()
	for !o.IsProcessing("ada@example.com") {
		time.Sleep(time.Millisecond)
	}
	if o.IsProcessing("alan@example.com") {
		t.Fatalf("marker must be scoped per email")
	}
	close(release)
}

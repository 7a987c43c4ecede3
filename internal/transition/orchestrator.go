// Package transition drives the irreversible accept/reject saga for one
// selection-queue candidate. The three external stores (queue, roster,
// webhook) are independent and non-transactional: the saga is an explicit,
// ordered, non-reversible step list with per-step failure reporting, never a
// simulated transaction. The partial-failure window (notification delivered,
// roster write failed) is surfaced, not corrected.
package transition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/candidatesuite/shortlist/internal/ingest"
	"github.com/candidatesuite/shortlist/internal/notify"
	"github.com/candidatesuite/shortlist/internal/schema"
	"github.com/candidatesuite/shortlist/internal/store"
)

// State enumerates the lifecycle of one transition request.
type State string

const (
	StateIdle        State = "idle"
	StateDispatching State = "dispatching"
	StateAccepted    State = "accepted"
	StateRejected    State = "rejected"
	StateFailed      State = "failed"
)

// Saga step names, used in failure reporting.
const (
	StepNotification   = "notification"
	StepDuplicateCheck = "duplicate check"
	StepRosterCreate   = "roster create"
)

// ErrInFlight is returned when a second decision arrives for an email whose
// transition is still running.
var ErrInFlight = errors.New("transition: candidate is already being processed")

// ErrDuplicate is returned when the accept saga finds the candidate's
// (name, email) pair already on the roster.
var ErrDuplicate = errors.New("transition: candidate already on the roster")

// StepError names the saga step that failed and carries the remote error.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("transition: %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Request captures one operator decision. It lives for the duration of a
// single orchestration run and is never persisted.
type Request struct {
	Candidate schema.Candidate
	Decision  notify.Decision
}

// Refresh tells the presenting layer which repositories to re-ingest after a
// completed transition.
type Refresh struct {
	Queue  bool
	Roster bool
}

// Result reports the terminal state of one run.
type Result struct {
	State   State
	Refresh Refresh
	Entry   store.RosterEntry
}

// Notifier delivers decision notifications.
type Notifier interface {
	Send(ctx context.Context, c schema.Candidate, d notify.Decision) error
}

// RosterStore is the subset of the roster repository the saga touches. The
// orchestrator only ever lists (for the duplicate check) and appends.
type RosterStore interface {
	List(ctx context.Context) ([]store.RosterEntry, []ingest.Warning, error)
	Create(ctx context.Context, entry store.RosterEntry) error
}

// Logger matches the logbook's leveled printf methods.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}

// Orchestrator owns the in-flight marker set and runs the sagas. The marker
// is scoped per candidate email, so transitions for different candidates may
// interleave freely; a second decision for the same email is refused.
type Orchestrator struct {
	notifier Notifier
	roster   RosterStore
	log      Logger
	clock    func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
	// notified tracks emails whose accept notification was delivered but
	// whose roster write failed. A re-attempt means a duplicate webhook
	// delivery downstream; we flag it rather than de-duplicate.
	notified map[string]struct{}
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger routes saga progress and warnings to the given logger.
func WithLogger(l Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// New wires the orchestrator to its notification sink and roster store.
func New(notifier Notifier, roster RosterStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		notifier: notifier,
		roster:   roster,
		log:      nopLogger{},
		clock:    time.Now,
		inflight: map[string]struct{}{},
		notified: map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// IsProcessing reports whether a transition for the email is in flight. The
// marker is advisory: the presenting layer checks it to disable re-submission.
func (o *Orchestrator) IsProcessing(email string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inflight[markerKey(email)]
	return ok
}

// Run executes the saga for one decision. Once dispatched the sequence runs
// to completion or to first hard failure; there is no cancellation state.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	email := markerKey(req.Candidate.Email)
	if err := o.begin(email); err != nil {
		return Result{State: StateIdle}, err
	}
	// The marker is always cleared, whatever the outcome, so a failed
	// transition never locks a candidate out of retry.
	defer o.end(email)

	switch req.Decision {
	case notify.DecisionAccept:
		return o.accept(ctx, req.Candidate, email)
	case notify.DecisionReject:
		return o.reject(ctx, req.Candidate)
	default:
		return Result{State: StateFailed}, fmt.Errorf("transition: unknown decision %q", req.Decision)
	}
}

// accept: notify first, roster write second. The notification is the system
// of record downstream, so its failure aborts the run before any roster
// write.
func (o *Orchestrator) accept(ctx context.Context, c schema.Candidate, email string) (Result, error) {
	if o.wasNotified(email) {
		o.log.Warn("Accept retry for %s: notification already delivered once, downstream will see a duplicate", c.Email)
	}
	if err := o.notifier.Send(ctx, c, notify.DecisionAccept); err != nil {
		return Result{State: StateFailed}, &StepError{Step: StepNotification, Err: err}
	}
	o.markNotified(email)

	entries, _, err := o.roster.List(ctx)
	if err != nil {
		return Result{State: StateFailed}, &StepError{Step: StepDuplicateCheck, Err: err}
	}
	entry := o.rosterEntry(c)
	if store.HasEntry(entries, entry.Key()) {
		return Result{State: StateFailed}, &StepError{Step: StepDuplicateCheck, Err: ErrDuplicate}
	}
	if err := o.roster.Create(ctx, entry); err != nil {
		return Result{State: StateFailed}, &StepError{Step: StepRosterCreate, Err: err}
	}
	o.clearNotified(email)
	o.log.Info("Accepted %s · added to roster as %s", c.Email, entry.JobRoleAdmin)
	return Result{
		State:   StateAccepted,
		Refresh: Refresh{Queue: true, Roster: true},
		Entry:   entry,
	}, nil
}

func (o *Orchestrator) reject(ctx context.Context, c schema.Candidate) (Result, error) {
	if err := o.notifier.Send(ctx, c, notify.DecisionReject); err != nil {
		return Result{State: StateFailed}, &StepError{Step: StepNotification, Err: err}
	}
	o.log.Info("Rejected %s · removed from selection", c.Email)
	return Result{
		State:   StateRejected,
		Refresh: Refresh{Queue: true},
	}, nil
}

// rosterEntry derives the roster record from the candidate snapshot: the
// candidate-side job role becomes the admin-side one, and the timestamp is
// stamped at write time.
func (o *Orchestrator) rosterEntry(c schema.Candidate) store.RosterEntry {
	return store.RosterEntry{
		Name:         c.DisplayName(),
		Email:        c.Email,
		PhoneNumber:  c.Mobile,
		JobRoleAdmin: c.JobRoleCandidate,
		Datetime:     store.FormatDateTime(o.clock()),
	}
}

func (o *Orchestrator) begin(email string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inflight[email]; ok {
		return ErrInFlight
	}
	o.inflight[email] = struct{}{}
	return nil
}

func (o *Orchestrator) end(email string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, email)
}

func (o *Orchestrator) wasNotified(email string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.notified[email]
	return ok
}

func (o *Orchestrator) markNotified(email string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notified[email] = struct{}{}
}

func (o *Orchestrator) clearNotified(email string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.notified, email)
}

func markerKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/candidatesuite/shortlist/internal/config"
	"github.com/candidatesuite/shortlist/internal/ingest"
	"github.com/candidatesuite/shortlist/internal/notify"
	"github.com/candidatesuite/shortlist/internal/schema"
	"github.com/candidatesuite/shortlist/internal/store"
	"github.com/candidatesuite/shortlist/internal/transition"
	"github.com/candidatesuite/shortlist/rules"
)

type fakeQueue struct {
	candidates []schema.Candidate
	warnings   []ingest.Warning
	err        error
}

func (f *fakeQueue) List(context.Context) ([]schema.Candidate, []ingest.Warning, error) {
	return f.candidates, f.warnings, f.err
}

type fakeRoster struct {
	mu       sync.Mutex
	entries  []store.RosterEntry
	created  []store.RosterEntry
	updated  []store.RosterEntry
	deleted  []schema.NaturalKey
	writeErr error
}

func (f *fakeRoster) List(context.Context) ([]store.RosterEntry, []ingest.Warning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, nil, nil
}

func (f *fakeRoster) Create(_ context.Context, entry store.RosterEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.created = append(f.created, entry)
	return nil
}

func (f *fakeRoster) Update(_ context.Context, _ schema.NaturalKey, entry store.RosterEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updated = append(f.updated, entry)
	return nil
}

func (f *fakeRoster) Delete(_ context.Context, key schema.NaturalKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeDecider struct {
	result     transition.Result
	err        error
	processing map[string]bool
	runs       []transition.Request
}

func (f *fakeDecider) Run(_ context.Context, req transition.Request) (transition.Result, error) {
	f.runs = append(f.runs, req)
	if f.err != nil {
		return transition.Result{State: transition.StateFailed}, f.err
	}
	return f.result, nil
}

func (f *fakeDecider) IsProcessing(email string) bool {
	return f.processing[strings.ToLower(strings.TrimSpace(email))]
}

func newTestApp(t *testing.T, opts ...AppOption) *App {
	t.Helper()
	workDir := t.TempDir()
	if err := config.InitShortlistDir(workDir); err != nil {
		t.Fatalf("init shortlist dir: %v", err)
	}
	noRules := func(string) ([]rules.RuleFile, error) { return nil, nil }
	baseOpts := []AppOption{
		WithQueue(&fakeQueue{}),
		WithRoster(&fakeRoster{}),
		WithDecider(&fakeDecider{}),
		WithRuleLoader(noRules),
	}
	baseOpts = append(baseOpts, opts...)
	app, err := NewApp(workDir, baseOpts...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func updateApp(t *testing.T, app *App, msg tea.Msg) (*App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	next, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	return next, cmd
}

func TestQueueLoadAppliesRules(t *testing.T) {
	app := newTestApp(t)
	app.ruleFiles = []rules.RuleFile{
		{Rule: rules.Rule{ID: "min", Field: "overallScore", Op: "at-least", Value: "7"}},
	}
	candidates := []schema.Candidate{
		{Name: "High", Email: "high@example.com", OverallScore: "8"},
		{Name: "Low", Email: "low@example.com", OverallScore: "3"},
	}
	app, _ = updateApp(t, app, queueLoadedMsg{candidates: candidates})
	if app.unfiltered != 2 {
		t.Fatalf("unfiltered = %d, want 2", app.unfiltered)
	}
	if len(app.candidates) != 1 || app.candidates[0].Name != "High" {
		t.Fatalf("expected only High to survive the rule, got %+v", app.candidates)
	}
}

func TestAcceptRefreshesBothStores(t *testing.T) {
	decider := &fakeDecider{result: transition.Result{
		State:   transition.StateAccepted,
		Refresh: transition.Refresh{Queue: true, Roster: true},
	}}
	app := newTestApp(t, WithDecider(decider))
	app.candidates = []schema.Candidate{{Name: "Jane", Email: "jane@example.com"}}

	model, cmd := app.decideSelected(notify.DecisionAccept)
	app = model.(*App)
	if cmd == nil {
		t.Fatalf("expected decision command")
	}
	msg := app.runDecision(app.candidates[0], notify.DecisionAccept)()
	done, ok := msg.(decisionDoneMsg)
	if !ok {
		t.Fatalf("expected decisionDoneMsg, got %T", msg)
	}
	app, refreshCmd := updateApp(t, app, done)
	if !strings.Contains(app.statusMsg, "Accepted Jane") {
		t.Fatalf("status = %q, want accept confirmation", app.statusMsg)
	}
	if !app.loadingQueue || !app.loadingRoster {
		t.Fatalf("expected both stores to refresh, queue=%v roster=%v", app.loadingQueue, app.loadingRoster)
	}
	if refreshCmd == nil {
		t.Fatalf("expected refresh commands")
	}
}

func TestRejectRefreshesQueueOnly(t *testing.T) {
	decider := &fakeDecider{result: transition.Result{
		State:   transition.StateRejected,
		Refresh: transition.Refresh{Queue: true},
	}}
	app := newTestApp(t, WithDecider(decider))
	app.candidates = []schema.Candidate{{Name: "Jane", Email: "jane@example.com"}}

	msg := app.runDecision(app.candidates[0], notify.DecisionReject)()
	app, _ = updateApp(t, app, msg)
	if !app.loadingQueue {
		t.Fatalf("expected queue refresh after reject")
	}
	if app.loadingRoster {
		t.Fatalf("reject must not refresh the roster")
	}
	if !strings.Contains(app.statusMsg, "Rejected Jane") {
		t.Fatalf("status = %q, want reject confirmation", app.statusMsg)
	}
}

func TestDecisionRefusedWhileProcessing(t *testing.T) {
	decider := &fakeDecider{processing: map[string]bool{"jane@example.com": true}}
	app := newTestApp(t, WithDecider(decider))
	app.candidates = []schema.Candidate{{Name: "Jane", Email: "jane@example.com"}}

	model, cmd := app.decideSelected(notify.DecisionAccept)
	app = model.(*App)
	if cmd != nil {
		t.Fatalf("expected no command while candidate is in flight")
	}
	if !strings.Contains(app.statusMsg, "already being processed") {
		t.Fatalf("status = %q, want in-flight refusal", app.statusMsg)
	}
	if len(decider.runs) != 0 {
		t.Fatalf("decider must not run while candidate is in flight")
	}
}

func TestDecisionFailureNamesStep(t *testing.T) {
	decider := &fakeDecider{err: &transition.StepError{
		Step: transition.StepRosterCreate,
		Err:  errors.New("bad key"),
	}}
	app := newTestApp(t, WithDecider(decider))
	app.candidates = []schema.Candidate{{Name: "Jane", Email: "jane@example.com"}}

	msg := app.runDecision(app.candidates[0], notify.DecisionAccept)()
	app, _ = updateApp(t, app, msg)
	if !strings.Contains(app.statusMsg, transition.StepRosterCreate) {
		t.Fatalf("status = %q, want failing step name", app.statusMsg)
	}
	if app.loadingQueue || app.loadingRoster {
		t.Fatalf("failed decision must not trigger refreshes")
	}
}

func TestFormRejectsInvalidEmail(t *testing.T) {
	roster := &fakeRoster{}
	app := newTestApp(t, WithRoster(roster))
	app.beginForm(nil)
	app.formInputs[fieldName].SetValue("Jane Doe")
	app.formInputs[fieldEmail].SetValue("not-an-email")
	app.formInputs[fieldPhone].SetValue("12345678")
	app.formInputs[fieldJobRole].SetValue("Backend Engineer")

	model, cmd := app.submitForm()
	app = model.(*App)
	if cmd != nil {
		t.Fatalf("invalid entry must not produce a write command")
	}
	if app.state != stateForm {
		t.Fatalf("expected to stay on the form, state = %d", app.state)
	}
	if !strings.Contains(app.statusMsg, "Invalid entry") {
		t.Fatalf("status = %q, want validation failure", app.statusMsg)
	}
}

func TestFormRefusesDuplicateCreate(t *testing.T) {
	roster := &fakeRoster{}
	app := newTestApp(t, WithRoster(roster))
	app.rosterEntries = []store.RosterEntry{{Name: "Jane Doe", Email: "jane@example.com"}}
	app.beginForm(nil)
	app.formInputs[fieldName].SetValue("jane doe")
	app.formInputs[fieldEmail].SetValue("jane@example.com")
	app.formInputs[fieldPhone].SetValue("12345678")
	app.formInputs[fieldJobRole].SetValue("Backend Engineer")

	model, cmd := app.submitForm()
	app = model.(*App)
	if cmd != nil {
		t.Fatalf("duplicate entry must not produce a write command")
	}
	if !strings.Contains(app.statusMsg, "already on the roster") {
		t.Fatalf("status = %q, want duplicate refusal", app.statusMsg)
	}
}

func TestFormCreateSubmits(t *testing.T) {
	roster := &fakeRoster{}
	app := newTestApp(t, WithRoster(roster))
	app.beginForm(nil)
	app.formInputs[fieldName].SetValue("Jane Doe")
	app.formInputs[fieldEmail].SetValue("jane@example.com")
	app.formInputs[fieldPhone].SetValue("12345678")
	app.formInputs[fieldJobRole].SetValue("Backend Engineer")

	model, cmd := app.submitForm()
	app = model.(*App)
	if cmd == nil {
		t.Fatalf("expected create command")
	}
	msg := cmd()
	done, ok := msg.(rosterWriteDoneMsg)
	if !ok {
		t.Fatalf("expected rosterWriteDoneMsg, got %T", msg)
	}
	if done.op != "create" || done.err != nil {
		t.Fatalf("unexpected write result: %+v", done)
	}
	if len(roster.created) != 1 {
		t.Fatalf("expected one create, got %d", len(roster.created))
	}
	if roster.created[0].Datetime == "" {
		t.Fatalf("created entry missing datetime")
	}
	app, reload := updateApp(t, app, done)
	if !app.loadingRoster || reload == nil {
		t.Fatalf("successful write must reload the roster")
	}
}

func TestFormEditUpdatesExistingEntry(t *testing.T) {
	roster := &fakeRoster{}
	app := newTestApp(t, WithRoster(roster))
	existing := store.RosterEntry{
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		PhoneNumber:  "12345678",
		JobRoleAdmin: "Backend Engineer",
	}
	app.beginForm(&existing)
	if app.editingKey == nil {
		t.Fatalf("expected edit mode")
	}
	app.formInputs[fieldJobRole].SetValue("Staff Engineer")

	model, cmd := app.submitForm()
	app = model.(*App)
	if cmd == nil {
		t.Fatalf("expected update command")
	}
	if msg := cmd(); msg == nil {
		t.Fatalf("expected rosterWriteDoneMsg")
	}
	if len(roster.updated) != 1 || roster.updated[0].JobRoleAdmin != "Staff Engineer" {
		t.Fatalf("unexpected update payload: %+v", roster.updated)
	}
	if len(roster.created) != 0 {
		t.Fatalf("edit must not create")
	}
}

func TestDeleteConfirmFlow(t *testing.T) {
	roster := &fakeRoster{}
	app := newTestApp(t, WithRoster(roster))
	key := schema.NewKey("Jane Doe", "jane@example.com")
	app.deleteTarget = &key
	app.deleteName = "Jane Doe"
	app.state = stateConfirmDelete

	model, cmd := app.handleConfirmDeleteKey("y")
	app = model.(*App)
	if cmd == nil {
		t.Fatalf("expected delete command")
	}
	if msg := cmd(); msg == nil {
		t.Fatalf("expected rosterWriteDoneMsg")
	}
	if len(roster.deleted) != 1 || roster.deleted[0] != key {
		t.Fatalf("unexpected delete target: %+v", roster.deleted)
	}
	if app.state != stateRoster {
		t.Fatalf("expected return to roster tab")
	}
}

func TestDeleteCancelKeepsEntry(t *testing.T) {
	roster := &fakeRoster{}
	app := newTestApp(t, WithRoster(roster))
	key := schema.NewKey("Jane Doe", "jane@example.com")
	app.deleteTarget = &key
	app.deleteName = "Jane Doe"
	app.state = stateConfirmDelete

	model, cmd := app.handleConfirmDeleteKey("n")
	app = model.(*App)
	if cmd != nil {
		t.Fatalf("cancel must not produce a command")
	}
	if len(roster.deleted) != 0 {
		t.Fatalf("cancel must not delete")
	}
	if app.deleteTarget != nil {
		t.Fatalf("expected delete target cleared")
	}
}

// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for shortlist.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// Every network operation (ingestion, decisions, roster writes) runs inside a
// tea.Cmd so the update loop itself never blocks.

package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/candidatesuite/shortlist/internal/config"
	"github.com/candidatesuite/shortlist/internal/ingest"
	"github.com/candidatesuite/shortlist/internal/logbook"
	"github.com/candidatesuite/shortlist/internal/notify"
	"github.com/candidatesuite/shortlist/internal/schema"
	"github.com/candidatesuite/shortlist/internal/store"
	"github.com/candidatesuite/shortlist/internal/transition"
	"github.com/candidatesuite/shortlist/rules"
)

// appState represents which "screen" we're on
type appState int

const (
	stateSelection     appState = iota // Selection queue tab with candidate cards
	stateRoster                        // Roster tab with saved entries
	stateDetail                        // Full record for one queued candidate
	stateForm                          // Add/edit roster entry form
	stateConfirmDelete                 // Delete confirmation prompt
)

const logTailLines = 8

// QueueLister reads the selection queue.
type QueueLister interface {
	List(ctx context.Context) ([]schema.Candidate, []ingest.Warning, error)
}

// RosterClient is the full roster repository surface the TUI drives.
type RosterClient interface {
	List(ctx context.Context) ([]store.RosterEntry, []ingest.Warning, error)
	Create(ctx context.Context, entry store.RosterEntry) error
	Update(ctx context.Context, key schema.NaturalKey, entry store.RosterEntry) error
	Delete(ctx context.Context, key schema.NaturalKey) error
}

// DecisionRunner drives accept/reject transitions.
type DecisionRunner interface {
	Run(ctx context.Context, req transition.Request) (transition.Result, error)
	IsProcessing(email string) bool
}

// RuleLoader resolves the queue filter rules for a directory.
type RuleLoader func(dir string) ([]rules.RuleFile, error)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithQueue overrides the selection queue source.
func WithQueue(q QueueLister) AppOption {
	return func(a *App) {
		if q != nil {
			a.queue = q
		}
	}
}

// WithRoster overrides the roster repository.
func WithRoster(r RosterClient) AppOption {
	return func(a *App) {
		if r != nil {
			a.roster = r
		}
	}
}

// WithDecider overrides the transition runner.
func WithDecider(d DecisionRunner) AppOption {
	return func(a *App) {
		if d != nil {
			a.decider = d
		}
	}
}

// WithRuleLoader overrides how queue filter rules are discovered.
func WithRuleLoader(loader RuleLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.ruleLoader = loader
		}
	}
}

type queueLoadedMsg struct {
	candidates []schema.Candidate
	warnings   []ingest.Warning
	err        error
}

type rosterLoadedMsg struct {
	entries  []store.RosterEntry
	warnings []ingest.Warning
	err      error
}

type decisionDoneMsg struct {
	name     string
	email    string
	decision notify.Decision
	result   transition.Result
	err      error
}

type rosterWriteDoneMsg struct {
	op   string
	name string
	err  error
}

type rulesLoadedMsg struct {
	files []rules.RuleFile
	err   error
}

// rosterItem implements list.Item for the roster tab.
type rosterItem struct {
	entry store.RosterEntry
}

func (i rosterItem) Title() string { return i.entry.Name }
func (i rosterItem) Description() string {
	parts := []string{i.entry.Email}
	if i.entry.PhoneNumber != "" {
		parts = append(parts, i.entry.PhoneNumber)
	}
	if i.entry.JobRoleAdmin != "" {
		parts = append(parts, i.entry.JobRoleAdmin)
	}
	if i.entry.Datetime != "" {
		parts = append(parts, i.entry.Datetime)
	}
	return strings.Join(parts, " · ")
}
func (i rosterItem) FilterValue() string { return i.entry.Name + " " + i.entry.Email }

// Form field order mirrors the roster schema.
const (
	fieldName = iota
	fieldEmail
	fieldPhone
	fieldJobRole
	fieldCount
)

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	config  *config.Config
	logbook *logbook.Logbook

	queue      QueueLister
	roster     RosterClient
	decider    DecisionRunner
	ruleLoader RuleLoader

	// Selection queue tab
	candidates []schema.Candidate // after rule filtering
	unfiltered int                // count before rule filtering
	selection  int
	ruleFiles  []rules.RuleFile

	// Roster tab
	rosterEntries []store.RosterEntry
	rosterList    list.Model

	// Add/edit form
	formInputs []textinput.Model
	formFocus  int
	editingKey *schema.NaturalKey // nil while creating

	// Delete confirmation
	deleteTarget *schema.NaturalKey
	deleteName   string

	spin          spinner.Model
	loadingQueue  bool
	loadingRoster bool
	decisionsBusy int
	statusMsg     string
	width         int
	height        int
}

// NewApp creates a new App instance rooted at workDir. InitShortlistDir must
// have run first so the workspace directories exist.
func NewApp(workDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(workDir)
	if err != nil {
		return nil, err
	}

	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "activity.log"))
	if err == nil {
		lb.StartSession("shortlist")
	}

	client := &http.Client{Timeout: cfg.RequestTimeout()}
	rosterStore := store.NewRoster(cfg.RosterCSVURL(), cfg.RosterAPIURL(), store.WithRosterClient(client))
	webhook := notify.NewWebhook(cfg.WebhookURL(), notify.WithClient(client))

	rosterList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	rosterList.Title = "Candidate Details"
	rosterList.SetShowStatusBar(false)
	rosterList.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	app := &App{
		state:      stateSelection,
		config:     cfg,
		logbook:    lb,
		queue:      store.NewSelectionQueue(cfg.SelectionCSVURL(), ingest.WithClient(client)),
		roster:     rosterStore,
		decider:    transition.New(webhook, rosterStore, transition.WithLogger(lb)),
		ruleLoader: rules.LoadAll,
		rosterList: rosterList,
		spin:       sp,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app, nil
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	a.loadingQueue = true
	a.loadingRoster = true
	return tea.Batch(a.loadRules(), a.loadQueue(), a.loadRoster(), a.spin.Tick)
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.rosterList.SetSize(maxInt(0, msg.Width-6), maxInt(0, msg.Height-14))
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case rulesLoadedMsg:
		return a.handleRulesLoaded(msg)

	case queueLoadedMsg:
		return a.handleQueueLoaded(msg)

	case rosterLoadedMsg:
		return a.handleRosterLoaded(msg)

	case decisionDoneMsg:
		return a.handleDecisionDone(msg)

	case rosterWriteDoneMsg:
		return a.handleRosterWriteDone(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.routeToComponents(msg)
}

func (a *App) busy() bool {
	return a.loadingQueue || a.loadingRoster || a.decisionsBusy > 0
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.state {
	case stateForm:
		return a.handleFormKey(msg)
	case stateConfirmDelete:
		return a.handleConfirmDeleteKey(key)
	case stateDetail:
		switch key {
		case "esc", "q":
			a.state = stateSelection
			return a, nil
		case "a":
			return a.decideSelected(notify.DecisionAccept)
		case "x":
			return a.decideSelected(notify.DecisionReject)
		}
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "tab":
		if a.state == stateSelection {
			a.state = stateRoster
		} else {
			a.state = stateSelection
		}
		return a, nil
	case "r":
		a.statusMsg = "Refreshing..."
		a.loadingQueue = true
		a.loadingRoster = true
		return a, tea.Batch(a.loadRules(), a.loadQueue(), a.loadRoster(), a.spin.Tick)
	}

	switch a.state {
	case stateSelection:
		switch key {
		case "up", "k":
			if a.selection > 0 {
				a.selection--
			}
			return a, nil
		case "down", "j":
			if a.selection < len(a.candidates)-1 {
				a.selection++
			}
			return a, nil
		case "enter":
			if len(a.candidates) > 0 {
				a.state = stateDetail
			}
			return a, nil
		case "a":
			return a.decideSelected(notify.DecisionAccept)
		case "x":
			return a.decideSelected(notify.DecisionReject)
		}
	case stateRoster:
		switch key {
		case "n":
			a.beginForm(nil)
			return a, nil
		case "e":
			if item, ok := a.rosterList.SelectedItem().(rosterItem); ok {
				a.beginForm(&item.entry)
			}
			return a, nil
		case "d":
			if item, ok := a.rosterList.SelectedItem().(rosterItem); ok {
				entryKey := item.entry.Key()
				a.deleteTarget = &entryKey
				a.deleteName = item.entry.Name
				a.state = stateConfirmDelete
			}
			return a, nil
		}
	}

	return a.routeToComponents(msg)
}

func (a *App) routeToComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch a.state {
	case stateRoster:
		var cmd tea.Cmd
		a.rosterList, cmd = a.rosterList.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	case stateForm:
		for i := range a.formInputs {
			var cmd tea.Cmd
			a.formInputs[i], cmd = a.formInputs[i].Update(msg)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}
	return a, tea.Batch(cmds...)
}

func (a *App) handleRulesLoaded(msg rulesLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logError("Rules load failed: %v", msg.err)
		a.statusMsg = fmt.Sprintf("Rules unavailable: %v", msg.err)
		a.ruleFiles = nil
		return a, nil
	}
	a.ruleFiles = msg.files
	if len(msg.files) > 0 {
		a.logInfo("Loaded %d queue filter rule(s)", len(msg.files))
	}
	return a, nil
}

func (a *App) handleQueueLoaded(msg queueLoadedMsg) (tea.Model, tea.Cmd) {
	a.loadingQueue = false
	if msg.err != nil {
		a.logError("Selection queue ingest failed: %v", msg.err)
		a.statusMsg = fmt.Sprintf("Queue load failed: %v", msg.err)
		return a, nil
	}
	for _, w := range msg.warnings {
		a.logWarn("Selection row %d: %s", w.Row, w.Message)
	}
	a.unfiltered = len(msg.candidates)
	a.candidates = rules.Apply(a.ruleFiles, msg.candidates)
	if a.selection >= len(a.candidates) {
		a.selection = maxInt(0, len(a.candidates)-1)
	}
	a.statusMsg = fmt.Sprintf("Queue refreshed · %d candidate(s)", len(a.candidates))
	a.logInfo("Selection queue refreshed: %d candidate(s)", len(a.candidates))
	return a, nil
}

func (a *App) handleRosterLoaded(msg rosterLoadedMsg) (tea.Model, tea.Cmd) {
	a.loadingRoster = false
	if msg.err != nil {
		a.logError("Roster ingest failed: %v", msg.err)
		a.statusMsg = fmt.Sprintf("Roster load failed: %v", msg.err)
		return a, nil
	}
	for _, w := range msg.warnings {
		a.logWarn("Roster row %d: %s", w.Row, w.Message)
	}
	a.rosterEntries = msg.entries
	items := make([]list.Item, len(msg.entries))
	for i, entry := range msg.entries {
		items[i] = rosterItem{entry: entry}
	}
	a.rosterList.SetItems(items)
	return a, nil
}

func (a *App) handleDecisionDone(msg decisionDoneMsg) (tea.Model, tea.Cmd) {
	a.decisionsBusy--
	if a.decisionsBusy < 0 {
		a.decisionsBusy = 0
	}
	if msg.err != nil {
		a.statusMsg = fmt.Sprintf("%s failed for %s: %v", msg.decision, msg.name, msg.err)
		var step *transition.StepError
		if errors.As(msg.err, &step) {
			a.statusMsg = fmt.Sprintf("%s failed for %s at %s: %v", msg.decision, msg.name, step.Step, step.Err)
		}
		return a, nil
	}

	if a.state == stateDetail {
		a.state = stateSelection
	}
	var cmds []tea.Cmd
	if msg.result.Refresh.Queue {
		a.loadingQueue = true
		cmds = append(cmds, a.loadQueue())
	}
	if msg.result.Refresh.Roster {
		a.loadingRoster = true
		cmds = append(cmds, a.loadRoster())
	}
	switch msg.result.State {
	case transition.StateAccepted:
		a.statusMsg = fmt.Sprintf("Accepted %s · added to roster", msg.name)
	case transition.StateRejected:
		a.statusMsg = fmt.Sprintf("Rejected %s", msg.name)
	default:
		a.statusMsg = fmt.Sprintf("%s finished for %s", msg.decision, msg.name)
	}
	if len(cmds) > 0 {
		cmds = append(cmds, a.spin.Tick)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) handleRosterWriteDone(msg rosterWriteDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logError("Roster %s failed for %s: %v", msg.op, msg.name, msg.err)
		a.statusMsg = fmt.Sprintf("Roster %s failed: %v", msg.op, msg.err)
		return a, nil
	}
	a.logInfo("Roster %s succeeded for %s", msg.op, msg.name)
	a.statusMsg = fmt.Sprintf("Roster %s succeeded for %s", msg.op, msg.name)
	a.loadingRoster = true
	return a, tea.Batch(a.loadRoster(), a.spin.Tick)
}

// decideSelected kicks off the accept/reject saga for the highlighted
// candidate. A candidate already mid-transition is refused here so the
// operator gets immediate feedback instead of a saga error.
func (a *App) decideSelected(decision notify.Decision) (tea.Model, tea.Cmd) {
	if len(a.candidates) == 0 || a.selection >= len(a.candidates) {
		return a, nil
	}
	c := a.candidates[a.selection]
	if a.decider.IsProcessing(c.Email) {
		a.statusMsg = fmt.Sprintf("%s is already being processed", c.DisplayName())
		return a, nil
	}
	a.decisionsBusy++
	a.statusMsg = fmt.Sprintf("%s in flight for %s...", decision, c.DisplayName())
	a.logInfo("%s requested for %s <%s>", decision, c.DisplayName(), c.Email)
	return a, tea.Batch(a.runDecision(c, decision), a.spin.Tick)
}

func (a *App) runDecision(c schema.Candidate, decision notify.Decision) tea.Cmd {
	return func() tea.Msg {
		result, err := a.decider.Run(context.Background(), transition.Request{
			Candidate: c,
			Decision:  decision,
		})
		return decisionDoneMsg{
			name:     c.DisplayName(),
			email:    c.Email,
			decision: decision,
			result:   result,
			err:      err,
		}
	}
}

func (a *App) loadQueue() tea.Cmd {
	return func() tea.Msg {
		candidates, warnings, err := a.queue.List(context.Background())
		return queueLoadedMsg{candidates: candidates, warnings: warnings, err: err}
	}
}

func (a *App) loadRoster() tea.Cmd {
	return func() tea.Msg {
		entries, warnings, err := a.roster.List(context.Background())
		return rosterLoadedMsg{entries: entries, warnings: warnings, err: err}
	}
}

func (a *App) loadRules() tea.Cmd {
	dir := a.config.RulesDir()
	loader := a.ruleLoader
	return func() tea.Msg {
		files, err := loader(dir)
		return rulesLoadedMsg{files: files, err: err}
	}
}

// beginForm opens the add/edit form. A nil entry means create.
func (a *App) beginForm(entry *store.RosterEntry) {
	inputs := make([]textinput.Model, fieldCount)
	placeholders := [fieldCount]string{"Name", "Email", "Phone Number", "Job Role"}
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 120
		ti.Width = 40
		inputs[i] = ti
	}
	a.editingKey = nil
	if entry != nil {
		inputs[fieldName].SetValue(entry.Name)
		inputs[fieldEmail].SetValue(entry.Email)
		inputs[fieldPhone].SetValue(entry.PhoneNumber)
		inputs[fieldJobRole].SetValue(entry.JobRoleAdmin)
		entryKey := entry.Key()
		a.editingKey = &entryKey
	}
	inputs[fieldName].Focus()
	a.formInputs = inputs
	a.formFocus = fieldName
	a.state = stateForm
}

func (a *App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.state = stateRoster
		a.formInputs = nil
		a.statusMsg = "Edit cancelled"
		return a, nil
	case "tab", "down":
		a.focusFormField((a.formFocus + 1) % fieldCount)
		return a, nil
	case "shift+tab", "up":
		a.focusFormField((a.formFocus + fieldCount - 1) % fieldCount)
		return a, nil
	case "enter":
		if a.formFocus < fieldCount-1 {
			a.focusFormField(a.formFocus + 1)
			return a, nil
		}
		return a.submitForm()
	}
	return a.routeToComponents(msg)
}

func (a *App) focusFormField(idx int) {
	for i := range a.formInputs {
		if i == idx {
			a.formInputs[i].Focus()
		} else {
			a.formInputs[i].Blur()
		}
	}
	a.formFocus = idx
}

func (a *App) submitForm() (tea.Model, tea.Cmd) {
	entry := store.RosterEntry{
		Name:         strings.TrimSpace(a.formInputs[fieldName].Value()),
		Email:        strings.TrimSpace(a.formInputs[fieldEmail].Value()),
		PhoneNumber:  strings.TrimSpace(a.formInputs[fieldPhone].Value()),
		JobRoleAdmin: strings.TrimSpace(a.formInputs[fieldJobRole].Value()),
		Datetime:     store.FormatDateTime(a.rosterNow()),
	}
	if err := store.ValidateEntry(entry); err != nil {
		a.statusMsg = fmt.Sprintf("Invalid entry: %v", err)
		return a, nil
	}

	editing := a.editingKey
	if editing == nil && store.HasEntry(a.rosterEntries, entry.Key()) {
		a.statusMsg = fmt.Sprintf("%s is already on the roster", entry.Name)
		return a, nil
	}

	a.state = stateRoster
	a.formInputs = nil
	name := entry.Name
	roster := a.roster
	if editing != nil {
		entryKey := *editing
		a.statusMsg = fmt.Sprintf("Updating %s...", name)
		return a, func() tea.Msg {
			err := roster.Update(context.Background(), entryKey, entry)
			return rosterWriteDoneMsg{op: "update", name: name, err: err}
		}
	}
	a.statusMsg = fmt.Sprintf("Adding %s...", name)
	return a, func() tea.Msg {
		err := roster.Create(context.Background(), entry)
		return rosterWriteDoneMsg{op: "create", name: name, err: err}
	}
}

func (a *App) handleConfirmDeleteKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "enter":
		if a.deleteTarget == nil {
			a.state = stateRoster
			return a, nil
		}
		target := *a.deleteTarget
		name := a.deleteName
		a.deleteTarget = nil
		a.deleteName = ""
		a.state = stateRoster
		a.statusMsg = fmt.Sprintf("Removing %s...", name)
		roster := a.roster
		return a, func() tea.Msg {
			err := roster.Delete(context.Background(), target)
			return rosterWriteDoneMsg{op: "delete", name: name, err: err}
		}
	case "n", "esc":
		a.deleteTarget = nil
		a.deleteName = ""
		a.state = stateRoster
		a.statusMsg = "Delete cancelled"
		return a, nil
	}
	return a, nil
}

// rosterNow prefers the repository clock when the concrete store is wired, so
// datetimes from manual adds match the saga's formatting source.
func (a *App) rosterNow() time.Time {
	if concrete, ok := a.roster.(*store.Roster); ok {
		return concrete.Now()
	}
	return time.Now()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

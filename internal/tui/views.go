package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder(), true)
	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#888888")).
				Padding(0, 2)
	cardTitleStyle = lipgloss.NewStyle().Bold(true)
	cardMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).MarginTop(1)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	badgeGood      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	badgeMid       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	badgeLow       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	badgeUnknown   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	processingTag  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Render("⋯ processing")
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	contentWidth := maxInt(40, width-4)

	var content string
	switch a.state {
	case stateSelection:
		content = a.renderSelection(contentWidth)
	case stateRoster:
		content = a.renderRoster()
	case stateDetail:
		content = a.renderDetail(contentWidth)
	case stateForm:
		content = a.renderForm()
	case stateConfirmDelete:
		content = a.renderConfirmDelete()
	}

	sections := []string{
		headerStyle.Render("⬡ SHORTLIST"),
		a.renderTabs(),
		content,
	}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, footerStyle.Render(a.renderStatusLine()))
	return strings.Join(sections, "\n")
}

func (a *App) renderTabs() string {
	selectionLabel := fmt.Sprintf("Candidate Selection (%d)", len(a.candidates))
	rosterLabel := fmt.Sprintf("Candidate Details (%d)", len(a.rosterEntries))
	if a.state == stateRoster || a.state == stateForm || a.state == stateConfirmDelete {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			tabInactiveStyle.Render(selectionLabel),
			tabActiveStyle.Render(rosterLabel),
		)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		tabActiveStyle.Render(selectionLabel),
		tabInactiveStyle.Render(rosterLabel),
	)
}

func (a *App) renderStatusLine() string {
	status := a.statusMsg
	if a.busy() {
		if status == "" {
			status = "Working..."
		}
		status = a.spin.View() + " " + status
	}
	return status
}

func (a *App) renderSelection(width int) string {
	if a.loadingQueue && len(a.candidates) == 0 {
		return cardMetaStyle.Render("Loading selection queue...")
	}
	if len(a.candidates) == 0 {
		note := "No candidates awaiting a decision."
		if a.unfiltered > 0 {
			note = fmt.Sprintf("All %d candidate(s) filtered out by queue rules.", a.unfiltered)
		}
		return cardMetaStyle.Render(note)
	}
	var rows []string
	if hidden := a.unfiltered - len(a.candidates); hidden > 0 {
		rows = append(rows, cardMetaStyle.Render(fmt.Sprintf("%d candidate(s) hidden by queue rules", hidden)))
	}
	for i := range a.candidates {
		rows = append(rows, a.renderCandidateCard(i, width))
	}
	rows = append(rows, hintStyle.Render("Enter → details    a → accept    x → reject    r → refresh    Tab → roster"))
	return strings.Join(rows, "\n")
}

func (a *App) renderCandidateCard(idx, width int) string {
	c := a.candidates[idx]
	selected := idx == a.selection

	title := cardTitleStyle.Render(c.DisplayName())
	badge := scoreBadge(c.OverallScore)
	line1 := title + "  " + badge
	if a.decider.IsProcessing(c.Email) {
		line1 += "  " + processingTag
	}

	var metaParts []string
	if c.Designation != "" {
		metaParts = append(metaParts, c.Designation)
	}
	if c.Organization != "" {
		metaParts = append(metaParts, c.Organization)
	}
	if c.ExperienceYears != "" {
		metaParts = append(metaParts, c.ExperienceYears+" yr relevant")
	}
	line2 := cardMetaStyle.Render(strings.Join(metaParts, " · "))

	skills, more := c.SkillSummary(4)
	line3 := ""
	if len(skills) > 0 {
		label := strings.Join(skills, ", ")
		if more > 0 {
			label += fmt.Sprintf(" +%d more", more)
		}
		line3 = cardMetaStyle.Render("Skills: " + label)
	}

	lines := []string{line1}
	if strings.TrimSpace(line2) != "" {
		lines = append(lines, line2)
	}
	if line3 != "" {
		lines = append(lines, line3)
	}

	style := lipgloss.NewStyle().Width(maxInt(30, width)).Padding(0, 1)
	if selected {
		style = style.Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5B8DEF"))
	} else {
		style = style.Border(lipgloss.HiddenBorder())
	}
	return style.Render(strings.Join(lines, "\n"))
}

// scoreBadge colors the overall score. Scores arrive as display strings; one
// that does not parse renders dimmed instead of colored.
func scoreBadge(score string) string {
	trimmed := strings.TrimSpace(score)
	if trimmed == "" {
		return badgeUnknown.Render("–")
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return badgeUnknown.Render(trimmed)
	}
	label := fmt.Sprintf("%s/10", trimmed)
	switch {
	case value >= 7:
		return badgeGood.Render(label)
	case value >= 4:
		return badgeMid.Render(label)
	default:
		return badgeLow.Render(label)
	}
}

func (a *App) renderDetail(width int) string {
	if len(a.candidates) == 0 || a.selection >= len(a.candidates) {
		return cardMetaStyle.Render("No candidate selected.")
	}
	c := a.candidates[a.selection]
	type row struct{ label, value string }
	rows := []row{
		{"Email", c.Email},
		{"Mobile", c.Mobile},
		{"Designation", c.Designation},
		{"Organization", c.Organization},
		{"Education", c.Education},
		{"Experience", c.ExperienceYears + " yr relevant / " + c.TotalExperienceYears + " yr total"},
		{"Experience Type", c.ExperienceType},
		{"Job Role", c.JobRoleCandidate},
		{"Technical", c.TechnicalScore},
		{"Experience Score", c.ExperienceScore},
		{"Achievements", c.AchievementsScore},
		{"Education Score", c.EducationScore},
		{"Overall", c.OverallScore},
		{"Skills", c.TechnicalSkills},
		{"Summary", c.Summary},
		{"Quick Read", c.QuickRead},
		{"Projects", c.ProjectsAndAchievements},
	}
	var lines []string
	lines = append(lines, cardTitleStyle.Render(c.DisplayName())+"  "+scoreBadge(c.OverallScore))
	for _, r := range rows {
		if strings.TrimSpace(r.value) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-17s %s", r.label+":", r.value))
	}
	body := lipgloss.NewStyle().Width(maxInt(40, width)).Render(strings.Join(lines, "\n"))
	hint := hintStyle.Render("a → accept    x → reject    Esc → back")
	return lipgloss.JoinVertical(lipgloss.Left, body, hint)
}

func (a *App) renderRoster() string {
	view := a.rosterList.View()
	if strings.TrimSpace(view) == "" {
		view = cardMetaStyle.Render("Roster is empty.")
	}
	hint := hintStyle.Render("n → add    e → edit    d → delete    r → refresh    Tab → selection")
	return lipgloss.JoinVertical(lipgloss.Left, view, hint)
}

func (a *App) renderForm() string {
	title := "Add roster entry"
	if a.editingKey != nil {
		title = "Edit roster entry"
	}
	lines := []string{cardTitleStyle.Render(title)}
	for i := range a.formInputs {
		lines = append(lines, a.formInputs[i].View())
	}
	lines = append(lines, hintStyle.Render("Enter → next/save    Tab → next field    Esc → cancel"))
	return strings.Join(lines, "\n")
}

func (a *App) renderConfirmDelete() string {
	prompt := fmt.Sprintf("Remove %s from the roster? (y/n)", a.deleteName)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#FF6B6B")).
		Padding(0, 1).
		Render(prompt)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines := a.logbook.Tail(logTailLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

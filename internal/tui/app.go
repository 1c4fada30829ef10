package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"stepwise/internal/checklist"
	"stepwise/internal/loader"
	"stepwise/internal/model"
	"stepwise/internal/store"
)

type loadedMsg struct{ groups []model.Group }

type loadFailedMsg struct{ err error }

type appModel struct {
	source string
	store  store.Store
	ui     store.UIState

	groups []model.Group
	rows   []row
	cursor int
	offset int

	width  int
	height int

	loading bool
	loadErr error

	search    textinput.Model
	searching bool

	noteInput   textinput.Model
	editingNote bool
}

// Run starts the interactive checklist against the given dataset source and
// workspace store.
func Run(source string, st store.Store) error {
	ui := st.LoadUIState(context.Background())
	applyColorProfilePreference()
	applyThemePreference(ui.Theme)

	p := tea.NewProgram(newAppModel(source, st, ui), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newAppModel(source string, st store.Store, ui store.UIState) appModel {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "search steps"
	search.SetValue(ui.Search)

	note := textinput.New()
	note.Prompt = "note: "
	note.Placeholder = "notes for this step"

	return appModel{
		source:    source,
		store:     st,
		ui:        ui,
		loading:   true,
		search:    search,
		noteInput: note,
	}
}

func (m appModel) Init() tea.Cmd { return m.loadCmd() }

// loadCmd runs the whole pipeline off the UI loop: fetch+validate the base
// dataset (with the loader's retry budget), overlay the saved snapshot,
// derive totals.
func (m appModel) loadCmd() tea.Cmd {
	source, st := m.source, m.store
	return func() tea.Msg {
		ctx := context.Background()
		base, err := loader.New().Load(ctx, source)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		merged := checklist.Merge(base, st.LoadSnapshot(ctx))
		return loadedMsg{groups: checklist.AddComputedValues(merged)}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		(&m).ensureCursorVisible()
		return m, nil

	case loadedMsg:
		m.loading = false
		m.loadErr = nil
		m.groups = msg.groups
		(&m).refreshRows()
		return m, nil

	case loadFailedMsg:
		m.loading = false
		m.loadErr = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.persistUI()
		return m, tea.Quit
	}

	// The load-error page is blocking: only retry or quit.
	if m.loadErr != nil {
		switch msg.String() {
		case "r":
			m.loading = true
			m.loadErr = nil
			return m, m.loadCmd()
		case "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	if m.loading {
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.searching {
		return m.updateSearch(msg)
	}
	if m.editingNote {
		return m.updateNote(msg)
	}

	switch msg.String() {
	case "q":
		m.persistUI()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		(&m).ensureCursorVisible()
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		(&m).ensureCursorVisible()
	case "g":
		m.cursor = 0
		m.offset = 0
	case "G":
		if len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
		}
		(&m).ensureCursorVisible()

	case "enter", " ":
		return m.toggleAtCursor()

	case "o", "tab":
		if r, ok := m.currentRow(); ok && r.kind != rowGroup {
			n := m.groups[r.gi].Steps[r.si].Number
			m.ui.StepCollapsed[n] = !stepCollapsed(m.ui, n)
			m.persistUI()
			(&m).refreshRows()
		}

	case "left", "h":
		if r, ok := m.currentRow(); ok {
			title := m.groups[r.gi].Title
			m.ui.GroupCollapsed[title] = true
			m.persistUI()
			(&m).refreshRows()
			(&m).moveCursorToGroup(r.gi)
		}
	case "right", "l":
		if r, ok := m.currentRow(); ok && r.kind == rowGroup {
			m.ui.GroupCollapsed[m.groups[r.gi].Title] = false
			m.persistUI()
			(&m).refreshRows()
		}

	case "f":
		switch m.ui.Filter {
		case model.FilterAll:
			m.ui.Filter = model.FilterTodo
		case model.FilterTodo:
			m.ui.Filter = model.FilterCompleted
		default:
			m.ui.Filter = model.FilterAll
		}
		m.persistUI()
		(&m).refreshRows()

	case "/":
		m.searching = true
		m.search.SetValue(m.ui.Search)
		return m, m.search.Focus()

	case "n":
		if st, ok := m.selectedStep(); ok {
			m.editingNote = true
			m.noteInput.SetValue(st.Notes)
			return m, m.noteInput.Focus()
		}

	case "t":
		if m.ui.Theme == model.ThemeDark {
			m.ui.Theme = model.ThemeLight
		} else {
			m.ui.Theme = model.ThemeDark
		}
		applyThemePreference(m.ui.Theme)
		m.persistUI()

	case "b":
		m.ui.FooterCollapsed = !m.ui.FooterCollapsed
		m.persistUI()

	case "r":
		m.loading = true
		return m, m.loadCmd()
	}

	return m, nil
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.ui.Search = ""
		m.search.SetValue("")
		m.persistUI()
		(&m).refreshRows()
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		m.persistUI()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	// Live narrowing while typing; the term is only persisted on commit.
	m.ui.Search = m.search.Value()
	(&m).refreshRows()
	return m, cmd
}

func (m appModel) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editingNote = false
		m.noteInput.Blur()
		return m, nil
	case "enter":
		m.editingNote = false
		m.noteInput.Blur()
		if st, ok := m.selectedStep(); ok {
			st.Notes = m.noteInput.Value()
			m.store.SaveSnapshot(context.Background(), m.groups)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.noteInput, cmd = m.noteInput.Update(msg)
	return m, cmd
}

// toggleAtCursor is the single mutation point for enter/space: group rows
// collapse, everything else flips a completion flag and persists.
func (m appModel) toggleAtCursor() (tea.Model, tea.Cmd) {
	r, ok := m.currentRow()
	if !ok {
		return m, nil
	}
	switch r.kind {
	case rowGroup:
		title := m.groups[r.gi].Title
		m.ui.GroupCollapsed[title] = !groupCollapsed(m.ui, title)
		m.persistUI()
		(&m).refreshRows()
		return m, nil

	case rowStep:
		st := &m.groups[r.gi].Steps[r.si]
		st.Completed = !st.Completed

	case rowItem:
		st := &m.groups[r.gi].Steps[r.si]
		st.RequiredItemsCompleted[r.idx] = !st.RequiredItemsCompleted[r.idx]

	case rowSub:
		ss := &m.groups[r.gi].Steps[r.si].SubSteps[r.idx]
		ss.Completed = !ss.Completed
	}

	m.store.SaveSnapshot(context.Background(), m.groups)
	// Completion can move steps out of the active filter.
	(&m).refreshRows()
	return m, nil
}

func (m appModel) currentRow() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// selectedStep resolves the step under the cursor (item and sub-step rows
// resolve to their parent step).
func (m appModel) selectedStep() (*model.Step, bool) {
	r, ok := m.currentRow()
	if !ok || r.kind == rowGroup {
		return nil, false
	}
	return &m.groups[r.gi].Steps[r.si], true
}

func (m *appModel) refreshRows() {
	m.rows = visibleRows(m.groups, m.ui)
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()
}

func (m *appModel) moveCursorToGroup(gi int) {
	for i, r := range m.rows {
		if r.kind == rowGroup && r.gi == gi {
			m.cursor = i
			m.ensureCursorVisible()
			return
		}
	}
}

func (m *appModel) bodyHeight() int {
	h := m.height - chromeLines(m.ui)
	if h < 4 {
		h = 4
	}
	return h
}

func (m *appModel) ensureCursorVisible() {
	h := m.bodyHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m appModel) persistUI() {
	m.store.SaveUIState(context.Background(), m.ui)
}

// chromeLines is the vertical space taken by header + footer + help.
func chromeLines(ui store.UIState) int {
	if ui.FooterCollapsed {
		return 5
	}
	return 7
}

func (m appModel) View() string {
	if m.loadErr != nil {
		return m.viewLoadError()
	}
	if m.loading {
		return m.viewLoading()
	}

	header := m.viewHeader()
	body := m.viewBody()
	footer := m.viewFooter()
	help := m.viewHelp()

	return strings.Join([]string{header, body, footer, help}, "\n")
}

func (m appModel) viewLoading() string {
	return "\n  " + styleMuted().Render(fmt.Sprintf("Loading checklist from %s ...", m.source))
}

// viewLoadError is the blocking full-page error state: retries were already
// exhausted by the loader, so the only affordances are a manual retry and
// quitting.
func (m appModel) viewLoadError() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorErrorFg).Render("Could not load the checklist")
	body := lipgloss.NewStyle().Foreground(colorSurfaceFg).Render(m.loadErr.Error())
	hint := styleMuted().Render("r: retry   q: quit")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2).
		Render(strings.Join([]string{title, "", body, "", hint}, "\n"))
	return "\n" + box
}

func (m appModel) viewHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render("Stepwise")
	meta := lipgloss.NewStyle().Foreground(colorChromeMutedFg).
		Render(fmt.Sprintf("%s  filter=%s", m.source, m.ui.Filter))

	search := ""
	if m.searching {
		search = "  " + m.search.View()
	} else if m.ui.Search != "" {
		search = "  " + styleMuted().Render("/"+m.ui.Search)
	}
	return title + "  " + meta + search + "\n"
}

func (m appModel) viewBody() string {
	h := m.bodyHeight()
	leftWidth := m.width / 2
	if leftWidth < 40 {
		leftWidth = 40
	}
	rightWidth := m.width - leftWidth - 2
	if rightWidth < 20 {
		rightWidth = 20
	}

	left := m.viewRows(leftWidth, h)
	right := m.viewDetail(rightWidth, h)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

func (m appModel) viewRows(width, height int) string {
	if len(m.rows) == 0 {
		return lipgloss.NewStyle().Width(width).Height(height).
			Render(styleMuted().Render("No steps match the current filter."))
	}

	end := m.offset + height
	if end > len(m.rows) {
		end = len(m.rows)
	}

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		line := m.renderRow(m.rows[i], width)
		if i == m.cursor {
			line = lipgloss.NewStyle().
				Background(colorSelectedBg).
				Foreground(colorSelectedFg).
				Width(width).
				Render(line)
		}
		b.WriteString(line)
		if i != end-1 {
			b.WriteString("\n")
		}
	}
	return lipgloss.NewStyle().Width(width).Height(height).Render(b.String())
}

func (m appModel) renderRow(r row, width int) string {
	switch r.kind {
	case rowGroup:
		g := m.groups[r.gi]
		arrow := "▾"
		if groupCollapsed(m.ui, g.Title) {
			arrow = "▸"
		}
		done, total := checklist.CountSteps([]model.Group{g})
		label := fmt.Sprintf("%s %s (%d/%d)", arrow, g.Title, done, total)
		return lipgloss.NewStyle().Bold(true).Render(truncate(label, width))

	case rowStep:
		st := m.groups[r.gi].Steps[r.si]
		mark := checkbox(st.Completed)
		line := fmt.Sprintf("  %s %d. %s", mark, st.Number, st.Title)
		if st.TotalStepTime > 0 {
			line += styleMuted().Render(fmt.Sprintf("  Σ %s", fmtMinutes(st.CumulativeTime)))
		}
		if st.Completed {
			return lipgloss.NewStyle().Foreground(colorDoneFg).Render(truncate(line, width))
		}
		return truncate(line, width)

	case rowItem:
		st := m.groups[r.gi].Steps[r.si]
		done := r.idx < len(st.RequiredItemsCompleted) && st.RequiredItemsCompleted[r.idx]
		return truncate(fmt.Sprintf("      %s %s", checkbox(done), st.Items[r.idx]), width)

	default: // rowSub
		ss := m.groups[r.gi].Steps[r.si].SubSteps[r.idx]
		line := fmt.Sprintf("      %s %s %s", checkbox(ss.Completed), ss.ID, ss.Title)
		if ss.TimeTaken > 0 {
			line += styleMuted().Render(" (" + fmtMinutes(ss.TimeTaken) + ")")
		}
		return truncate(line, width)
	}
}

func (m appModel) viewDetail(width, height int) string {
	st, ok := m.selectedStep()
	if !ok {
		r, rok := m.currentRow()
		if rok {
			g := m.groups[r.gi]
			return lipgloss.NewStyle().Width(width).Height(height).
				Render(lipgloss.NewStyle().Bold(true).Render(g.Title))
		}
		return lipgloss.NewStyle().Width(width).Height(height).Render("")
	}

	var parts []string
	parts = append(parts, lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d. %s", st.Number, st.Title)))

	meta := fmt.Sprintf("time %s", fmtMinutes(st.TotalStepTime))
	if st.CumulativeTime > 0 {
		meta += fmt.Sprintf("  ·  cumulative %s", fmtMinutes(st.CumulativeTime))
	}
	if string(st.Money) != "" {
		meta += fmt.Sprintf("  ·  cost %s", string(st.Money))
	}
	parts = append(parts, styleMuted().Render(meta), "")

	if st.Instruction != "" {
		parts = append(parts, renderMarkdown(st.Instruction, width-2, m.ui.Theme), "")
	}

	if len(st.Items) > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorAccent).Render("Required items"))
		for i, it := range st.Items {
			done := i < len(st.RequiredItemsCompleted) && st.RequiredItemsCompleted[i]
			parts = append(parts, fmt.Sprintf("  %s %s", checkbox(done), it))
		}
		parts = append(parts, "")
	}

	if len(st.SubSteps) > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorAccent).Render("Sub-steps"))
		for _, ss := range st.SubSteps {
			parts = append(parts, fmt.Sprintf("  %s %s %s", checkbox(ss.Completed), ss.ID, ss.Title))
		}
		parts = append(parts, "")
	}

	if m.editingNote {
		parts = append(parts, m.noteInput.View())
	} else if st.Notes != "" {
		parts = append(parts, styleMuted().Render("note: ")+st.Notes)
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(parts, "\n"))
}

func (m appModel) viewFooter() string {
	if m.ui.FooterCollapsed {
		return styleMuted().Render("b: show stats")
	}

	done, total := checklist.CountSteps(m.groups)
	budget := checklist.CalculateBudgetStats(m.groups)

	progress := fmt.Sprintf("%d/%d steps done  ·  total time %s", done, total, fmtMinutes(checklist.TotalTime(m.groups)))
	money := fmt.Sprintf("budget %.2f  spent %.2f  remaining %.2f (%.2f%%)",
		budget.Total, budget.Spent, budget.Remaining, budget.Percentage)
	if budget.IsOverBudget {
		money = lipgloss.NewStyle().Foreground(colorErrorFg).Render(money + "  OVER BUDGET")
	}
	return progress + "\n" + styleMuted().Render(money)
}

func (m appModel) viewHelp() string {
	return styleMuted().Render("enter/space: toggle  o: expand  f: filter  /: search  n: note  t: theme  b: stats  r: reload  q: quit")
}

// truncate cuts a rendered line to the pane width. Rows are styled before
// truncation, so cutting must be ANSI-aware or a narrow pane slices inside an
// escape sequence.
func truncate(s string, width int) string {
	if width <= 1 {
		return s
	}
	return xansi.Truncate(s, width, "…")
}

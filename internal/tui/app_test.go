package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"stepwise/internal/model"
	"stepwise/internal/store"
)

func testModel(t *testing.T) appModel {
	t.Helper()
	st := store.Store{Dir: t.TempDir()}
	m := newAppModel("data.json", st, store.DefaultUIState())
	m.loading = false
	m.groups = groupsFixture()
	m.width, m.height = 100, 30
	(&m).refreshRows()
	return m
}

func press(m appModel, key tea.KeyMsg) appModel {
	next, _ := m.Update(key)
	return next.(appModel)
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }
func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEnterOnGroupTogglesCollapse(t *testing.T) {
	m := testModel(t)

	m = press(m, enter()) // cursor starts on the Prep header
	if !m.ui.GroupCollapsed["Prep"] {
		t.Fatalf("group not collapsed")
	}
	if len(m.rows) != 3 {
		t.Fatalf("collapsed group still shows steps: %d rows", len(m.rows))
	}

	m = press(m, enter())
	if m.ui.GroupCollapsed["Prep"] {
		t.Fatalf("group not re-expanded")
	}
}

func TestEnterOnStepTogglesCompletionAndPersists(t *testing.T) {
	m := testModel(t)

	m = press(m, runes("j")) // onto step 1
	m = press(m, enter())

	if !m.groups[0].Steps[0].Completed {
		t.Fatalf("step 1 not completed")
	}

	// The mutation must already be durable.
	saved := m.store.LoadSnapshot(context.Background())
	if saved == nil || !saved[0].Steps[0].Completed {
		t.Fatalf("snapshot not persisted: %+v", saved)
	}

	m = press(m, enter())
	if m.groups[0].Steps[0].Completed {
		t.Fatalf("step 1 still completed after second toggle")
	}
}

func TestFilterKeyCycles(t *testing.T) {
	m := testModel(t)

	m = press(m, runes("f"))
	if m.ui.Filter != model.FilterTodo {
		t.Fatalf("filter = %v, want todo", m.ui.Filter)
	}
	m = press(m, runes("f"))
	if m.ui.Filter != model.FilterCompleted {
		t.Fatalf("filter = %v, want completed", m.ui.Filter)
	}
	m = press(m, runes("f"))
	if m.ui.Filter != model.FilterAll {
		t.Fatalf("filter = %v, want all", m.ui.Filter)
	}
}

func TestThemeKeyTogglesAndPersists(t *testing.T) {
	m := testModel(t)

	m = press(m, runes("t"))
	if m.ui.Theme != model.ThemeLight {
		t.Fatalf("theme = %v, want light", m.ui.Theme)
	}

	ui := m.store.LoadUIState(context.Background())
	if ui.Theme != model.ThemeLight {
		t.Fatalf("theme not persisted: %v", ui.Theme)
	}
}

func TestSearchNarrowsRows(t *testing.T) {
	m := testModel(t)

	m = press(m, runes("/"))
	if !m.searching {
		t.Fatalf("search mode not entered")
	}
	m = press(m, runes("frame"))
	if len(m.rows) != 2 {
		t.Fatalf("live search did not narrow rows: %d", len(m.rows))
	}
	m = press(m, enter())
	if m.searching {
		t.Fatalf("enter did not commit the search")
	}

	ui := m.store.LoadUIState(context.Background())
	if ui.Search != "frame" {
		t.Fatalf("search term not persisted: %q", ui.Search)
	}

	m = press(m, runes("/"))
	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.ui.Search != "" {
		t.Fatalf("esc did not clear the search")
	}
}

func TestLoadErrorIsBlocking(t *testing.T) {
	m := testModel(t)
	m.loadErr = errFixture{}

	// Navigation is dead on the error page.
	before := m.cursor
	m = press(m, runes("j"))
	if m.cursor != before {
		t.Fatalf("cursor moved while in error state")
	}

	// Retry flips back into loading.
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(appModel)
	if !m.loading || m.loadErr != nil || cmd == nil {
		t.Fatalf("retry did not restart the load")
	}
}

func TestTruncateKeepsEscapeSequencesIntact(t *testing.T) {
	// A step row as renderRow builds it: plain checkbox + title, then a
	// styled time suffix. Cutting inside the escape sequence leaves an
	// unterminated CSI that corrupts the whole line.
	line := "  [ ] 1. Gather tools\x1b[2;38;5;243m  Σ 45m\x1b[0m"

	got := truncate(line, 24)
	if w := lipgloss.Width(got); w > 24 {
		t.Fatalf("truncated width = %d, want <= 24", w)
	}
	if !strings.HasSuffix(xansi.Strip(got), "…") {
		t.Fatalf("ellipsis lost: %q", got)
	}
	// Every escape must still be a complete sequence.
	for rest := got; ; {
		i := strings.Index(rest, "\x1b[")
		if i < 0 {
			break
		}
		rest = rest[i+2:]
		if j := strings.IndexFunc(rest, func(r rune) bool {
			return r >= '@' && r <= '~'
		}); j < 0 {
			t.Fatalf("unterminated escape sequence in %q", got)
		}
	}

	if got := truncate(line, 80); got != line {
		t.Fatalf("wide pane must not alter the line: %q", got)
	}
}

type errFixture struct{}

func (errFixture) Error() string { return "loading checklist data failed after 3 attempts: boom" }

package tui

import (
	"fmt"
	"strings"

	"stepwise/internal/model"
	"stepwise/internal/store"
)

type rowKind int

const (
	rowGroup rowKind = iota
	rowStep
	rowItem
	rowSub
)

// row is one visible line of the outline: a group header, a step, or (when
// the step is expanded) one of its required items or sub-steps.
type row struct {
	kind rowKind
	gi   int // group index
	si   int // step index within group
	idx  int // item or sub-step index within step
}

// groupCollapsed: groups default to expanded; the map records the user's
// explicit collapse flags by group title.
func groupCollapsed(ui store.UIState, title string) bool {
	return ui.GroupCollapsed[title]
}

// stepCollapsed: steps default to collapsed (just the step line); expansion
// shows items and sub-steps.
func stepCollapsed(ui store.UIState, number int) bool {
	if v, ok := ui.StepCollapsed[number]; ok {
		return v
	}
	return true
}

// visibleRows flattens the checklist into the rows the outline shows under
// the current filter, search term, and collapse state. Group headers stay
// visible while any of their steps survive the narrowing; groups with no
// matching steps disappear entirely.
func visibleRows(groups []model.Group, ui store.UIState) []row {
	term := strings.ToLower(strings.TrimSpace(ui.Search))

	var rows []row
	for gi, g := range groups {
		var stepRows []row
		for si, st := range g.Steps {
			if !matchesFilter(st, ui.Filter) || !matchesSearch(st, term) {
				continue
			}
			stepRows = append(stepRows, row{kind: rowStep, gi: gi, si: si})
			if stepCollapsed(ui, st.Number) {
				continue
			}
			for ii := range st.Items {
				stepRows = append(stepRows, row{kind: rowItem, gi: gi, si: si, idx: ii})
			}
			for bi := range st.SubSteps {
				stepRows = append(stepRows, row{kind: rowSub, gi: gi, si: si, idx: bi})
			}
		}
		if len(stepRows) == 0 {
			continue
		}
		rows = append(rows, row{kind: rowGroup, gi: gi})
		if groupCollapsed(ui, g.Title) {
			continue
		}
		rows = append(rows, stepRows...)
	}
	return rows
}

func matchesFilter(st model.Step, f model.Filter) bool {
	switch f {
	case model.FilterCompleted:
		return st.Completed
	case model.FilterTodo:
		return !st.Completed
	default:
		return true
	}
}

// matchesSearch checks step title, instruction, and items, case-insensitive.
func matchesSearch(st model.Step, term string) bool {
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(st.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(st.Instruction), term) {
		return true
	}
	for _, it := range st.Items {
		if strings.Contains(strings.ToLower(it), term) {
			return true
		}
	}
	return false
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// fmtMinutes renders a minute count compactly: "45m", "1h", "1h 30m".
func fmtMinutes(min float64) string {
	whole := int(min)
	if whole < 60 {
		return fmt.Sprintf("%dm", whole)
	}
	h, m := whole/60, whole%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

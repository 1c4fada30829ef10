package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Group is a named checklist section. The title doubles as the persistence
// key for collapse state, so datasets are expected (not enforced) to keep
// group titles unique.
type Group struct {
	Title string `json:"group_title"`
	Steps []Step `json:"steps"`
}

// Step is a single actionable checklist entry. Number is the join key
// between the base dataset and saved progress; it is either carried by the
// dataset or generated sequentially in document order.
type Step struct {
	Number      int       `json:"step_number,omitempty"`
	Title       string    `json:"step_title"`
	Instruction string    `json:"step_instruction"`
	Items       []string  `json:"items"`
	TimeTaken   float64   `json:"time_taken,omitempty"` // minutes
	Money       Money     `json:"money,omitempty"`
	SubSteps    []SubStep `json:"sub_steps,omitempty"`

	// User-mutable state, overlaid from the saved snapshot on load.
	Completed              bool   `json:"completed"`
	Notes                  string `json:"notes"`
	RequiredItemsCompleted []bool `json:"required_items_completed"`

	// Derived on every load; never persisted (see ToPersisted).
	CumulativeTime float64 `json:"cumulative_time,omitempty"`
	TotalStepTime  float64 `json:"total_step_time,omitempty"`
}

// SubStep is an independently completable child task. ID is derived from the
// parent step number and the sub-step's 1-indexed position ("12.3").
type SubStep struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Instruction string  `json:"instruction,omitempty"`
	TimeTaken   float64 `json:"time_taken,omitempty"`
	Completed   bool    `json:"completed"`
}

// Money holds a currency amount as written in the dataset: either a
// formatted string ("$1,200.50") or a bare number. It unmarshals from both
// and keeps the original text so display never reformats user data.
type Money string

func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Money(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*m = Money(n.String())
	return nil
}

// Amount parses the money value leniently: currency symbols and thousands
// separators are stripped, the remainder is read as a decimal number.
// Empty or unparseable input is worth 0; Amount never fails.
func (m Money) Amount() float64 {
	var b strings.Builder
	for _, r := range string(m) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// BudgetStats aggregates money across the whole checklist.
type BudgetStats struct {
	Total        float64 `json:"total"`
	Spent        float64 `json:"spent"`
	Remaining    float64 `json:"remaining"`
	Percentage   float64 `json:"percentage"`
	IsOverBudget bool    `json:"isOverBudget"`
}

// PersistedGroup / PersistedStep / PersistedSubStep are the projection of
// the checklist that is allowed into the persistent store: user-mutable
// fields only. Keeping computed fields (cumulative times, totals) out of the
// snapshot means they can never go stale against an edited base dataset.
type PersistedGroup struct {
	Title string          `json:"group_title"`
	Steps []PersistedStep `json:"steps"`
}

type PersistedStep struct {
	Number                 int                `json:"step_number"`
	Completed              bool               `json:"completed"`
	Notes                  string             `json:"notes"`
	RequiredItemsCompleted []bool             `json:"required_items_completed"`
	SubSteps               []PersistedSubStep `json:"sub_steps,omitempty"`
}

type PersistedSubStep struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
}

// ToPersisted projects the full checklist down to its persistable snapshot.
func ToPersisted(groups []Group) []PersistedGroup {
	out := make([]PersistedGroup, 0, len(groups))
	for _, g := range groups {
		pg := PersistedGroup{Title: g.Title, Steps: make([]PersistedStep, 0, len(g.Steps))}
		for _, st := range g.Steps {
			ps := PersistedStep{
				Number:                 st.Number,
				Completed:              st.Completed,
				Notes:                  st.Notes,
				RequiredItemsCompleted: append([]bool(nil), st.RequiredItemsCompleted...),
			}
			for _, ss := range st.SubSteps {
				ps.SubSteps = append(ps.SubSteps, PersistedSubStep{ID: ss.ID, Completed: ss.Completed})
			}
			pg.Steps = append(pg.Steps, ps)
		}
		out = append(out, pg)
	}
	return out
}

// Filter narrows which steps the UI shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterTodo      Filter = "todo"
)

// ParseFilter maps stored/flag text to a Filter, tolerating the legacy
// "incomplete" spelling. Unknown input falls back to FilterAll.
func ParseFilter(s string) Filter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed":
		return FilterCompleted
	case "todo", "incomplete":
		return FilterTodo
	default:
		return FilterAll
	}
}

// Theme is the persisted appearance preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

package checklist

import (
	"fmt"

	"stepwise/internal/model"
)

// EnsureNumbers guarantees every step has a join key before merging.
//
// If every step already carries an explicit positive step_number, the
// dataset's own numbering is kept. Otherwise numbering is regenerated for
// the whole dataset: 1..N in document order. Sub-step ids are derived as
// "<stepNumber>.<position>" (1-indexed) wherever the dataset left them
// empty.
//
// Generated numbers are purely positional. If the dataset is reordered
// between sessions, old saved progress attaches to whichever step now holds
// that position. That is a documented limitation of positional numbering,
// not something this function tries to correct.
func EnsureNumbers(groups []model.Group) []model.Group {
	explicit := true
	for _, g := range groups {
		for _, st := range g.Steps {
			if st.Number <= 0 {
				explicit = false
			}
		}
	}

	next := 1
	out := make([]model.Group, 0, len(groups))
	for _, g := range groups {
		ng := model.Group{Title: g.Title, Steps: make([]model.Step, 0, len(g.Steps))}
		for _, st := range g.Steps {
			ns := st
			ns.Items = append([]string(nil), st.Items...)
			ns.SubSteps = append([]model.SubStep(nil), st.SubSteps...)
			ns.RequiredItemsCompleted = append([]bool(nil), st.RequiredItemsCompleted...)

			if !explicit {
				ns.Number = next
			}
			next++

			for i := range ns.SubSteps {
				if ns.SubSteps[i].ID == "" {
					ns.SubSteps[i].ID = fmt.Sprintf("%d.%d", ns.Number, i+1)
				}
			}

			ng.Steps = append(ng.Steps, ns)
		}
		out = append(out, ng)
	}
	return out
}

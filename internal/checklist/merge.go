package checklist

import "stepwise/internal/model"

// Merge overlays a saved progress snapshot onto the base dataset.
//
// The output always follows base: its group and step order, its titles and
// instructions, its item lists. Saved records are joined by step number
// (sub-steps by id); saved records for steps that no longer exist in base
// are dropped. Steps without a saved record get defaults: not completed,
// empty notes, all-false item completion. Merge never fails and never
// mutates its arguments.
//
// Duplicate step numbers in saved data are not guarded; the last record
// wins, matching map overwrite order.
func Merge(base []model.Group, saved []model.PersistedGroup) []model.Group {
	stepByNumber := map[int]model.PersistedStep{}
	subByID := map[string]model.PersistedSubStep{}
	for _, g := range saved {
		for _, st := range g.Steps {
			stepByNumber[st.Number] = st
			for _, ss := range st.SubSteps {
				subByID[ss.ID] = ss
			}
		}
	}

	out := make([]model.Group, 0, len(base))
	for _, g := range base {
		ng := model.Group{Title: g.Title, Steps: make([]model.Step, 0, len(g.Steps))}
		for _, st := range g.Steps {
			ns := st
			ns.Items = append([]string(nil), st.Items...)
			ns.SubSteps = append([]model.SubStep(nil), st.SubSteps...)

			ns.Completed = false
			ns.Notes = ""
			ns.RequiredItemsCompleted = make([]bool, len(ns.Items))
			// Derived fields are rebuilt by AddComputedValues; never trust
			// values that leaked into a dataset.
			ns.CumulativeTime = 0
			ns.TotalStepTime = 0

			if sv, ok := stepByNumber[st.Number]; ok {
				ns.Completed = sv.Completed
				ns.Notes = sv.Notes
				if sv.RequiredItemsCompleted != nil {
					ns.RequiredItemsCompleted = resizeBools(sv.RequiredItemsCompleted, len(ns.Items))
				}
			}

			for i := range ns.SubSteps {
				ns.SubSteps[i].Completed = false
				if sv, ok := subByID[ns.SubSteps[i].ID]; ok {
					ns.SubSteps[i].Completed = sv.Completed
				}
			}

			ng.Steps = append(ng.Steps, ns)
		}
		out = append(out, ng)
	}
	return out
}

// resizeBools copies saved item-completion flags into an array sized to the
// current item count. The base dataset may have added or removed items since
// the snapshot was taken; extra saved entries are dropped and missing ones
// default to false.
func resizeBools(saved []bool, n int) []bool {
	out := make([]bool, n)
	copy(out, saved)
	return out
}

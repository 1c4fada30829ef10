package checklist

import "stepwise/internal/model"

// AddComputedValues derives the running time totals in one left-to-right
// pass. The running total spans the whole checklist (it does not reset per
// group), so cumulative_time is monotonically non-decreasing in document
// order. Pure: input order is preserved and the input is not mutated.
func AddComputedValues(groups []model.Group) []model.Group {
	runningTotal := 0.0

	out := make([]model.Group, 0, len(groups))
	for _, g := range groups {
		ng := model.Group{Title: g.Title, Steps: make([]model.Step, 0, len(g.Steps))}
		for _, st := range g.Steps {
			ns := st
			ns.Items = append([]string(nil), st.Items...)
			ns.SubSteps = append([]model.SubStep(nil), st.SubSteps...)
			ns.RequiredItemsCompleted = append([]bool(nil), st.RequiredItemsCompleted...)

			subTime := 0.0
			for _, ss := range ns.SubSteps {
				subTime += ss.TimeTaken
			}
			ns.TotalStepTime = st.TimeTaken + subTime
			runningTotal += ns.TotalStepTime
			ns.CumulativeTime = runningTotal

			ng.Steps = append(ng.Steps, ns)
		}
		out = append(out, ng)
	}
	return out
}

// CountSteps returns how many steps are completed and how many exist.
func CountSteps(groups []model.Group) (done, total int) {
	for _, g := range groups {
		for _, st := range g.Steps {
			total++
			if st.Completed {
				done++
			}
		}
	}
	return done, total
}

// TotalTime is the checklist's full duration: the last step's cumulative
// time, or the sum of all step totals when computed values are absent.
func TotalTime(groups []model.Group) float64 {
	sum := 0.0
	for _, g := range groups {
		for _, st := range g.Steps {
			subTime := 0.0
			for _, ss := range st.SubSteps {
				subTime += ss.TimeTaken
			}
			sum += st.TimeTaken + subTime
		}
	}
	return sum
}

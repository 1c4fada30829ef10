package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"stepwise/internal/checklist"
	"stepwise/internal/model"
)

func newShowCmd(app *App) *cobra.Command {
	var filterStr string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged checklist (base data + saved progress + computed totals)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, _, err := loadChecklist(cmd.Context(), app)
			if err != nil {
				return err
			}
			if f := model.ParseFilter(filterStr); filterStr != "" {
				groups = filterGroups(groups, f)
			}
			return writeOut(cmd, app, groups)
		},
	}

	cmd.Flags().StringVar(&filterStr, "filter", "", "Only include steps matching a filter (all|completed|todo)")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print budget and completion statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, _, err := loadChecklist(cmd.Context(), app)
			if err != nil {
				return err
			}
			done, total := checklist.CountSteps(groups)
			out := struct {
				Budget         model.BudgetStats `json:"budget"`
				StepsCompleted int               `json:"stepsCompleted"`
				StepsTotal     int               `json:"stepsTotal"`
				TotalTime      float64           `json:"totalTimeMinutes"`
			}{
				Budget:         checklist.CalculateBudgetStats(groups),
				StepsCompleted: done,
				StepsTotal:     total,
				TotalTime:      checklist.TotalTime(groups),
			}
			return writeOut(cmd, app, out)
		},
	}
}

// filterGroups keeps only steps matching the filter; groups left with no
// steps are dropped entirely.
func filterGroups(groups []model.Group, f model.Filter) []model.Group {
	if f == model.FilterAll {
		return groups
	}
	out := make([]model.Group, 0, len(groups))
	for _, g := range groups {
		ng := model.Group{Title: g.Title}
		for _, st := range g.Steps {
			if (f == model.FilterCompleted) == st.Completed {
				ng.Steps = append(ng.Steps, st)
			}
		}
		if len(ng.Steps) > 0 {
			out = append(out, ng)
		}
	}
	return out
}

func parseStepNumber(arg string) (int, error) {
	return strconv.Atoi(arg)
}

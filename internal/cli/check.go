package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newCheckCmd builds both `check` and `uncheck`; they differ only in the
// value written.
func newCheckCmd(app *App, value bool) *cobra.Command {
	use, short := "check", "Mark a step (or one of its items/sub-steps) completed"
	if !value {
		use, short = "uncheck", "Mark a step (or one of its items/sub-steps) not completed"
	}

	var itemIndex int
	var subID string

	cmd := &cobra.Command{
		Use:   use + " <step-number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseStepNumber(args[0])
			if err != nil {
				return fmt.Errorf("invalid step number %q", args[0])
			}

			groups, st, err := loadChecklist(cmd.Context(), app)
			if err != nil {
				return err
			}
			gi, si, ok := findStep(groups, number)
			if !ok {
				return fmt.Errorf("no step with number %d", number)
			}
			step := &groups[gi].Steps[si]

			switch {
			case subID != "":
				found := false
				for i := range step.SubSteps {
					if step.SubSteps[i].ID == subID {
						step.SubSteps[i].Completed = value
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("step %d has no sub-step %q", number, subID)
				}
			case itemIndex > 0:
				if itemIndex > len(step.Items) {
					return fmt.Errorf("step %d has %d items, no item %d", number, len(step.Items), itemIndex)
				}
				step.RequiredItemsCompleted[itemIndex-1] = value
			default:
				step.Completed = value
			}

			st.SaveSnapshot(cmd.Context(), groups)
			return writeOut(cmd, app, step)
		},
	}

	cmd.Flags().IntVar(&itemIndex, "item", 0, "Toggle a required item instead (1-indexed)")
	cmd.Flags().StringVar(&subID, "sub", "", "Toggle a sub-step instead (id like 12.1)")
	return cmd
}

func newNoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "note <step-number> [text...]",
		Short: "Set (or clear) the notes on a step",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseStepNumber(args[0])
			if err != nil {
				return fmt.Errorf("invalid step number %q", args[0])
			}

			groups, st, err := loadChecklist(cmd.Context(), app)
			if err != nil {
				return err
			}
			gi, si, ok := findStep(groups, number)
			if !ok {
				return fmt.Errorf("no step with number %d", number)
			}

			groups[gi].Steps[si].Notes = strings.Join(args[1:], " ")
			st.SaveSnapshot(cmd.Context(), groups)
			return writeOut(cmd, app, groups[gi].Steps[si])
		},
	}
}

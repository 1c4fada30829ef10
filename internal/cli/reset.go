package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"stepwise/internal/loader"
	"stepwise/internal/store"
)

func newResetCmd(app *App) *cobra.Command {
	var ui bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear saved progress for the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := resolveWorkspace(app)
			if err != nil {
				return err
			}
			st.ResetProgress(cmd.Context(), ui)
			return writeOut(cmd, app, map[string]any{
				"workspace": app.Workspace,
				"reset":     true,
				"ui":        ui,
			})
		},
	}

	cmd.Flags().BoolVar(&ui, "ui", false, "Also clear persisted UI state (theme, filter, collapse state)")
	return cmd
}

func newValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [source]",
		Short: "Check that a dataset has the expected shape",
		Args:  cobra.MaximumNArgs(1),
		// The failure is already reported (JSON verdict + stderr line);
		// cobra echoing it a second time is just noise.
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := ""
			if len(args) == 1 {
				src = args[0]
			}
			if src == "" {
				_, resolved, err := resolveWorkspace(app)
				if err != nil {
					return err
				}
				src = resolved
			}

			// A single attempt; validate answers a question, it does not
			// wait out a flaky source.
			l := loader.New()
			l.Attempts = 1
			_, err := l.Load(cmd.Context(), src)
			if err != nil {
				var agg *loader.AggregateLoadError
				if errors.As(err, &agg) {
					err = agg.Last
				}
				_ = writeOut(cmd, app, map[string]any{"source": src, "valid": false, "error": err.Error()})
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"source": src, "valid": true})
		},
	}
}

func newWorkspaceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage progress workspaces",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := store.ListWorkspaces()
			if err != nil {
				return err
			}
			cfg, err := store.LoadConfig()
			if err != nil {
				return err
			}
			type entry struct {
				Name    string `json:"name"`
				Current bool   `json:"current"`
				Data    string `json:"data,omitempty"`
			}
			out := make([]entry, 0, len(names))
			for _, n := range names {
				out = append(out, entry{Name: n, Current: n == cfg.CurrentWorkspace, Data: cfg.DataSourceFor(n)})
			}
			return writeOut(cmd, app, out)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "use <name>",
		Short: "Switch the current workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return err
			}
			cfg.CurrentWorkspace = args[0]
			if err := store.SaveConfig(cfg); err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]any{"currentWorkspace": args[0]})
		},
	})

	return cmd
}

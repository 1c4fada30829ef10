package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stepwise/internal/checklist"
	"stepwise/internal/format"
	"stepwise/internal/loader"
	"stepwise/internal/model"
	"stepwise/internal/store"
	"stepwise/internal/tui"
)

type App struct {
	Data       string
	Workspace  string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "stepwise",
		Short:        "Interactive checklist for the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI against ./data.json
  stepwise --data data.json

  # Scriptable commands
  stepwise show --filter todo
  stepwise check 12
  stepwise note 12 "waiting on parts"
  stepwise stats
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Data, "data", envOr("STEPWISE_DATA", ""), "Checklist dataset (file path or http(s) URL; default: remembered source, then data.json)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("STEPWISE_WORKSPACE", ""), "Workspace name (default: 'default'; each workspace keeps its own progress)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("STEPWISE_FORMAT", "json"), "Output format (json)")

	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newCheckCmd(app, true))
	cmd.AddCommand(newCheckCmd(app, false))
	cmd.AddCommand(newNoteCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newValidateCmd(app))
	cmd.AddCommand(newWorkspaceCmd(app))

	return cmd
}

func runTUI(app *App) error {
	st, src, err := resolveWorkspace(app)
	if err != nil {
		return err
	}
	return tui.Run(src, st)
}

// resolveWorkspace resolves the progress store and dataset source.
//
// Workspace: --workspace, then config currentWorkspace, then "default".
// Dataset: --data, then the workspace's pinned source, then the global
// remembered source, then ./data.json. An explicitly passed --data is
// remembered for the next bare invocation.
func resolveWorkspace(app *App) (store.Store, string, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return store.Store{}, "", err
	}

	ws := app.Workspace
	if ws == "" {
		ws = cfg.CurrentWorkspace
	}
	if ws == "" {
		ws = "default"
	}
	app.Workspace = ws

	dir, err := store.WorkspaceDir(ws)
	if err != nil {
		return store.Store{}, "", err
	}

	src := app.Data
	if src == "" {
		src = cfg.DataSourceFor(ws)
	}
	if src == "" {
		src = "data.json"
	}

	if app.Data != "" && app.Data != cfg.DataSourceFor(ws) {
		if cfg.DataSources == nil {
			cfg.DataSources = map[string]string{}
		}
		cfg.DataSources[ws] = app.Data
		if cfg.DataSource == "" {
			cfg.DataSource = app.Data
		}
		// Remembering the source is a convenience; failing to persist it
		// must not fail the command.
		_ = store.SaveConfig(cfg)
	}

	return store.Store{Dir: dir}, src, nil
}

// loadChecklist runs the full pipeline: fetch and validate the base
// dataset, overlay the saved snapshot, derive running totals.
func loadChecklist(ctx context.Context, app *App) ([]model.Group, store.Store, error) {
	st, src, err := resolveWorkspace(app)
	if err != nil {
		return nil, store.Store{}, err
	}
	base, err := loader.New().Load(ctx, src)
	if err != nil {
		return nil, st, err
	}
	merged := checklist.Merge(base, st.LoadSnapshot(ctx))
	return checklist.AddComputedValues(merged), st, nil
}

func findStep(groups []model.Group, number int) (gi, si int, ok bool) {
	for gi := range groups {
		for si := range groups[gi].Steps {
			if groups[gi].Steps[si].Number == number {
				return gi, si, true
			}
		}
	}
	return 0, 0, false
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

package store

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"stepwise/internal/model"
)

func stepFixture() []model.Group {
	return []model.Group{{
		Title: "Prep",
		Steps: []model.Step{{
			Number:                 1,
			Title:                  "Gather tools",
			Instruction:            "Collect everything first.",
			Items:                  []string{"screwdriver"},
			Completed:              true,
			Notes:                  "half done",
			RequiredItemsCompleted: []bool{true},
			SubSteps:               []model.SubStep{{ID: "1.1", Title: "sort", Completed: true}},
			CumulativeTime:         42,
			TotalStepTime:          42,
		}},
	}}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	s.SaveSnapshot(ctx, stepFixture())

	got := s.LoadSnapshot(ctx)
	want := model.ToPersisted(stepFixture())
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot round trip:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestSnapshotStripsComputedFields(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	s.SaveSnapshot(ctx, stepFixture())

	raw, ok, err := s.Get(ctx, KeyProgress)
	if err != nil || !ok {
		t.Fatalf("snapshot not stored: ok=%v err=%v", ok, err)
	}
	if strings.Contains(raw, "cumulative_time") || strings.Contains(raw, "total_step_time") {
		t.Fatalf("computed fields leaked into the persisted snapshot: %s", raw)
	}
}

func TestLoadSnapshotAbsent(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	if got := s.LoadSnapshot(context.Background()); got != nil {
		t.Fatalf("expected nil for empty store, got %+v", got)
	}
}

func TestLoadSnapshotDiscardsMalformed(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	if err := s.Set(ctx, KeyProgress, `{"completed": "definitely"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if got := s.LoadSnapshot(ctx); got != nil {
		t.Fatalf("malformed snapshot not discarded: %+v", got)
	}
	// The offending key is cleared, not left to fail again next session.
	if _, ok, _ := s.Get(ctx, KeyProgress); ok {
		t.Fatalf("malformed snapshot key not cleared")
	}
}

func TestUIStateDefaults(t *testing.T) {
	s := Store{Dir: t.TempDir()}

	ui := s.LoadUIState(context.Background())
	if ui.Theme != model.ThemeDark || ui.Filter != model.FilterAll {
		t.Fatalf("unexpected defaults: %+v", ui)
	}
	if ui.FooterCollapsed || ui.Search != "" {
		t.Fatalf("unexpected defaults: %+v", ui)
	}
	if len(ui.GroupCollapsed) != 0 || len(ui.StepCollapsed) != 0 {
		t.Fatalf("collapse maps must start empty: %+v", ui)
	}
}

func TestUIStateRoundTrip(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	in := UIState{
		Theme:           model.ThemeLight,
		Filter:          model.FilterTodo,
		Search:          "frame",
		GroupCollapsed:  map[string]bool{"Prep": true},
		StepCollapsed:   map[int]bool{3: false},
		FooterCollapsed: true,
	}
	s.SaveUIState(ctx, in)

	got := s.LoadUIState(ctx)
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("UI state round trip:\ngot  %+v\nwant %+v", got, in)
	}
}

func TestUIStateDiscardsMalformedCollapseMap(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	// Non-boolean values in a collapse blob discard the whole blob.
	if err := s.Set(ctx, KeyGroupCollapse, `{"Prep": "yes"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, KeyTheme, "solarized"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ui := s.LoadUIState(ctx)
	if len(ui.GroupCollapsed) != 0 {
		t.Fatalf("malformed collapse map not discarded: %+v", ui.GroupCollapsed)
	}
	if ui.Theme != model.ThemeDark {
		t.Fatalf("malformed theme not discarded: %v", ui.Theme)
	}

	if _, ok, _ := s.Get(ctx, KeyGroupCollapse); ok {
		t.Fatalf("malformed collapse key not cleared")
	}
	if _, ok, _ := s.Get(ctx, KeyTheme); ok {
		t.Fatalf("malformed theme key not cleared")
	}
}

func TestUIStateDiscardsNullCollapseMaps(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	// JSON null decodes without error into a nil map; accepting it would
	// hand the TUI maps it cannot assign into.
	if err := s.Set(ctx, KeyGroupCollapse, `null`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, KeyStepCollapse, `null`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ui := s.LoadUIState(ctx)
	if ui.GroupCollapsed == nil || ui.StepCollapsed == nil {
		t.Fatalf("nil collapse maps leaked out: %+v", ui)
	}
	ui.GroupCollapsed["Prep"] = true
	ui.StepCollapsed[1] = true

	if _, ok, _ := s.Get(ctx, KeyGroupCollapse); ok {
		t.Fatalf("null group collapse key not cleared")
	}
	if _, ok, _ := s.Get(ctx, KeyStepCollapse); ok {
		t.Fatalf("null step collapse key not cleared")
	}
}

func TestResetProgress(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()

	s.SaveSnapshot(ctx, stepFixture())
	s.SaveUIState(ctx, UIState{Theme: model.ThemeLight, Filter: model.FilterCompleted,
		GroupCollapsed: map[string]bool{}, StepCollapsed: map[int]bool{}})

	s.ResetProgress(ctx, false)
	if got := s.LoadSnapshot(ctx); got != nil {
		t.Fatalf("progress survived reset: %+v", got)
	}
	if ui := s.LoadUIState(ctx); ui.Theme != model.ThemeLight {
		t.Fatalf("UI state should survive a progress-only reset: %+v", ui)
	}

	s.ResetProgress(ctx, true)
	if ui := s.LoadUIState(ctx); ui.Theme != model.ThemeDark || ui.Filter != model.FilterAll {
		t.Fatalf("UI state survived full reset: %+v", ui)
	}
}

package checklist

import (
	"encoding/json"
	"reflect"
	"testing"

	"stepwise/internal/model"
)

func baseFixture() []model.Group {
	return []model.Group{
		{
			Title: "Prep",
			Steps: []model.Step{
				{
					Number:      1,
					Title:       "Gather tools",
					Instruction: "Collect everything first.",
					Items:       []string{"screwdriver", "tape"},
					TimeTaken:   10,
					Money:       "$10",
				},
				{
					Number:      2,
					Title:       "Clear the bench",
					Instruction: "Make room.",
					Items:       []string{},
					TimeTaken:   5,
					SubSteps: []model.SubStep{
						{ID: "2.1", Title: "Move boxes", TimeTaken: 3},
						{ID: "2.2", Title: "Wipe down", TimeTaken: 2},
					},
				},
			},
		},
		{
			Title: "Build",
			Steps: []model.Step{
				{
					Number:      3,
					Title:       "Assemble frame",
					Instruction: "Follow the diagram.",
					Items:       []string{"bolts"},
					TimeTaken:   30,
					Money:       "$5",
				},
			},
		},
	}
}

func TestMergeNilSavedYieldsDefaults(t *testing.T) {
	got := Merge(baseFixture(), nil)

	for _, g := range got {
		for _, st := range g.Steps {
			if st.Completed {
				t.Fatalf("step %d: expected completed=false", st.Number)
			}
			if st.Notes != "" {
				t.Fatalf("step %d: expected empty notes, got %q", st.Number, st.Notes)
			}
			if len(st.RequiredItemsCompleted) != len(st.Items) {
				t.Fatalf("step %d: item flags sized %d, want %d", st.Number, len(st.RequiredItemsCompleted), len(st.Items))
			}
			for i, v := range st.RequiredItemsCompleted {
				if v {
					t.Fatalf("step %d item %d: expected false", st.Number, i)
				}
			}
			for _, ss := range st.SubSteps {
				if ss.Completed {
					t.Fatalf("sub-step %s: expected completed=false", ss.ID)
				}
			}
		}
	}
}

func TestMergeOverlaysSavedState(t *testing.T) {
	saved := []model.PersistedGroup{
		{Title: "Prep", Steps: []model.PersistedStep{
			{Number: 1, Completed: true, Notes: "done early", RequiredItemsCompleted: []bool{true, false}},
			{Number: 2, SubSteps: []model.PersistedSubStep{{ID: "2.2", Completed: true}}},
		}},
	}

	got := Merge(baseFixture(), saved)

	s1 := got[0].Steps[0]
	if !s1.Completed || s1.Notes != "done early" {
		t.Fatalf("step 1: saved state not applied: %+v", s1)
	}
	if !reflect.DeepEqual(s1.RequiredItemsCompleted, []bool{true, false}) {
		t.Fatalf("step 1: item flags = %v", s1.RequiredItemsCompleted)
	}

	s2 := got[0].Steps[1]
	if s2.Completed || s2.Notes != "" {
		t.Fatalf("step 2: expected defaults for unsaved fields: %+v", s2)
	}
	if s2.SubSteps[0].Completed {
		t.Fatalf("sub-step 2.1: expected false")
	}
	if !s2.SubSteps[1].Completed {
		t.Fatalf("sub-step 2.2: expected true")
	}

	// Step 3 had no saved record at all.
	s3 := got[1].Steps[0]
	if s3.Completed || s3.Notes != "" {
		t.Fatalf("step 3: expected defaults: %+v", s3)
	}
}

func TestMergeResizesItemFlags(t *testing.T) {
	// Snapshot taken when the step had more items than it does now, and
	// another taken when it had fewer.
	saved := []model.PersistedGroup{
		{Title: "Prep", Steps: []model.PersistedStep{
			{Number: 1, RequiredItemsCompleted: []bool{true, true, true, true}},
			{Number: 3, RequiredItemsCompleted: []bool{}},
		}},
	}

	got := Merge(baseFixture(), saved)

	if want := []bool{true, true}; !reflect.DeepEqual(got[0].Steps[0].RequiredItemsCompleted, want) {
		t.Fatalf("step 1: item flags = %v, want %v", got[0].Steps[0].RequiredItemsCompleted, want)
	}
	if want := []bool{false}; !reflect.DeepEqual(got[1].Steps[0].RequiredItemsCompleted, want) {
		t.Fatalf("step 3: item flags = %v, want %v", got[1].Steps[0].RequiredItemsCompleted, want)
	}
}

func TestMergeDropsStaleSavedSteps(t *testing.T) {
	saved := []model.PersistedGroup{
		{Title: "Gone", Steps: []model.PersistedStep{
			{Number: 99, Completed: true, Notes: "ghost"},
		}},
	}

	got := Merge(baseFixture(), saved)

	if len(got) != 2 || len(got[0].Steps) != 2 || len(got[1].Steps) != 1 {
		t.Fatalf("output must mirror base structure, got %+v", got)
	}
	for _, g := range got {
		for _, st := range g.Steps {
			if st.Completed || st.Notes != "" {
				t.Fatalf("stale saved step leaked into step %d", st.Number)
			}
		}
	}
}

func TestMergeDuplicateSavedNumbersLastWins(t *testing.T) {
	saved := []model.PersistedGroup{
		{Steps: []model.PersistedStep{
			{Number: 1, Notes: "first"},
			{Number: 1, Notes: "second"},
		}},
	}

	got := Merge(baseFixture(), saved)
	if got[0].Steps[0].Notes != "second" {
		t.Fatalf("expected last duplicate to win, got %q", got[0].Steps[0].Notes)
	}
}

func TestMergeIsPure(t *testing.T) {
	base := baseFixture()
	saved := []model.PersistedGroup{
		{Title: "Prep", Steps: []model.PersistedStep{
			{Number: 1, Completed: true, RequiredItemsCompleted: []bool{true, true}},
		}},
	}

	baseJSON, _ := json.Marshal(base)
	savedJSON, _ := json.Marshal(saved)

	first := Merge(base, saved)
	second := Merge(base, saved)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated merges differ")
	}

	// Mutating the output must not reach back into the inputs.
	first[0].Steps[0].Items[0] = "mutated"
	first[0].Steps[1].SubSteps[0].Completed = true

	if b, _ := json.Marshal(base); string(b) != string(baseJSON) {
		t.Fatalf("base was mutated by Merge")
	}
	if b, _ := json.Marshal(saved); string(b) != string(savedJSON) {
		t.Fatalf("saved was mutated by Merge")
	}
}

func TestMergeRoundTrip(t *testing.T) {
	// Persist-then-merge must reproduce completion/notes state exactly.
	merged := Merge(baseFixture(), nil)
	merged[0].Steps[0].Completed = true
	merged[0].Steps[0].Notes = "checked"
	merged[0].Steps[1].SubSteps[1].Completed = true
	merged[1].Steps[0].RequiredItemsCompleted[0] = true

	snapshot := model.ToPersisted(merged)
	again := Merge(baseFixture(), snapshot)

	if !reflect.DeepEqual(model.ToPersisted(again), snapshot) {
		t.Fatalf("round trip diverged:\nfirst:  %+v\nsecond: %+v", snapshot, model.ToPersisted(again))
	}
}

package store

import (
	"context"
	"encoding/json"
	"os"

	"github.com/charmbracelet/log"

	"stepwise/internal/checklist"
	"stepwise/internal/model"
)

// Fixed keys for the per-workspace key-value store.
const (
	KeyProgress        = "progress"
	KeyTheme           = "theme"
	KeyFilter          = "filter"
	KeyGroupCollapse   = "group-collapse"
	KeyStepCollapse    = "step-collapse"
	KeyFooterCollapsed = "footer-collapsed"
	KeySearch          = "search"
)

// Storage failures degrade durability, never the running session: every
// helper below logs and carries on, leaving the in-memory checklist as the
// source of truth. Only the raw Get/Set/Delete layer reports errors.
var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "store"})

// UIState is the persisted presentation state, independent of checklist
// content. It is passed explicitly to rendering code rather than living in
// package globals, so render output is a function of a state snapshot.
type UIState struct {
	Theme           model.Theme
	Filter          model.Filter
	Search          string
	GroupCollapsed  map[string]bool
	StepCollapsed   map[int]bool
	FooterCollapsed bool
}

// DefaultUIState returns the state a fresh workspace starts with.
func DefaultUIState() UIState {
	return UIState{
		Theme:          model.ThemeDark,
		Filter:         model.FilterAll,
		GroupCollapsed: map[string]bool{},
		StepCollapsed:  map[int]bool{},
	}
}

// LoadSnapshot returns the saved progress snapshot, or nil when none is
// stored. A snapshot that fails validation is discarded and its key cleared;
// the session falls back to defaults instead of failing startup.
func (s Store) LoadSnapshot(ctx context.Context) []model.PersistedGroup {
	raw, ok, err := s.Get(ctx, KeyProgress)
	if err != nil {
		logger.Warn("reading progress snapshot failed", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	if !checklist.ValidSnapshotBytes([]byte(raw)) {
		logger.Warn("discarding malformed progress snapshot")
		s.clear(ctx, KeyProgress)
		return nil
	}
	var saved []model.PersistedGroup
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		logger.Warn("discarding undecodable progress snapshot", "err", err)
		s.clear(ctx, KeyProgress)
		return nil
	}
	return saved
}

// SaveSnapshot persists the user-mutable projection of the checklist.
// Computed fields are stripped by the projection and can never leak into
// the stored format.
func (s Store) SaveSnapshot(ctx context.Context, groups []model.Group) {
	b, err := json.Marshal(model.ToPersisted(groups))
	if err != nil {
		logger.Warn("encoding progress snapshot failed", "err", err)
		return
	}
	if err := s.Set(ctx, KeyProgress, string(b)); err != nil {
		logger.Warn("persisting progress snapshot failed", "err", err)
	}
}

// LoadUIState assembles UI preferences from their individual keys. Any
// malformed entry (for example a collapse map with non-boolean values) is
// discarded and its key cleared, falling back to the default.
func (s Store) LoadUIState(ctx context.Context) UIState {
	ui := DefaultUIState()

	if v, ok := s.get(ctx, KeyTheme); ok {
		switch model.Theme(v) {
		case model.ThemeLight, model.ThemeDark:
			ui.Theme = model.Theme(v)
		default:
			logger.Warn("discarding malformed theme", "value", v)
			s.clear(ctx, KeyTheme)
		}
	}

	if v, ok := s.get(ctx, KeyFilter); ok {
		ui.Filter = model.ParseFilter(v)
	}

	if v, ok := s.get(ctx, KeySearch); ok {
		ui.Search = v
	}

	if v, ok := s.get(ctx, KeyGroupCollapse); ok {
		var m map[string]bool
		// A stored "null" decodes into a nil map, which callers mutate.
		if err := json.Unmarshal([]byte(v), &m); err != nil || m == nil {
			logger.Warn("discarding malformed group collapse state", "err", err)
			s.clear(ctx, KeyGroupCollapse)
		} else {
			ui.GroupCollapsed = m
		}
	}

	if v, ok := s.get(ctx, KeyStepCollapse); ok {
		var m map[int]bool
		if err := json.Unmarshal([]byte(v), &m); err != nil || m == nil {
			logger.Warn("discarding malformed step collapse state", "err", err)
			s.clear(ctx, KeyStepCollapse)
		} else {
			ui.StepCollapsed = m
		}
	}

	if v, ok := s.get(ctx, KeyFooterCollapsed); ok {
		switch v {
		case "true":
			ui.FooterCollapsed = true
		case "false":
			ui.FooterCollapsed = false
		default:
			logger.Warn("discarding malformed footer state", "value", v)
			s.clear(ctx, KeyFooterCollapsed)
		}
	}

	return ui
}

// SaveUIState writes every UI preference back under its key.
func (s Store) SaveUIState(ctx context.Context, ui UIState) {
	s.set(ctx, KeyTheme, string(ui.Theme))
	s.set(ctx, KeyFilter, string(ui.Filter))
	s.set(ctx, KeySearch, ui.Search)
	s.setJSON(ctx, KeyGroupCollapse, ui.GroupCollapsed)
	s.setJSON(ctx, KeyStepCollapse, ui.StepCollapsed)
	if ui.FooterCollapsed {
		s.set(ctx, KeyFooterCollapsed, "true")
	} else {
		s.set(ctx, KeyFooterCollapsed, "false")
	}
}

// ResetProgress clears the progress snapshot; with ui set it also clears
// every UI preference key.
func (s Store) ResetProgress(ctx context.Context, ui bool) {
	s.clear(ctx, KeyProgress)
	if !ui {
		return
	}
	for _, key := range []string{KeyTheme, KeyFilter, KeySearch, KeyGroupCollapse, KeyStepCollapse, KeyFooterCollapsed} {
		s.clear(ctx, key)
	}
}

func (s Store) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		logger.Warn("reading key failed", "key", key, "err", err)
		return "", false
	}
	return v, ok
}

func (s Store) set(ctx context.Context, key, value string) {
	if err := s.Set(ctx, key, value); err != nil {
		logger.Warn("persisting key failed", "key", key, "err", err)
	}
}

func (s Store) setJSON(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Warn("encoding key failed", "key", key, "err", err)
		return
	}
	s.set(ctx, key, string(b))
}

func (s Store) clear(ctx context.Context, key string) {
	if err := s.Delete(ctx, key); err != nil {
		logger.Warn("clearing key failed", "key", key, "err", err)
	}
}

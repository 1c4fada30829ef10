package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// GlobalConfig is the per-user configuration in ~/.stepwise/config.json.
type GlobalConfig struct {
	// CurrentWorkspace selects which progress store to use when --workspace
	// is not passed.
	CurrentWorkspace string `json:"currentWorkspace,omitempty"`

	// DataSource remembers where the base dataset lives (file path or URL)
	// so the TUI can be started without flags.
	DataSource string `json:"dataSource,omitempty"`

	// DataSources optionally pins a per-workspace dataset, letting one
	// binary track several checklists.
	DataSources map[string]string `json:"dataSources,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.stepwise).
	if v := strings.TrimSpace(os.Getenv("STEPWISE_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".stepwise"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Unique temp file name + atomic rename so concurrent CLI/TUI processes
	// cannot clobber each other's writes.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// DataSourceFor resolves the dataset for a workspace: per-workspace pin
// first, then the global default.
func (c *GlobalConfig) DataSourceFor(workspace string) string {
	if c == nil {
		return ""
	}
	if src, ok := c.DataSources[workspace]; ok && strings.TrimSpace(src) != "" {
		return src
	}
	return c.DataSource
}

// WorkspaceDir resolves a named workspace under the config dir.
func WorkspaceDir(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("workspace name is empty")
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces", name), nil
}

// ListWorkspaces returns the names of workspaces that exist on disk.
func ListWorkspaces() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	out := []string{}
	ents, err := os.ReadDir(filepath.Join(dir, "workspaces"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, err
	}
	for _, e := range ents {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

package manifest

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Entry records one generated companion.
type Entry struct {
	Package   string `yaml:"package" json:"package"`
	Type      string `yaml:"type" json:"type"`
	Companion string `yaml:"companion" json:"companion"`
	File      string `yaml:"file" json:"file"`
}

// Manifest tracks what the last generation round produced.
type Manifest struct {
	Module  string   `yaml:"module,omitempty" json:"module,omitempty"`
	Entries []Entry  `yaml:"entries" json:"entries"`
	Pruned  []string `yaml:"pruned,omitempty" json:"pruned,omitempty"`
}

// Load reads a manifest from the provided path. If the file does not exist,
// an empty manifest is returned.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "unmarshal manifest %s", path)
	}

	return &m, nil
}

// Save writes the manifest to the provided path, creating parent directories as needed.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create manifest directory")
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write manifest")
	}

	return nil
}

// Replace swaps in the entries of a new round, sorted by file so the manifest
// is stable across runs.
func (m *Manifest) Replace(entries []Entry, pruned []string) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })
	m.Entries = sorted

	m.Pruned = nil
	if len(pruned) > 0 {
		m.Pruned = append([]string(nil), pruned...)
		sort.Strings(m.Pruned)
	}
}

// File returns the file recorded for the given companion, if present.
func (m *Manifest) File(companion string) string {
	for _, e := range m.Entries {
		if e.Companion == companion {
			return e.File
		}
	}
	return ""
}

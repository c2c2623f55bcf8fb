// Package plugins loads UI plugin manifests from a local directory and
// watches it for changes.
package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest describes one installed UI plugin.
type Manifest struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Entry       string `yaml:"entry" json:"entry"`
}

// Validate reports whether the manifest carries the required fields.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin manifest: name is required")
	}
	if m.Entry == "" {
		return fmt.Errorf("plugin manifest %q: entry is required", m.Name)
	}
	return nil
}

// Registry reads manifests from a single directory.
type Registry struct {
	dir string
}

// NewRegistry creates a registry over dir, creating it if needed.
func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("plugins: create dir: %w", err)
	}
	return &Registry{dir: dir}, nil
}

// Dir returns the watched manifest directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Load parses every manifest in the directory, sorted by file name. A
// single malformed manifest fails the whole load so the resource stays
// retryable rather than initializing with a partial plugin set.
func (r *Registry) Load() ([]Manifest, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("plugins: read dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	manifests := make([]Manifest, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(r.dir, name))
		if err != nil {
			return nil, fmt.Errorf("plugins: read %s: %w", name, err)
		}
		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("plugins: parse %s: %w", name, err)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("plugins: %s: %w", name, err)
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

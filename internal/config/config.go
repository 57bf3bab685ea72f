package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/buildgraph/internal/logging"
	"github.com/dusk-indust/buildgraph/internal/tracing"
)

// FileName is the name Save writes.
const FileName = "buildgraph.yml"

// ProjectConfig holds project-level settings loaded from buildgraph.yml.
type ProjectConfig struct {
	BuildDir    string `yaml:"buildDir,omitempty"`
	Target      string `yaml:"target,omitempty"`
	Parallelism int    `yaml:"parallelism,omitempty"`

	// Properties toggle third-party registrations, e.g. "add.dex: true".
	// Command-line and environment values take precedence.
	Properties map[string]any `yaml:"properties,omitempty"`

	Graph   GraphConfig    `yaml:"graph,omitempty"`
	Logging logging.Config `yaml:"logging,omitempty"`
	Tracing tracing.Config `yaml:"tracing,omitempty"`
}

// GraphConfig selects the plan graph backend.
type GraphConfig struct {
	// Backend is "memory" or "kuzu". Empty means memory.
	Backend string `yaml:"backend,omitempty"`

	// Path is the Kùzu database path. Empty means <buildDir>/plan-graph.
	Path string `yaml:"path,omitempty"`
}

// Load attempts to read buildgraph.yml or buildgraph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"buildgraph.yml", "buildgraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// Save writes cfg to buildgraph.yml in dir.
func Save(dir string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

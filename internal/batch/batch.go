// Package batch loads a YAML manifest describing several named S-63
// environments to process in one run of cmd/s63extract, each with its
// own issued identity and directory set. Grounded directly on
// minter/internal/config/config.go's decode-then-validate shape and
// gopkg.in/yaml.v3 KnownFields strictness.
package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment is one named entry in a Manifest.
type Environment struct {
	Name       string `yaml:"name"`
	HWID       string `yaml:"hw_id"`
	MKey       string `yaml:"m_key"`
	MID        string `yaml:"m_id"`
	InputDir   string `yaml:"input_dir"`
	OutputDir  string `yaml:"output_dir"`
	PermitFile string `yaml:"permit_file"`
}

// Manifest is the top-level YAML document: a list of environments to run
// in sequence.
type Manifest struct {
	Environments []Environment `yaml:"environments"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch: opening %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	m := new(Manifest)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("batch: decoding %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("batch: %s: %w", path, err)
	}
	return m, nil
}

// Validate checks every environment's required fields.
func (m *Manifest) Validate() error {
	if len(m.Environments) == 0 {
		return fmt.Errorf("manifest must declare at least one environment")
	}
	seen := make(map[string]bool, len(m.Environments))
	for i, env := range m.Environments {
		if env.Name == "" {
			return fmt.Errorf("environment %d: name is required", i)
		}
		if seen[env.Name] {
			return fmt.Errorf("environment %d: duplicate name %q", i, env.Name)
		}
		seen[env.Name] = true

		if len(env.HWID) != 5 {
			return fmt.Errorf("environment %q: hw_id must be exactly 5 characters", env.Name)
		}
		if len(env.MKey) != 5 {
			return fmt.Errorf("environment %q: m_key must be exactly 5 characters", env.Name)
		}
		if len(env.MID) != 2 {
			return fmt.Errorf("environment %q: m_id must be exactly 2 characters", env.Name)
		}
		if env.InputDir == "" || env.OutputDir == "" {
			return fmt.Errorf("environment %q: input_dir and output_dir are required", env.Name)
		}
	}
	return nil
}

// Package config loads the driver configuration S-63 tooling reads from
// an INI file: the issued identity (HW_ID, M_KEY, M_ID) plus the
// filesystem paths a batch run needs (§6 "Configuration"). Shaped after
// the teacher's decode-then-validate config loader
// (minter/internal/config/config.go), adapted from YAML to INI per the
// spec's own configuration surface.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config is the recognized option set from §6.
type Config struct {
	HWID       string `ini:"HW_ID"`
	MKey       string `ini:"M_KEY"`
	MID        string `ini:"M_ID"`
	InputDir   string `ini:"input_dir"`
	OutputDir  string `ini:"output_dir"`
	PermitFile string `ini:"permit_file"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := new(Config)
	if err := file.Section("").MapTo(cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the required fields and their fixed lengths (§3, §6).
func (c *Config) Validate() error {
	if len(c.HWID) != 5 {
		return fmt.Errorf("HW_ID must be exactly 5 characters, got %q", c.HWID)
	}
	if len(c.MKey) != 5 {
		return fmt.Errorf("M_KEY must be exactly 5 characters, got %q", c.MKey)
	}
	if len(c.MID) != 2 {
		return fmt.Errorf("M_ID must be exactly 2 characters, got %q", c.MID)
	}
	return nil
}

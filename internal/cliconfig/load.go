package cliconfig

import (
	"fmt"

	"github.com/bft-labs/topicmap/internal/domain"
)

// Load builds a Config from defaults, the file at path, TOPICMAP_* variables
// and the already-parsed flags in base, in increasing order of precedence.
// Only the flags named in changed override the lower layers.
func Load(path string, base Config, changed map[string]bool) (Config, error) {
	cfg := base
	if path == "" || !FileExists(path) {
		return cfg, fmt.Errorf("config file %q not found", path)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		return cfg, err
	}
	ApplyEnvConfig(&cfg, changed)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadMappings reads only the [[mapping]] tables of the file at path.
func LoadMappings(path string) ([]domain.Mapping, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return BuildMappings(fc.Mappings)
}

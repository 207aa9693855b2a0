package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/topicmap/internal/domain"
)

// FileConfig is the TOML representation of Config.
type FileConfig struct {
	LogLevel    string          `toml:"log_level"`
	Output      string          `toml:"output"`
	Separator   string          `toml:"separator"`
	Input       string          `toml:"input"`
	MetricsAddr string          `toml:"metrics_addr"`
	Watch       *bool           `toml:"watch"`
	Strict      *bool           `toml:"strict"`
	Mappings    []MappingConfig `toml:"mapping"`
}

// MappingConfig is one [[mapping]] table.
type MappingConfig struct {
	Topic       string `toml:"topic"`
	Type        string `toml:"type"`
	JSONKey     string `toml:"json_key"`
	JSONPath    string `toml:"json_path"`
	JSONFormula string `toml:"json_formula"`

	Measurement string `toml:"measurement"`
	Field       string `toml:"field"`

	MeasurementPositive string `toml:"measurement_positive"`
	FieldPositive       string `toml:"field_positive"`
	MeasurementNegative string `toml:"measurement_negative"`
	FieldNegative       string `toml:"field_negative"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.topicmap/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".topicmap", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
// Mappings only come from the file and always replace cfg.Mappings.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("output", fc.Output, &cfg.Output)
	s.setString("separator", fc.Separator, &cfg.Separator)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	s.setBool("watch", fc.Watch, &cfg.Watch)
	s.setBool("strict", fc.Strict, &cfg.Strict)

	mappings, err := BuildMappings(fc.Mappings)
	if err != nil {
		return err
	}
	cfg.Mappings = mappings
	return nil
}

// BuildMappings turns [[mapping]] tables into domain mappings, in order.
// All invalid entries are reported together.
func BuildMappings(entries []MappingConfig) ([]domain.Mapping, error) {
	mappings := make([]domain.Mapping, 0, len(entries))
	var errs []error
	for i, e := range entries {
		m, err := domain.NewMapping(domain.MappingSpec{
			Topic:               e.Topic,
			Type:                e.Type,
			JSONKey:             e.JSONKey,
			JSONPath:            e.JSONPath,
			JSONFormula:         e.JSONFormula,
			Measurement:         e.Measurement,
			Field:               e.Field,
			MeasurementPositive: e.MeasurementPositive,
			FieldPositive:       e.FieldPositive,
			MeasurementNegative: e.MeasurementNegative,
			FieldNegative:       e.FieldNegative,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("mapping #%d: %w", i+1, err))
			continue
		}
		mappings = append(mappings, m)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return mappings, nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

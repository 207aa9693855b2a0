package cliconfig

import (
	"fmt"
	"strings"

	"github.com/bft-labs/topicmap/internal/domain"
)

// Output formats.
const (
	OutputLine = "line"
	OutputJSON = "json"
)

// Config holds CLI configuration for topicmap.
type Config struct {
	LogLevel    string
	Output      string
	Separator   string
	Input       string
	MetricsAddr string
	Watch       bool
	Strict      bool

	Mappings []domain.Mapping
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		Output:    OutputLine,
		Separator: " ",
	}
}

// Validate checks the configuration for errors and normalizes values.
func (c *Config) Validate() error {
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))
	if c.Output == "" {
		c.Output = OutputLine
	}
	if c.Output != OutputLine && c.Output != OutputJSON {
		return fmt.Errorf("output must be %q or %q, got %q", OutputLine, OutputJSON, c.Output)
	}
	if c.Separator == "" {
		return fmt.Errorf("separator must not be empty")
	}
	if len(c.Mappings) == 0 {
		return fmt.Errorf("at least one [[mapping]] is required")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

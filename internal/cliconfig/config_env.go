package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (TOPICMAP_*).
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("log-level", os.Getenv("TOPICMAP_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("output", os.Getenv("TOPICMAP_OUTPUT"), &cfg.Output)
	s.setString("separator", os.Getenv("TOPICMAP_SEPARATOR"), &cfg.Separator)
	s.setString("input", os.Getenv("TOPICMAP_INPUT"), &cfg.Input)
	s.setString("metrics-addr", os.Getenv("TOPICMAP_METRICS_ADDR"), &cfg.MetricsAddr)

	s.setBoolFromString("watch", os.Getenv("TOPICMAP_WATCH"), &cfg.Watch)
	s.setBoolFromString("strict", os.Getenv("TOPICMAP_STRICT"), &cfg.Strict)
}

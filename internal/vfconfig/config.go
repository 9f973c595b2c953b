// Package vfconfig defines the configuration structs shared across the
// compiler, planner, cache, and runtime, and their YAML decoding.
package vfconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TzConfig carries the timezone discipline described in spec.md §6. When
// DefaultInputTz is empty, parse-time strings without an explicit offset
// are interpreted as LocalTz.
type TzConfig struct {
	LocalTz        string `yaml:"local_tz"`
	DefaultInputTz string `yaml:"default_input_tz,omitempty"`
}

// DefaultTzConfig returns the UTC/UTC configuration, a safe default for
// headless evaluation where no client timezone is known.
func DefaultTzConfig() TzConfig {
	return TzConfig{LocalTz: "UTC"}
}

// InputTz returns the timezone that ambiguous input timestamps should be
// interpreted in.
func (c TzConfig) InputTz() string {
	if c.DefaultInputTz != "" {
		return c.DefaultInputTz
	}
	return c.LocalTz
}

// PlannerConfig enumerates the planner's behavior switches (spec.md §4.3).
type PlannerConfig struct {
	SplitDomainData         bool     `yaml:"split_domain_data"`
	SplitURLDataNodes       bool     `yaml:"split_url_data_nodes"`
	StringifyLocalDatetimes bool     `yaml:"stringify_local_datetimes"`
	ProjectionPushdown      bool     `yaml:"projection_pushdown"`
	ExtractInlineData       bool     `yaml:"extract_inline_data"`
	AllowClientToServer     bool     `yaml:"allow_client_to_server_comms"`
	KeepVariables           []string `yaml:"keep_variables,omitempty"`
	ClientOnlyVars          []string `yaml:"client_only_vars,omitempty"`
}

// DefaultPlannerConfig returns the conservative default: every rewrite
// enabled, client/server interactivity allowed.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		SplitDomainData:         true,
		SplitURLDataNodes:       true,
		StringifyLocalDatetimes: true,
		ProjectionPushdown:      true,
		ExtractInlineData:       true,
		AllowClientToServer:     true,
	}
}

// CacheConfig bounds the node-value cache (spec.md §4.5).
type CacheConfig struct {
	CapacityBytes int64 `yaml:"capacity_bytes"`
	MaxEntries    int   `yaml:"max_entries"`
}

// DefaultCacheConfig returns a modest in-process default.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{CapacityBytes: 512 << 20, MaxEntries: 4096}
}

// RuntimeConfig selects and configures the scheduling engine backend.
type RuntimeConfig struct {
	Engine      string      `yaml:"engine"` // "inmem" | "temporal"
	RowLimit    *int        `yaml:"row_limit,omitempty"`
	Cache       CacheConfig `yaml:"cache"`
	Tz          TzConfig    `yaml:"tz"`
	Planner     PlannerConfig `yaml:"planner"`
}

// DefaultRuntimeConfig returns the in-memory, unlimited-row default.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Engine:  "inmem",
		Cache:   DefaultCacheConfig(),
		Tz:      DefaultTzConfig(),
		Planner: DefaultPlannerConfig(),
	}
}

// Load reads a RuntimeConfig from a YAML file at path, decoding it on top
// of DefaultRuntimeConfig so any field the file omits keeps its default.
func Load(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

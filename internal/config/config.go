// Package config loads livestore configuration from YAML or CUE.
//
// A configuration names the database, sizes the worker context and the
// dispatcher pool, picks the watch strategy and declares the tables and
// routes that identifiers resolve against:
//
//	database: tasks.db
//	pool: {policy: bounded, min: 1, max: 4, capacity: 64, grace: 30s}
//	tables:
//	  task:
//	    columns:
//	      id: {kind: int}
//	      title: {kind: text}
//	routes:
//	  - {path: /tasks, table: task, order: [id]}
//	  - {path: "/tasks/{id}", table: task}
//
// CUE files are unified with an embedded #Config schema before decoding.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the decoded configuration file.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// Migrations is a directory of goose SQL migrations applied on open.
	Migrations string `yaml:"migrations,omitempty" json:"migrations,omitempty"`

	// Workers bounds concurrent queries. Zero means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty"`

	Pool  Pool  `yaml:"pool,omitempty" json:"pool,omitempty"`
	Watch Watch `yaml:"watch,omitempty" json:"watch,omitempty"`

	// Tables declares the columns routes and writes may use.
	Tables map[string]Table `yaml:"tables" json:"tables"`

	// Routes are registered in order; order breaks specificity ties.
	Routes []Route `yaml:"routes" json:"routes"`
}

// Pool configures the dispatcher pool.
type Pool struct {
	// Policy is one of per-key, per-observer or bounded.
	Policy   string `yaml:"policy,omitempty" json:"policy,omitempty"`
	Min      int    `yaml:"min,omitempty" json:"min,omitempty"`
	Max      int    `yaml:"max,omitempty" json:"max,omitempty"`
	Capacity int    `yaml:"capacity,omitempty" json:"capacity,omitempty"`

	// Grace is a time.ParseDuration string, e.g. "60s".
	Grace string `yaml:"grace,omitempty" json:"grace,omitempty"`
}

// Watch configures the watch manager.
type Watch struct {
	// Strategy is per-resource or per-subscription.
	Strategy string `yaml:"strategy,omitempty" json:"strategy,omitempty"`
}

// Table lists a table's columns.
type Table struct {
	Columns map[string]Column `yaml:"columns" json:"columns"`
}

// Column declares one column.
type Column struct {
	Kind     string `yaml:"kind" json:"kind"`
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
}

// Route declares one route.
type Route struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Path  string `yaml:"path" json:"path"`
	Table string `yaml:"table" json:"table"`

	// Order lists column names; a leading "-" sorts descending.
	Order []string `yaml:"order,omitempty" json:"order,omitempty"`

	// Defaults fill columns an insert through this route leaves unset.
	Defaults map[string]any `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// Error reports an invalid configuration. Pos is set for CUE input.
type Error struct {
	Field   string
	Message string
	Pos     string
}

func (e *Error) Error() string {
	if e.Pos != "" {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

//go:embed default.yaml
var defaultYAML []byte

// Default returns the configuration of the bundled task schema.
func Default() *Config {
	cfg, err := ParseYAML(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("config: bundled default: %v", err))
	}
	return cfg
}

// Load reads a configuration file, choosing the format by extension:
// .cue for CUE, anything else for YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if filepath.Ext(path) == ".cue" {
		return ParseCUE(data, filepath.Base(path))
	}
	return ParseYAML(data)
}

// ParseYAML decodes YAML, rejecting unknown fields.
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks fields both formats need checked after decoding.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return &Error{Field: "workers", Message: "must not be negative"}
	}
	switch c.Pool.Policy {
	case "", PolicyPerKey, PolicyPerObserver:
	case PolicyBounded:
		if c.Pool.Max < 1 {
			return &Error{Field: "pool.max", Message: "bounded policy needs max >= 1"}
		}
		if c.Pool.Min > c.Pool.Max {
			return &Error{Field: "pool.min", Message: fmt.Sprintf("min %d exceeds max %d", c.Pool.Min, c.Pool.Max)}
		}
	default:
		return &Error{Field: "pool.policy", Message: fmt.Sprintf("unknown policy %q", c.Pool.Policy)}
	}
	if c.Pool.Grace != "" {
		if d, err := time.ParseDuration(c.Pool.Grace); err != nil || d < 0 {
			return &Error{Field: "pool.grace", Message: fmt.Sprintf("invalid duration %q", c.Pool.Grace)}
		}
	}
	if _, err := c.Strategy(); err != nil {
		return &Error{Field: "watch.strategy", Message: err.Error()}
	}
	if len(c.Routes) == 0 {
		return &Error{Field: "routes", Message: "at least one route is required"}
	}
	for i, r := range c.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if r.Path == "" {
			return &Error{Field: field + ".path", Message: "path is required"}
		}
		if _, ok := c.Tables[r.Table]; !ok {
			return &Error{Field: field + ".table", Message: fmt.Sprintf("unknown table %q", r.Table)}
		}
	}
	return nil
}

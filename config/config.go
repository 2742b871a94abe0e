// Package config reads the joinplan.yml configuration file.
//
//	dialect: postgres
//	minify: false
//	columnNaming: snake
//	schema:
//	  - graph/*.graphql
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/vektah/gqlparser/v2/ast"
	"gopkg.in/yaml.v3"

	"github.com/syssam/joinplan/planner"
)

// DefaultFilename is the configuration file looked up by the CLI.
const DefaultFilename = "joinplan.yml"

// Config is the file configuration of the planner.
type Config struct {
	// Dialect names the target SQL dialect.
	Dialect string `yaml:"dialect,omitempty"`
	// Minify shortens every generated alias.
	Minify bool `yaml:"minify,omitempty"`
	// ColumnNaming is "field" or "snake".
	ColumnNaming string `yaml:"columnNaming,omitempty"`
	// Schema lists SDL files or glob patterns, relative to the config file.
	Schema StringList `yaml:"schema,omitempty"`

	dir string
}

// StringList is a YAML type that can be either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}

// MarshalYAML implements yaml.Marshaler for StringList.
func (s StringList) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// Load reads a configuration file. A missing file yields the empty
// configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{dir: filepath.Dir(path)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read joinplan config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse joinplan config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal joinplan config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// AddSchemaPath adds a schema path if not already present.
func (c *Config) AddSchemaPath(path string) {
	if !slices.Contains(c.Schema, path) {
		c.Schema = append(c.Schema, path)
	}
}

// Options converts the configuration into planner options.
func (c *Config) Options() ([]planner.Option, error) {
	var opts []planner.Option
	if c.Dialect != "" {
		opts = append(opts, planner.WithDialect(c.Dialect))
	}
	if c.Minify {
		opts = append(opts, planner.WithMinify(true))
	}
	naming, err := planner.ParseColumnNaming(c.ColumnNaming)
	if err != nil {
		return nil, err
	}
	return append(opts, planner.WithColumnNaming(naming)), nil
}

// Sources reads the configured schema files. Patterns are expanded with
// filepath.Glob; a pattern matching nothing is an error.
func (c *Config) Sources() ([]*ast.Source, error) {
	var sources []*ast.Source
	for _, pattern := range c.Schema {
		if !filepath.IsAbs(pattern) && c.dir != "" {
			pattern = filepath.Join(c.dir, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("schema pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("schema pattern %q matches no files", pattern)
		}
		for _, name := range matches {
			data, err := os.ReadFile(name)
			if err != nil {
				return nil, fmt.Errorf("read schema: %w", err)
			}
			sources = append(sources, &ast.Source{Name: name, Input: string(data)})
		}
	}
	return sources, nil
}

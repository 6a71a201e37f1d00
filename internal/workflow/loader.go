package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default locations and settings applied when the definition omits them.
const (
	DefaultOutputDir     = "./outputs"
	DefaultCheckpointDir = "./checkpoints"
	DefaultOutputFormat  = "json"
)

// fileRoot is the top-level document shape: everything nests under
// a single "workflow" key.
type fileRoot struct {
	Workflow *Definition `yaml:"workflow"`
}

// Load reads, parses and validates a workflow definition file.
// All returned errors are *ConfigError.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("read workflow file: %w", err)}
	}
	return Parse(data, path)
}

// Parse parses and validates a workflow definition from raw YAML.
// The path is used for error reporting only.
func Parse(data []byte, path string) (*Definition, error) {
	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parse workflow yaml: %w", err)}
	}
	if root.Workflow == nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("missing top-level workflow block")}
	}

	def := root.Workflow
	applyDefaults(def)

	if err := Validate(def); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return def, nil
}

// applyDefaults fills in omitted default settings.
func applyDefaults(def *Definition) {
	if def.Defaults.OutputDir == "" {
		def.Defaults.OutputDir = DefaultOutputDir
	}
	if def.Defaults.CheckpointDir == "" {
		def.Defaults.CheckpointDir = DefaultCheckpointDir
	}
	if def.Defaults.OutputFormat == "" {
		def.Defaults.OutputFormat = DefaultOutputFormat
	}
}

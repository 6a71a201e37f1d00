// Package workflow loads and validates pipeline workflow definitions.
// A definition is immutable after load; the orchestrator only reads it.
package workflow

import (
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Definition is the parsed description of one pipeline run.
type Definition struct {
	// Name is the human-readable workflow name.
	Name string `yaml:"name"`
	// Defaults holds run-wide default settings.
	Defaults Defaults `yaml:"defaults"`
	// Steps is the ordered step sequence; declaration order is execution order.
	Steps []StepSpec `yaml:"steps"`
	// Functions is the registry of callable function descriptors available
	// to decision steps, keyed by function name.
	Functions map[string]FunctionSpec `yaml:"functions"`
}

// Defaults holds workflow-wide default settings.
type Defaults struct {
	// OutputDir is where step outputs, checkpoints and debug logs land.
	OutputDir string `yaml:"output_dir"`
	// WorkspaceDir is created at startup when set, for execution steps to
	// work in.
	WorkspaceDir string `yaml:"workspace_dir"`
	// CheckpointDir is where result snapshots are written.
	CheckpointDir string `yaml:"checkpoint_dir"`
	// CheckpointEnabled turns on a snapshot after every completed step.
	CheckpointEnabled bool `yaml:"checkpoint_enabled"`
	// Model is the default decision-agent model identifier.
	Model string `yaml:"model"`
	// GenerationOptions are the default decision-agent sampling options.
	GenerationOptions GenerationOptions `yaml:"generation_options"`
	// OutputFormat is the default execution-agent output encoding
	// ("json" or "text").
	OutputFormat string `yaml:"output_format"`
}

// GenerationOptions bundles decision-agent sampling parameters. Nil fields
// are unset and fall through to the next layer.
type GenerationOptions struct {
	MaxOutputTokens *int     `yaml:"max_output_tokens"`
	Temperature     *float64 `yaml:"temperature"`
	TopP            *float64 `yaml:"top_p"`
	TopK            *int     `yaml:"top_k"`
}

// Merge returns a copy of base with set fields of override applied per key.
func (base GenerationOptions) Merge(override *GenerationOptions) GenerationOptions {
	if override == nil {
		return base
	}
	out := base
	if override.MaxOutputTokens != nil {
		out.MaxOutputTokens = override.MaxOutputTokens
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.TopK != nil {
		out.TopK = override.TopK
	}
	return out
}

// StepSpec declares one pipeline step.
type StepSpec struct {
	// Name is the unique step name within the workflow.
	Name string `yaml:"name"`
	// Kind selects the executor: decision, execution or parallel_execution.
	Kind models.StepKind `yaml:"kind"`
	// Prompt is the ordered list of prompt parts assembled for this step.
	Prompt []PromptPart `yaml:"prompt"`
	// Condition gates the step: "<step>.<field>" against a prior result.
	Condition string `yaml:"condition"`
	// OutputToFile persists the normalized result under the output dir.
	OutputToFile string `yaml:"output_to_file"`
	// Model overrides the default decision-agent model for this step.
	Model string `yaml:"model"`
	// GenerationOptions override the workflow defaults per key.
	GenerationOptions *GenerationOptions `yaml:"generation_options"`
	// Functions names registry entries attached to a decision call.
	Functions []string `yaml:"functions"`
	// ExecOptions configure the execution-agent process launch.
	ExecOptions *ExecOptions `yaml:"exec_options"`
	// Tasks are the sub-tasks of a parallel_execution step.
	Tasks []SubTask `yaml:"tasks"`
}

// PromptPart is one segment of a step prompt.
type PromptPart struct {
	// Type is "static", "file" or "previous_result".
	Type string `yaml:"type"`
	// Content is the literal text of a static part.
	Content string `yaml:"content"`
	// Path is the file read by a file part.
	Path string `yaml:"path"`
	// Step names the prior step a previous_result part pulls from.
	Step string `yaml:"step"`
	// Field optionally narrows the prior result to one field.
	Field string `yaml:"field"`
}

// Prompt part types.
const (
	PartStatic         = "static"
	PartFile           = "file"
	PartPreviousResult = "previous_result"
)

// ExecOptions configure how the execution-agent process is launched.
type ExecOptions struct {
	// Print controls non-interactive print mode; defaults to true.
	Print *bool `yaml:"print"`
	// OutputFormat overrides the workflow default output encoding.
	OutputFormat string `yaml:"output_format"`
	// MaxTurns bounds the number of agent turns.
	MaxTurns int `yaml:"max_turns"`
	// Verbose enables verbose agent output.
	Verbose bool `yaml:"verbose"`
	// AllowedTools lists the tool names the agent may use.
	AllowedTools []string `yaml:"allowed_tools"`
	// AppendSystemPrompt is appended to the agent's system prompt.
	AppendSystemPrompt string `yaml:"append_system_prompt"`
	// Cwd is the working directory, resolved against the project root and
	// created if absent.
	Cwd string `yaml:"cwd"`
}

// PrintMode reports whether print mode is enabled, defaulting to true.
func (o *ExecOptions) PrintMode() bool {
	if o == nil || o.Print == nil {
		return true
	}
	return *o.Print
}

// SubTask declares one sub-task of a parallel_execution step.
type SubTask struct {
	// ID is the sub-task identifier, unique within the step.
	ID string `yaml:"id"`
	// Prompt is the sub-task's own prompt part list.
	Prompt []PromptPart `yaml:"prompt"`
	// ExecOptions configure the sub-task's process launch.
	ExecOptions *ExecOptions `yaml:"exec_options"`
	// OutputToFile persists the sub-task's individual result.
	OutputToFile string `yaml:"output_to_file"`
}

// FunctionSpec describes one callable function offered to decision steps.
type FunctionSpec struct {
	// Description tells the decision agent what the function does.
	Description string `yaml:"description"`
	// Parameters is the JSON-schema parameter object for the function.
	Parameters map[string]any `yaml:"parameters"`
}

// Step returns the step with the given name, or nil.
func (d *Definition) Step(name string) *StepSpec {
	for i := range d.Steps {
		if d.Steps[i].Name == name {
			return &d.Steps[i]
		}
	}
	return nil
}

package workflow

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// ConfigError indicates a malformed or invalid workflow definition.
// It is fatal and raised before any step runs.
type ConfigError struct {
	// Path is the definition file that failed, when known.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("workflow config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("workflow config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Validate checks structural invariants of a definition: unique step names,
// known kinds, well-formed prompt parts and conditions that reference only
// earlier steps, and unique sub-task ids within a parallel step.
func Validate(def *Definition) error {
	if def.Name == "" {
		return fmt.Errorf("workflow name is required")
	}

	seen := make(map[string]bool, len(def.Steps))
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i+1)
		}
		if seen[step.Name] {
			return fmt.Errorf("step %q: duplicate step name", step.Name)
		}
		if !step.Kind.Valid() {
			return fmt.Errorf("step %q: unknown step kind %q", step.Name, step.Kind)
		}
		if err := validatePrompt(step.Prompt); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
		if err := validateCondition(step.Condition, seen); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
		if err := validateKind(def, step); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
		seen[step.Name] = true
	}
	return nil
}

// validateCondition checks "<step>.<field>" syntax and that the referenced
// step is declared earlier. A malformed expression is rejected here instead
// of silently running the step at evaluation time.
func validateCondition(cond string, earlier map[string]bool) error {
	if cond == "" {
		return nil
	}
	parts := strings.Split(cond, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("malformed condition %q: want \"<step>.<field>\"", cond)
	}
	if !earlier[parts[0]] {
		return fmt.Errorf("condition %q references step %q which is not declared earlier", cond, parts[0])
	}
	return nil
}

func validatePrompt(parts []PromptPart) error {
	for i, part := range parts {
		switch part.Type {
		case PartStatic:
		case PartFile:
			if part.Path == "" {
				return fmt.Errorf("prompt part %d: file part requires a path", i+1)
			}
		case PartPreviousResult:
			if part.Step == "" {
				return fmt.Errorf("prompt part %d: previous_result part requires a step", i+1)
			}
		default:
			return fmt.Errorf("prompt part %d: unknown part type %q", i+1, part.Type)
		}
	}
	return nil
}

func validateKind(def *Definition, step *StepSpec) error {
	switch step.Kind {
	case models.StepKindDecision:
		for _, name := range step.Functions {
			if _, ok := def.Functions[name]; !ok {
				return fmt.Errorf("function %q is not in the workflow function registry", name)
			}
		}
	case models.StepKindParallel:
		if len(step.Tasks) == 0 {
			return fmt.Errorf("parallel step requires at least one sub-task")
		}
		ids := make(map[string]bool, len(step.Tasks))
		for i, task := range step.Tasks {
			if task.ID == "" {
				return fmt.Errorf("sub-task %d: id is required", i+1)
			}
			if ids[task.ID] {
				return fmt.Errorf("duplicate sub-task id %q", task.ID)
			}
			ids[task.ID] = true
			if err := validatePrompt(task.Prompt); err != nil {
				return fmt.Errorf("sub-task %q: %w", task.ID, err)
			}
		}
	}
	return nil
}

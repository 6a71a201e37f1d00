package models

import "time"

// StepKind identifies which collaborator executes a step.
type StepKind string

const (
	// StepKindDecision routes the step to the decision agent (planning,
	// evaluation, function calling).
	StepKindDecision StepKind = "decision"
	// StepKindExecution routes the step to the execution agent subprocess.
	StepKindExecution StepKind = "execution"
	// StepKindParallel fans the step out into concurrent execution sub-tasks.
	StepKindParallel StepKind = "parallel_execution"
)

// Valid returns true if the kind is a known value.
func (k StepKind) Valid() bool {
	switch k {
	case StepKindDecision, StepKindExecution, StepKindParallel:
		return true
	default:
		return false
	}
}

// StepStatus represents the lifecycle state of a pipeline step.
type StepStatus string

const (
	// StepStatusPending indicates the step has not been reached yet.
	StepStatusPending StepStatus = "pending"
	// StepStatusSkipped indicates the step's condition evaluated false.
	StepStatusSkipped StepStatus = "skipped"
	// StepStatusCompleted indicates the step produced a stored result.
	StepStatusCompleted StepStatus = "completed"
	// StepStatusFailed indicates the step failed and aborted the run.
	StepStatusFailed StepStatus = "failed"
)

// Payload is the normalized result body of a step: either free text under
// the "text" key, a function invocation ({"function_call", "args", "text"}),
// or a structured object decoded from the execution agent's output.
type Payload map[string]any

// Text returns the free-text portion of the payload, if any.
func (p Payload) Text() string {
	if s, ok := p["text"].(string); ok {
		return s
	}
	return ""
}

// FunctionCall returns the requested function name and true when the
// decision agent responded with a function invocation.
func (p Payload) FunctionCall() (string, bool) {
	name, ok := p["function_call"].(string)
	return name, ok && name != ""
}

// Args returns the argument mapping of a function invocation. The mapping
// is empty, never nil, when a function call is present without arguments.
func (p Payload) Args() map[string]any {
	if args, ok := p["args"].(map[string]any); ok {
		return args
	}
	return nil
}

// Field extracts a named field from the payload, falling back to the whole
// payload when the field is absent.
func (p Payload) Field(name string) any {
	if v, ok := p[name]; ok {
		return v
	}
	return p
}

// StepResult records the outcome of one completed pipeline step.
type StepResult struct {
	// StepName is the unique name of the producing step.
	StepName string `json:"step_name"`
	// Result is the normalized payload returned by the collaborator.
	Result Payload `json:"result"`
	// Timestamp is when the step completed.
	Timestamp time.Time `json:"timestamp"`
	// ModelUsed identifies the collaborator or model that produced the result.
	ModelUsed string `json:"model_used"`
}

// RunStatus represents the lifecycle state of a whole pipeline run.
type RunStatus string

const (
	// RunStatusRunning indicates the run loop is in progress.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates every step completed or was skipped.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates a step failed and the run aborted.
	RunStatusFailed RunStatus = "failed"
	// RunStatusCanceled indicates a stop signal ended the run early.
	RunStatusCanceled RunStatus = "canceled"
)

// Package execution invokes the execution agent: the claude CLI run as a
// non-interactive subprocess that carries out concrete actions without
// making decisions.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ShayCichocki/maestro/internal/exec"
	"github.com/ShayCichocki/maestro/internal/pipeline"
	"github.com/ShayCichocki/maestro/internal/prompt"
	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// DefaultTimeout bounds an execution-agent call. The agent is an external
// process; without a bound a hung process would stall the pipeline forever.
const DefaultTimeout = 10 * time.Minute

// DefaultBinary is the execution-agent CLI looked up on PATH.
const DefaultBinary = "claude"

// Config wires an execution Executor.
type Config struct {
	// Runner launches the agent process; tests substitute a double.
	Runner exec.ProcessRunner
	// Binary is the agent CLI name; defaults to DefaultBinary.
	Binary string
	// Defaults are the workflow-wide default settings.
	Defaults workflow.Defaults
	// ProjectRoot anchors relative working directories.
	ProjectRoot string
	// Timeout bounds each agent call; defaults to DefaultTimeout.
	Timeout time.Duration
	// Logger is the per-run debug log.
	Logger *pipeline.DebugLogger
}

// Executor runs execution-kind steps. It blocks only the issuing goroutine;
// sibling steps and sub-tasks are never stalled by it.
type Executor struct {
	runner      exec.ProcessRunner
	binary      string
	defaults    workflow.Defaults
	projectRoot string
	timeout     time.Duration
	logger      *pipeline.DebugLogger
}

// NewExecutor creates an execution-step executor.
func NewExecutor(cfg Config) *Executor {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &pipeline.DebugLogger{}
	}
	runner := cfg.Runner
	if runner == nil {
		runner = exec.NewRunner()
	}

	return &Executor{
		runner:      runner,
		binary:      binary,
		defaults:    cfg.Defaults,
		projectRoot: cfg.ProjectRoot,
		timeout:     timeout,
		logger:      logger,
	}
}

// Invoke builds the agent's launch specification, feeds it the assembled
// prompt on stdin, and normalizes its output per the configured encoding.
// A non-zero exit is fatal and carries the process's stderr verbatim.
func (e *Executor) Invoke(ctx context.Context, step *workflow.StepSpec, store *models.ResultStore) (*models.StepResult, error) {
	text, err := prompt.Build(step.Prompt, store)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	opts := step.ExecOptions
	args, format := e.buildArgs(opts)

	dir, err := e.resolveCwd(opts)
	if err != nil {
		return nil, err
	}

	e.logger.Log("execution prompt (step %s):\n%s", step.Name, text)

	start := time.Now()
	res, err := e.runner.Run(ctx, exec.Request{
		Name:    e.binary,
		Args:    args,
		Dir:     dir,
		Stdin:   text,
		Timeout: e.timeout,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &pipeline.TimeoutError{Step: step.Name, Collaborator: "execution", Timeout: e.timeout}
		}
		return nil, &pipeline.CollaboratorError{Step: step.Name, Collaborator: "execution", Err: err}
	}

	e.logger.Log("execution response (step %s, took %s):\n%s", step.Name, time.Since(start).Round(time.Millisecond), res.Stdout)

	if res.ExitCode != 0 {
		return nil, &pipeline.CollaboratorError{
			Step:         step.Name,
			Collaborator: "execution",
			Diagnostic:   string(res.Stderr),
			Err:          fmt.Errorf("exit status %d", res.ExitCode),
		}
	}

	payload, err := e.parseOutput(step.Name, format, res.Stdout)
	if err != nil {
		return nil, err
	}

	if step.OutputToFile != "" {
		if _, err := pipeline.SaveOutput(e.defaults.OutputDir, step.OutputToFile, payload); err != nil {
			return nil, err
		}
	}

	return &models.StepResult{
		StepName:  step.Name,
		Result:    payload,
		Timestamp: time.Now(),
		ModelUsed: e.binary,
	}, nil
}

// buildArgs derives the CLI argument list and the effective output format.
func (e *Executor) buildArgs(opts *workflow.ExecOptions) ([]string, string) {
	var args []string

	if opts.PrintMode() {
		args = append(args, "-p")
	}

	format := e.defaults.OutputFormat
	if opts != nil && opts.OutputFormat != "" {
		format = opts.OutputFormat
	}
	args = append(args, "--output-format", format)

	if opts != nil {
		if opts.MaxTurns > 0 {
			args = append(args, "--max-turns", strconv.Itoa(opts.MaxTurns))
		}
		if opts.Verbose {
			args = append(args, "--verbose")
		}
		if len(opts.AllowedTools) > 0 {
			args = append(args, "--allowedTools", strings.Join(opts.AllowedTools, " "))
		}
		if opts.AppendSystemPrompt != "" {
			args = append(args, "--append-system-prompt", opts.AppendSystemPrompt)
		}
	}

	return args, format
}

// resolveCwd resolves the step's working directory against the project root
// and creates it if absent.
func (e *Executor) resolveCwd(opts *workflow.ExecOptions) (string, error) {
	if opts == nil || opts.Cwd == "" {
		return "", nil
	}

	dir := opts.Cwd
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.projectRoot, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create working directory %s: %w", dir, err)
	}
	return dir, nil
}

// parseOutput decodes the agent's stdout per the output format.
func (e *Executor) parseOutput(stepName, format string, out []byte) (models.Payload, error) {
	if format == "json" {
		var payload models.Payload
		if err := json.Unmarshal(out, &payload); err != nil {
			return nil, &pipeline.CollaboratorError{
				Step:         stepName,
				Collaborator: "execution",
				Diagnostic:   string(out),
				Err:          fmt.Errorf("decode json output: %w", err),
			}
		}
		return payload, nil
	}
	return models.Payload{"text": string(out)}, nil
}

package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// RunRecorder receives run lifecycle notifications for persistence. A nil
// recorder disables run history.
type RunRecorder interface {
	// StartRun records that a pipeline run has begun.
	StartRun(runID, workflowName string) error
	// RecordStep records a step's terminal status within a run.
	RecordStep(runID, stepName string, kind models.StepKind, status models.StepStatus, modelUsed string) error
	// FinishRun records the run's terminal status and error, if any.
	FinishRun(runID string, status models.RunStatus, errMsg string) error
}

// StopSignal is polled between steps; when it reports true the run ends
// early with a canceled status. There is no mechanism to interrupt an
// already-dispatched step.
type StopSignal interface {
	ShouldStop() bool
}

// Config wires an Orchestrator.
type Config struct {
	// Definition is the immutable workflow to run.
	Definition *workflow.Definition
	// Executors maps each step kind to its collaborator executor.
	Executors map[models.StepKind]StepExecutor
	// Checkpoints writes result snapshots; required when the workflow
	// enables checkpointing.
	Checkpoints *CheckpointWriter
	// Logger is the per-run debug log.
	Logger *DebugLogger
	// Recorder persists run history; optional.
	Recorder RunRecorder
	// Stop is polled between steps; optional.
	Stop StopSignal
	// RunID identifies the run; generated when empty.
	RunID string
}

// Orchestrator drives one pipeline run: it sequences the declared steps,
// gates them by condition, dispatches to the kind-matching executor, records
// results and checkpoints state. It owns the ResultStore and mutates it only
// between step executions. A run aborts on the first failure; there is no
// retry and no continue-past-failure mode.
type Orchestrator struct {
	def         *workflow.Definition
	store       *models.ResultStore
	executors   map[models.StepKind]StepExecutor
	checkpoints *CheckpointWriter
	logger      *DebugLogger
	recorder    RunRecorder
	stop        StopSignal
	runID       string

	mu       sync.Mutex
	statuses map[string]models.StepStatus
}

// New creates an orchestrator for one run of the given workflow.
func New(cfg Config) *Orchestrator {
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.New().String()[:8]
	}

	logger := cfg.Logger
	if logger == nil {
		logger = &DebugLogger{}
	}

	statuses := make(map[string]models.StepStatus, len(cfg.Definition.Steps))
	for _, step := range cfg.Definition.Steps {
		statuses[step.Name] = models.StepStatusPending
	}

	return &Orchestrator{
		def:         cfg.Definition,
		store:       models.NewResultStore(),
		executors:   cfg.Executors,
		checkpoints: cfg.Checkpoints,
		logger:      logger,
		recorder:    cfg.Recorder,
		stop:        cfg.Stop,
		runID:       runID,
		statuses:    statuses,
	}
}

// RunID returns the identifier of this run.
func (o *Orchestrator) RunID() string { return o.runID }

// Store returns the orchestrator's result store.
func (o *Orchestrator) Store() *models.ResultStore { return o.store }

// StepStatus returns the current status of a declared step.
func (o *Orchestrator) StepStatus(name string) models.StepStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statuses[name]
}

func (o *Orchestrator) setStatus(name string, status models.StepStatus) {
	o.mu.Lock()
	o.statuses[name] = status
	o.mu.Unlock()
}

// Run executes the declared step sequence exactly once, top to bottom.
func (o *Orchestrator) Run(ctx context.Context) error {
	total := len(o.def.Steps)
	color.Cyan("Starting pipeline: %s (%d steps, run %s)", o.def.Name, total, o.runID)
	o.logger.Log("pipeline started: %s (run %s, %d steps)", o.def.Name, o.runID, total)

	if o.recorder != nil {
		if err := o.recorder.StartRun(o.runID, o.def.Name); err != nil {
			o.logger.Log("record run start: %v", err)
		}
	}

	for i := range o.def.Steps {
		step := &o.def.Steps[i]

		if err := o.checkInterrupt(ctx); err != nil {
			return err
		}

		if !EvaluateCondition(step.Condition, o.store) {
			o.setStatus(step.Name, models.StepStatusSkipped)
			o.recordStep(step, models.StepStatusSkipped, "")
			color.Yellow("Skipping step %d/%d: %s (condition not met)", i+1, total, step.Name)
			o.logger.Log("step %s skipped: condition %q not met", step.Name, step.Condition)
			continue
		}

		color.Cyan("Executing step %d/%d: %s [%s]", i+1, total, step.Name, step.Kind)
		o.logger.Log("step %s started (kind=%s)", step.Name, step.Kind)

		executor, ok := o.executors[step.Kind]
		if !ok {
			err := &workflow.ConfigError{Err: fmt.Errorf("no executor registered for step kind %q", step.Kind)}
			return o.failStep(step, err)
		}

		result, err := executor.Invoke(ctx, step, o.store)
		if err != nil {
			return o.failStep(step, err)
		}

		if err := o.store.Put(result); err != nil {
			return o.failStep(step, err)
		}
		o.setStatus(step.Name, models.StepStatusCompleted)
		o.recordStep(step, models.StepStatusCompleted, result.ModelUsed)

		if o.def.Defaults.CheckpointEnabled {
			path, err := o.checkpoints.Write(o.store)
			if err != nil {
				return o.failStep(step, fmt.Errorf("write checkpoint: %w", err))
			}
			o.logger.Log("checkpoint written: %s", path)
		}

		color.Green("Step %s completed", step.Name)
		o.logger.Log("step %s completed", step.Name)
	}

	o.finishRun(models.RunStatusCompleted, "")
	color.Green("Pipeline %s completed", o.def.Name)
	o.logger.Log("pipeline completed: %s", o.def.Name)
	return nil
}

// checkInterrupt handles context cancellation and stop signals between steps.
func (o *Orchestrator) checkInterrupt(ctx context.Context) error {
	select {
	case <-ctx.Done():
		o.finishRun(models.RunStatusCanceled, ctx.Err().Error())
		o.logger.Log("pipeline canceled: %v", ctx.Err())
		return ctx.Err()
	default:
	}

	if o.stop != nil && o.stop.ShouldStop() {
		o.finishRun(models.RunStatusCanceled, "stop signal received")
		o.logger.Log("pipeline canceled: stop signal received")
		return fmt.Errorf("pipeline %s canceled: stop signal received", o.def.Name)
	}
	return nil
}

// failStep marks the step and run failed and unwinds the loop. Artifacts
// already produced stay on disk for post-mortem inspection.
func (o *Orchestrator) failStep(step *workflow.StepSpec, cause error) error {
	o.setStatus(step.Name, models.StepStatusFailed)
	o.recordStep(step, models.StepStatusFailed, "")
	o.finishRun(models.RunStatusFailed, cause.Error())

	color.Red("Step %s failed: %v", step.Name, cause)
	o.logger.Log("step %s failed: %v", step.Name, cause)
	return fmt.Errorf("step %q failed: %w", step.Name, cause)
}

func (o *Orchestrator) recordStep(step *workflow.StepSpec, status models.StepStatus, modelUsed string) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordStep(o.runID, step.Name, step.Kind, status, modelUsed); err != nil {
		o.logger.Log("record step %s: %v", step.Name, err)
	}
}

func (o *Orchestrator) finishRun(status models.RunStatus, errMsg string) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.FinishRun(o.runID, status, errMsg); err != nil {
		o.logger.Log("record run finish: %v", err)
	}
}

package execution

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/maestro/internal/pipeline"
	"github.com/ShayCichocki/maestro/internal/prompt"
	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// ParallelExecutor fans a parallel_execution step out into independent
// execution-agent invocations, one goroutine per declared sub-task, and
// joins them all-or-nothing: any single failure fails the whole step and no
// combined result is stored.
type ParallelExecutor struct {
	exec   *Executor
	logger *pipeline.DebugLogger
}

// NewParallelExecutor creates a coordinator on top of an execution Executor.
func NewParallelExecutor(exec *Executor) *ParallelExecutor {
	return &ParallelExecutor{exec: exec, logger: exec.logger}
}

// Invoke launches every sub-task concurrently and waits for all of them.
// Sub-tasks see only the result store contents present at dispatch; their
// results are merged after the join. The combined payload carries a
// delimited transcript in declaration order plus a per-id result mapping.
func (p *ParallelExecutor) Invoke(ctx context.Context, step *workflow.StepSpec, store *models.ResultStore) (*models.StepResult, error) {
	tasks := step.Tasks
	p.logger.Log("parallel step %s: launching %d sub-tasks", step.Name, len(tasks))

	payloads := make([]models.Payload, len(tasks))
	errs := make([]error, len(tasks))

	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := subTaskSpec(&tasks[i])
			result, err := p.exec.Invoke(ctx, sub, store)
			if err != nil {
				errs[i] = fmt.Errorf("sub-task %q: %w", tasks[i].ID, err)
				return
			}
			payloads[i] = result.Result
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	segments := make([]string, 0, len(tasks)*2)
	individual := make(map[string]any, len(tasks))
	for i, task := range tasks {
		segments = append(segments, fmt.Sprintf("\n===[%s]===\n", task.ID))
		segments = append(segments, prompt.Stringify(payloads[i]))
		individual[task.ID] = payloads[i]
	}

	combined := models.Payload{
		"combined_results":   strings.Join(segments, "\n"),
		"individual_results": individual,
	}

	if step.OutputToFile != "" {
		if _, err := pipeline.SaveOutput(p.exec.defaults.OutputDir, step.OutputToFile, combined); err != nil {
			return nil, err
		}
	}

	return &models.StepResult{
		StepName:  step.Name,
		Result:    combined,
		Timestamp: time.Now(),
		ModelUsed: string(models.StepKindParallel),
	}, nil
}

// subTaskSpec adapts a sub-task declaration into an execution-kind step so
// it can reuse the single-step invocation path.
func subTaskSpec(task *workflow.SubTask) *workflow.StepSpec {
	return &workflow.StepSpec{
		Name:         task.ID,
		Kind:         models.StepKindExecution,
		Prompt:       task.Prompt,
		ExecOptions:  task.ExecOptions,
		OutputToFile: task.OutputToFile,
	}
}

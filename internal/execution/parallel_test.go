package execution

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ShayCichocki/maestro/internal/exec"
	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

func parallelStep(tasks ...workflow.SubTask) *workflow.StepSpec {
	return &workflow.StepSpec{
		Name:  "fanout",
		Kind:  models.StepKindParallel,
		Tasks: tasks,
	}
}

func subTask(id, promptText string) workflow.SubTask {
	return workflow.SubTask{
		ID:     id,
		Prompt: []workflow.PromptPart{{Type: workflow.PartStatic, Content: promptText}},
	}
}

func TestParallelInvoke_CombinesInDeclarationOrder(t *testing.T) {
	runner := newFakeRunner()
	runner.byStdin["first task"] = fakeResponse{result: &exec.Result{Stdout: []byte(`{"text":"alpha"}`)}}
	runner.byStdin["second task"] = fakeResponse{result: &exec.Result{Stdout: []byte(`{"text":"beta"}`)}}

	p := NewParallelExecutor(newTestExecutor(t, runner))
	step := parallelStep(subTask("t1", "first task"), subTask("t2", "second task"))

	result, err := p.Invoke(context.Background(), step, models.NewResultStore())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	combined, ok := result.Result["combined_results"].(string)
	if !ok {
		t.Fatalf("combined_results missing or not a string: %v", result.Result)
	}
	t1 := strings.Index(combined, "===[t1]===")
	t2 := strings.Index(combined, "===[t2]===")
	if t1 < 0 || t2 < 0 {
		t.Fatalf("combined transcript missing delimiters: %q", combined)
	}
	if t1 > t2 {
		t.Errorf("t1 delimiter after t2; transcript must follow declaration order: %q", combined)
	}
	if !strings.Contains(combined, "alpha") || !strings.Contains(combined, "beta") {
		t.Errorf("transcript missing sub-task payloads: %q", combined)
	}

	individual, ok := result.Result["individual_results"].(map[string]any)
	if !ok {
		t.Fatalf("individual_results missing: %v", result.Result)
	}
	if len(individual) != 2 {
		t.Fatalf("individual_results has %d entries, want 2", len(individual))
	}
	first, ok := individual["t1"].(models.Payload)
	if !ok {
		t.Fatalf("individual_results[t1] = %T, want Payload", individual["t1"])
	}
	if first.Text() != "alpha" {
		t.Errorf("t1 result = %q, want alpha", first.Text())
	}

	if result.ModelUsed != string(models.StepKindParallel) {
		t.Errorf("model used = %q, want %q", result.ModelUsed, models.StepKindParallel)
	}
}

func TestParallelInvoke_AnyFailureFailsStep(t *testing.T) {
	runner := newFakeRunner()
	runner.byStdin["good"] = fakeResponse{result: &exec.Result{Stdout: []byte(`{"text":"fine"}`)}}
	runner.byStdin["bad"] = fakeResponse{result: &exec.Result{Stderr: []byte("boom"), ExitCode: 1}}

	p := NewParallelExecutor(newTestExecutor(t, runner))
	step := parallelStep(subTask("ok", "good"), subTask("broken", "bad"))

	_, err := p.Invoke(context.Background(), step, models.NewResultStore())
	if err == nil {
		t.Fatal("Invoke returned nil, want error")
	}
	if !strings.Contains(err.Error(), `sub-task "broken"`) {
		t.Errorf("error = %q, want failing sub-task id", err)
	}
	// Both sub-tasks still ran; the join is all-or-nothing, not fail-fast.
	if len(runner.requests) != 2 {
		t.Errorf("runner saw %d requests, want both sub-tasks dispatched", len(runner.requests))
	}
}

func TestParallelInvoke_SubTaskTimeout(t *testing.T) {
	runner := newFakeRunner()
	runner.byStdin["slow"] = fakeResponse{err: context.DeadlineExceeded}

	p := NewParallelExecutor(newTestExecutor(t, runner))
	step := parallelStep(subTask("slow1", "slow"))

	_, err := p.Invoke(context.Background(), step, models.NewResultStore())
	if err == nil {
		t.Fatal("Invoke returned nil, want error")
	}
	if !errors.Is(err, context.DeadlineExceeded) && !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %q, want timeout context", err)
	}
}

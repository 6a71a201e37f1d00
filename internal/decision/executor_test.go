package decision

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ShayCichocki/maestro/internal/pipeline"
	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// fakeSender stands in for the Messages API. It records the params of every
// call and replays a canned response, optionally after a delay.
type fakeSender struct {
	params []anthropic.MessageNewParams
	resp   *anthropic.Message
	err    error
	delay  time.Duration
}

func (f *fakeSender) New(ctx context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = append(f.params, params)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.resp, f.err
}

// messageFixture decodes a wire-format response body so the content block
// unions behave exactly as they do on real responses.
func messageFixture(t *testing.T, body string) *anthropic.Message {
	t.Helper()
	var msg anthropic.Message
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		t.Fatalf("decode message fixture: %v", err)
	}
	return &msg
}

const textResponse = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-20250514",
	"content": [{"type": "text", "text": "the plan"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

const toolUseResponse = `{
	"id": "msg_02",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-20250514",
	"content": [
		{"type": "text", "text": "creating the plan"},
		{"type": "tool_use", "id": "tu_01", "name": "create_plan", "input": {"steps": ["design", "build"]}}
	],
	"stop_reason": "tool_use",
	"usage": {"input_tokens": 20, "output_tokens": 8}
}`

const emptyResponse = `{
	"id": "msg_03",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-20250514",
	"content": [],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 3, "output_tokens": 0}
}`

func testClient() *Client {
	return &Client{model: "client-default-model", tracker: NewTokenTracker()}
}

func newTestExecutor(cfg ExecutorConfig, sender messageSender) *Executor {
	if cfg.Client == nil {
		cfg.Client = testClient()
	}
	e := NewExecutor(cfg)
	e.sender = sender
	return e
}

func decisionStep(name, text string) *workflow.StepSpec {
	return &workflow.StepSpec{
		Name:   name,
		Kind:   models.StepKindDecision,
		Prompt: []workflow.PromptPart{{Type: workflow.PartStatic, Content: text}},
	}
}

func TestInvoke_TextResponse(t *testing.T) {
	sender := &fakeSender{resp: messageFixture(t, textResponse)}
	client := testClient()
	e := newTestExecutor(ExecutorConfig{Client: client}, sender)

	result, err := e.Invoke(context.Background(), decisionStep("plan", "make a plan"), models.NewResultStore())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if result.Result.Text() != "the plan" {
		t.Errorf("text = %q, want the plan", result.Result.Text())
	}
	if _, isCall := result.Result.FunctionCall(); isCall {
		t.Error("text response reported a function call")
	}

	in, out := client.Tracker().Total()
	if in != 10 || out != 5 {
		t.Errorf("tracked tokens = %d/%d, want 10/5", in, out)
	}
	if client.Tracker().Calls() != 1 {
		t.Errorf("tracked calls = %d, want 1", client.Tracker().Calls())
	}
}

func TestInvoke_ToolUseResponse(t *testing.T) {
	sender := &fakeSender{resp: messageFixture(t, toolUseResponse)}
	e := newTestExecutor(ExecutorConfig{}, sender)

	result, err := e.Invoke(context.Background(), decisionStep("plan", "make a plan"), models.NewResultStore())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	name, isCall := result.Result.FunctionCall()
	if !isCall || name != "create_plan" {
		t.Fatalf("function call = %q/%v, want create_plan", name, isCall)
	}

	args := result.Result.Args()
	steps, ok := args["steps"].([]any)
	if !ok || len(steps) != 2 {
		t.Errorf("args = %v, want decoded steps list", args)
	}
	if result.Result.Text() != "creating the plan" {
		t.Errorf("accompanying text = %q, want creating the plan", result.Result.Text())
	}
}

func TestInvoke_NoContentSubstitutesSentinel(t *testing.T) {
	sender := &fakeSender{resp: messageFixture(t, emptyResponse)}
	e := newTestExecutor(ExecutorConfig{}, sender)

	result, err := e.Invoke(context.Background(), decisionStep("plan", "x"), models.NewResultStore())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Result.Text() != pipeline.NoContentSentinel {
		t.Errorf("text = %q, want sentinel %q", result.Result.Text(), pipeline.NoContentSentinel)
	}
}

func TestInvoke_APIErrorIsCollaboratorError(t *testing.T) {
	sender := &fakeSender{err: errors.New("overloaded")}
	e := newTestExecutor(ExecutorConfig{}, sender)

	_, err := e.Invoke(context.Background(), decisionStep("plan", "x"), models.NewResultStore())

	var collErr *pipeline.CollaboratorError
	if !errors.As(err, &collErr) {
		t.Fatalf("error %v is not a CollaboratorError", err)
	}
	if collErr.Collaborator != "decision" {
		t.Errorf("collaborator = %q, want decision", collErr.Collaborator)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	sender := &fakeSender{resp: messageFixture(t, textResponse), delay: 200 * time.Millisecond}
	e := newTestExecutor(ExecutorConfig{Timeout: 20 * time.Millisecond}, sender)

	_, err := e.Invoke(context.Background(), decisionStep("plan", "x"), models.NewResultStore())

	var toErr *pipeline.TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("error %v is not a TimeoutError", err)
	}
	if toErr.Timeout != 20*time.Millisecond {
		t.Errorf("timeout = %s, want 20ms", toErr.Timeout)
	}
}

func TestInvoke_ModelResolution(t *testing.T) {
	tests := []struct {
		name         string
		stepModel    string
		defaultModel string
		want         string
	}{
		{"step override wins", "step-model", "workflow-model", "step-model"},
		{"workflow default next", "", "workflow-model", "workflow-model"},
		{"client default last", "", "", "client-default-model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{resp: messageFixture(t, textResponse)}
			e := newTestExecutor(ExecutorConfig{
				Defaults: workflow.Defaults{Model: tt.defaultModel},
			}, sender)

			step := decisionStep("plan", "x")
			step.Model = tt.stepModel

			result, err := e.Invoke(context.Background(), step, models.NewResultStore())
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if result.ModelUsed != tt.want {
				t.Errorf("ModelUsed = %q, want %q", result.ModelUsed, tt.want)
			}
			if string(sender.params[0].Model) != tt.want {
				t.Errorf("params.Model = %q, want %q", sender.params[0].Model, tt.want)
			}
		})
	}
}

func TestInvoke_GenerationOptionsMergeIntoParams(t *testing.T) {
	sender := &fakeSender{resp: messageFixture(t, textResponse)}

	defaultMax, defaultTemp := 2048, 0.7
	stepTemp, stepTopK := 0.1, 40

	e := newTestExecutor(ExecutorConfig{
		Defaults: workflow.Defaults{
			GenerationOptions: workflow.GenerationOptions{
				MaxOutputTokens: &defaultMax,
				Temperature:     &defaultTemp,
			},
		},
	}, sender)

	step := decisionStep("plan", "x")
	step.GenerationOptions = &workflow.GenerationOptions{
		Temperature: &stepTemp,
		TopK:        &stepTopK,
	}

	if _, err := e.Invoke(context.Background(), step, models.NewResultStore()); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	params := sender.params[0]
	if params.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want workflow default 2048", params.MaxTokens)
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0.1 {
		t.Errorf("Temperature = %v, want step override 0.1", params.Temperature)
	}
	if !params.TopK.Valid() || params.TopK.Value != 40 {
		t.Errorf("TopK = %v, want step override 40", params.TopK)
	}
	if params.TopP.Valid() {
		t.Errorf("TopP = %v, want unset", params.TopP)
	}
}

func TestInvoke_AttachesDeclaredFunctions(t *testing.T) {
	sender := &fakeSender{resp: messageFixture(t, toolUseResponse)}
	e := newTestExecutor(ExecutorConfig{
		Functions: map[string]workflow.FunctionSpec{
			"create_plan": {
				Description: "Create a plan",
				Parameters: map[string]any{
					"properties": map[string]any{"steps": map[string]any{"type": "array"}},
					"required":   []any{"steps"},
				},
			},
		},
	}, sender)

	step := decisionStep("plan", "x")
	step.Functions = []string{"create_plan"}

	if _, err := e.Invoke(context.Background(), step, models.NewResultStore()); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	tools := sender.params[0].Tools
	if len(tools) != 1 {
		t.Fatalf("params carry %d tools, want 1", len(tools))
	}
	if tools[0].OfTool == nil || tools[0].OfTool.Name != "create_plan" {
		t.Errorf("tool = %+v, want create_plan", tools[0])
	}
	if len(tools[0].OfTool.InputSchema.Required) != 1 {
		t.Errorf("required = %v, want [steps]", tools[0].OfTool.InputSchema.Required)
	}
}

func TestInvoke_SessionGrowsAcrossSteps(t *testing.T) {
	sender := &fakeSender{resp: messageFixture(t, textResponse)}
	session := NewSession()
	e := newTestExecutor(ExecutorConfig{Session: session}, sender)

	store := models.NewResultStore()
	if _, err := e.Invoke(context.Background(), decisionStep("plan", "first"), store); err != nil {
		t.Fatalf("first Invoke: %v", err)
	}
	if session.Turns() != 2 {
		t.Fatalf("session turns after first step = %d, want 2", session.Turns())
	}

	if _, err := e.Invoke(context.Background(), decisionStep("review", "second"), store); err != nil {
		t.Fatalf("second Invoke: %v", err)
	}
	if session.Turns() != 4 {
		t.Errorf("session turns after second step = %d, want 4", session.Turns())
	}

	// The second call must carry the full history plus the new prompt.
	if got := len(sender.params[1].Messages); got != 3 {
		t.Errorf("second call carried %d messages, want 3", got)
	}
}

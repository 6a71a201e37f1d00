package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/fatih/color"

	"github.com/ShayCichocki/maestro/internal/pipeline"
	"github.com/ShayCichocki/maestro/internal/prompt"
	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// DefaultTimeout bounds a decision-agent call so it cannot stall the
// pipeline indefinitely.
const DefaultTimeout = 30 * time.Second

// defaultMaxTokens is used when no generation options set an output bound.
const defaultMaxTokens = 8192

// messageSender is the slice of the Anthropic SDK the executor depends on,
// so tests can substitute a double.
type messageSender interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// ExecutorConfig wires a decision Executor.
type ExecutorConfig struct {
	// Client is the Anthropic API client.
	Client *Client
	// Session is the run's conversational context, owned by the caller.
	Session *Session
	// Defaults are the workflow-wide default settings.
	Defaults workflow.Defaults
	// Functions is the workflow's callable function registry.
	Functions map[string]workflow.FunctionSpec
	// Timeout bounds each call; defaults to DefaultTimeout.
	Timeout time.Duration
	// Logger is the per-run debug log.
	Logger *pipeline.DebugLogger
}

// Executor runs decision-kind steps against the Anthropic Messages API.
// Each call is offloaded to its own goroutine and bounded by a fixed
// timeout; exceeding it fails the step and the run.
type Executor struct {
	client    *Client
	sender    messageSender
	session   *Session
	defaults  workflow.Defaults
	functions map[string]workflow.FunctionSpec
	timeout   time.Duration
	logger    *pipeline.DebugLogger
}

// NewExecutor creates a decision-step executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &pipeline.DebugLogger{}
	}
	session := cfg.Session
	if session == nil {
		session = NewSession()
	}

	e := &Executor{
		client:    cfg.Client,
		session:   session,
		defaults:  cfg.Defaults,
		functions: cfg.Functions,
		timeout:   timeout,
		logger:    logger,
	}
	if cfg.Client != nil {
		e.sender = &cfg.Client.sdk().Messages
	}
	return e
}

// Invoke resolves the model and generation options, makes the bounded API
// call, and normalizes the response into a StepResult.
func (e *Executor) Invoke(ctx context.Context, step *workflow.StepSpec, store *models.ResultStore) (*models.StepResult, error) {
	text, err := prompt.Build(step.Prompt, store)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	model := e.resolveModel(step)
	params := e.buildParams(step, model, text)

	e.logger.Log("decision prompt (step %s, model %s):\n%s", step.Name, model, text)

	resp, err := e.call(ctx, step.Name, params)
	if err != nil {
		return nil, err
	}

	e.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	payload, assistantBlocks := normalize(resp)
	if payload.Text() == "" {
		if _, isCall := payload.FunctionCall(); !isCall {
			warning := &pipeline.PartialContentWarning{Step: step.Name}
			color.Yellow("Warning: %v", warning)
			e.logger.Log("warning: %v", warning)
			payload["text"] = pipeline.NoContentSentinel
		}
	}

	e.logger.Log("decision response (step %s):\n%s", step.Name, prompt.Stringify(payload))

	e.session.Append(text, assistantBlocks)

	if step.OutputToFile != "" {
		if _, err := pipeline.SaveOutput(e.defaults.OutputDir, step.OutputToFile, payload); err != nil {
			return nil, err
		}
	}

	return &models.StepResult{
		StepName:  step.Name,
		Result:    payload,
		Timestamp: time.Now(),
		ModelUsed: string(model),
	}, nil
}

// call runs the API request in its own goroutine so the timeout is enforced
// even if the transport blocks.
func (e *Executor) call(ctx context.Context, stepName string, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type callResult struct {
		resp *anthropic.Message
		err  error
	}
	ch := make(chan callResult, 1)

	go func() {
		resp, err := e.sender.New(ctx, params)
		ch <- callResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &pipeline.TimeoutError{Step: stepName, Collaborator: "decision", Timeout: e.timeout}
		}
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return nil, &pipeline.TimeoutError{Step: stepName, Collaborator: "decision", Timeout: e.timeout}
			}
			return nil, &pipeline.CollaboratorError{Step: stepName, Collaborator: "decision", Err: res.err}
		}
		return res.resp, nil
	}
}

// resolveModel picks the step override, then the workflow default, then the
// client default.
func (e *Executor) resolveModel(step *workflow.StepSpec) anthropic.Model {
	if step.Model != "" {
		return anthropic.Model(step.Model)
	}
	if e.defaults.Model != "" {
		return anthropic.Model(e.defaults.Model)
	}
	return e.client.Model()
}

// buildParams merges the two generation-option layers per key and attaches
// the function declarations the step names.
func (e *Executor) buildParams(step *workflow.StepSpec, model anthropic.Model, text string) anthropic.MessageNewParams {
	opts := e.defaults.GenerationOptions.Merge(step.GenerationOptions)

	maxTokens := int64(defaultMaxTokens)
	if opts.MaxOutputTokens != nil {
		maxTokens = int64(*opts.MaxOutputTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  e.session.Messages(text),
		Tools:     toolDefinitions(step.Functions, e.functions),
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = anthropic.Float(*opts.TopP)
	}
	if opts.TopK != nil {
		params.TopK = anthropic.Int(int64(*opts.TopK))
	}
	return params
}

// normalize converts the response content into the step payload and the
// assistant blocks recorded in the session. A tool-use block wins over plain
// text: the payload becomes a function invocation with any accompanying
// text attached.
func normalize(resp *anthropic.Message) (models.Payload, []anthropic.ContentBlockParamUnion) {
	var (
		textParts []string
		blocks    []anthropic.ContentBlockParamUnion
		funcName  string
		funcArgs  map[string]any
	)

	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
			blocks = append(blocks, anthropic.NewTextBlock(variant.Text))

		case anthropic.ToolUseBlock:
			if funcName == "" {
				funcName = variant.Name
				funcArgs = decodeArgs(variant.Input)
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))
		}
	}

	text := joinText(textParts)
	if funcName != "" {
		return models.Payload{
			"function_call": funcName,
			"args":          funcArgs,
			"text":          text,
		}, blocks
	}
	return models.Payload{"text": text}, blocks
}

func decodeArgs(input json.RawMessage) map[string]any {
	args := make(map[string]any)
	if len(input) > 0 {
		// A malformed args object degrades to the empty mapping.
		_ = json.Unmarshal(input, &args)
	}
	return args
}

func joinText(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}

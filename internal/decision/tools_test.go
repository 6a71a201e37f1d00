package decision

import (
	"testing"

	"github.com/ShayCichocki/maestro/internal/workflow"
)

func TestToolDefinitions(t *testing.T) {
	registry := map[string]workflow.FunctionSpec{
		"create_plan": {
			Description: "Create a plan",
			Parameters: map[string]any{
				"properties": map[string]any{
					"steps": map[string]any{"type": "array"},
				},
				"required": []any{"steps"},
			},
		},
		"approve": {
			Description: "Approve or reject",
			Parameters: map[string]any{
				"properties": map[string]any{
					"approved": map[string]any{"type": "boolean"},
				},
			},
		},
	}

	tools := toolDefinitions([]string{"create_plan", "approve"}, registry)
	if len(tools) != 2 {
		t.Fatalf("toolDefinitions count = %d, want 2", len(tools))
	}

	for i, want := range []string{"create_plan", "approve"} {
		if tools[i].OfTool == nil {
			t.Fatalf("tool %d has nil OfTool", i)
		}
		if tools[i].OfTool.Name != want {
			t.Errorf("tool %d name = %q, want %q", i, tools[i].OfTool.Name, want)
		}
	}

	plan := tools[0].OfTool
	if len(plan.InputSchema.Required) != 1 || plan.InputSchema.Required[0] != "steps" {
		t.Errorf("create_plan required = %v, want [steps]", plan.InputSchema.Required)
	}
	if _, ok := plan.InputSchema.Properties.(map[string]any); !ok {
		t.Errorf("create_plan properties = %T, want map", plan.InputSchema.Properties)
	}

	if got := len(tools[1].OfTool.InputSchema.Required); got != 0 {
		t.Errorf("approve required count = %d, want 0", got)
	}
}

func TestToolDefinitions_Empty(t *testing.T) {
	if tools := toolDefinitions(nil, nil); tools != nil {
		t.Errorf("toolDefinitions(nil) = %v, want nil", tools)
	}
}

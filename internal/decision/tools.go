package decision

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/maestro/internal/workflow"
)

// toolDefinitions translates the step's declared function names into
// Anthropic tool schemas, drawn from the workflow's function registry.
// Names missing from the registry are rejected at load time.
func toolDefinitions(names []string, registry map[string]workflow.FunctionSpec) []anthropic.ToolUnionParam {
	if len(names) == 0 {
		return nil
	}

	tools := make([]anthropic.ToolUnionParam, 0, len(names))
	for _, name := range names {
		spec, ok := registry[name]
		if !ok {
			continue
		}

		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := spec.Parameters["properties"].(map[string]any); ok {
			schema.Properties = props
		}
		if req, ok := spec.Parameters["required"].([]any); ok {
			required := make([]string, 0, len(req))
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
			schema.Required = required
		}

		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        name,
				Description: anthropic.String(spec.Description),
				InputSchema: schema,
			},
		})
	}
	return tools
}

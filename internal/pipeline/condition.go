package pipeline

import (
	"strings"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// EvaluateCondition decides whether a step runs. An empty expression always
// passes. The expression form is "<step>.<field>": the step must already
// have a recorded result and the named field of it must be truthy. A step
// without a result (skipped or not yet run) evaluates false.
//
// Malformed expressions are rejected by the workflow loader; if one slips
// through it evaluates true, matching the historical fail-open behavior.
func EvaluateCondition(expr string, store *models.ResultStore) bool {
	if expr == "" {
		return true
	}

	parts := strings.Split(expr, ".")
	if len(parts) != 2 {
		return true
	}

	stepName, fieldName := parts[0], parts[1]
	result, ok := store.Get(stepName)
	if !ok {
		return false
	}

	value, ok := result.Result[fieldName]
	if !ok {
		return false
	}
	return truthy(value)
}

// truthy mirrors loose boolean conversion over decoded JSON/YAML values.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

// Package prompt assembles step prompts from their declared parts.
package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Build assembles the prompt text for a step by concatenating its parts in
// order, joined by newlines. Static parts contribute their literal content,
// file parts the referenced file's content, and previous_result parts the
// stringified prior result (or one field of it). A missing prior result
// contributes an empty segment; an unreadable file is fatal for the step.
//
// Prompts are rebuilt fresh for every invocation since the store may have
// grown between steps.
func Build(parts []workflow.PromptPart, store *models.ResultStore) (string, error) {
	segments := make([]string, 0, len(parts))

	for _, part := range parts {
		switch part.Type {
		case workflow.PartStatic:
			segments = append(segments, part.Content)

		case workflow.PartFile:
			data, err := os.ReadFile(part.Path)
			if err != nil {
				return "", fmt.Errorf("read prompt file %s: %w", part.Path, err)
			}
			segments = append(segments, string(data))

		case workflow.PartPreviousResult:
			result, ok := store.Get(part.Step)
			if !ok {
				segments = append(segments, "")
				continue
			}
			value := any(result.Result)
			if part.Field != "" {
				value = result.Result.Field(part.Field)
			}
			segments = append(segments, Stringify(value))

		default:
			// Unknown types are rejected at load time.
			return "", fmt.Errorf("unknown prompt part type %q", part.Type)
		}
	}

	return strings.Join(segments, "\n"), nil
}

// Stringify converts a result value to prompt text. Strings pass through
// unchanged; everything else is rendered as JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

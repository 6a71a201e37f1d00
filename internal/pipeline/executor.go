package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// StepExecutor invokes one kind of external collaborator for a step and
// normalizes its response. The orchestrator dispatches to the executor
// registered for the step's kind; executors read the result store to build
// prompts but never write to it.
type StepExecutor interface {
	Invoke(ctx context.Context, step *workflow.StepSpec, store *models.ResultStore) (*models.StepResult, error)
}

// SaveOutput persists a step result under the output directory, creating
// parent directories as needed. Structured data is pretty-printed JSON,
// plain strings are written raw.
func SaveOutput(outputDir, filename string, data any) (string, error) {
	path := filepath.Join(outputDir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	var content []byte
	switch v := data.(type) {
	case string:
		content = []byte(v)
	default:
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal output: %w", err)
		}
		content = encoded
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}

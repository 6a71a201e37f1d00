package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// CheckpointWriter persists full ResultStore snapshots to timestamp-named
// JSON files. Checkpoints are write-only artifacts for post-mortem
// inspection; the orchestrator never reads them back.
type CheckpointWriter struct {
	dir string
	seq int
	now func() time.Time
}

// NewCheckpointWriter creates a writer targeting the given directory.
// The directory is created on first write.
func NewCheckpointWriter(dir string) *CheckpointWriter {
	return &CheckpointWriter{dir: dir, now: time.Now}
}

// checkpointEntry is the serialized form of one completed step.
type checkpointEntry struct {
	Result    models.Payload `json:"result"`
	Timestamp string         `json:"timestamp"`
	ModelUsed string         `json:"model_used"`
}

// checkpointDoc is the serialized snapshot document.
type checkpointDoc struct {
	Results map[string]checkpointEntry `json:"results"`
}

// Write serializes the store's current contents to a new snapshot file and
// returns its path. Each call produces a distinct file; later snapshots are
// supersets of earlier ones since the store only grows.
func (w *CheckpointWriter) Write(store *models.ResultStore) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create checkpoint directory: %w", err)
	}

	doc := checkpointDoc{Results: make(map[string]checkpointEntry)}
	for name, result := range store.Snapshot() {
		doc.Results[name] = checkpointEntry{
			Result:    result.Result,
			Timestamp: result.Timestamp.Format(time.RFC3339),
			ModelUsed: result.ModelUsed,
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint: %w", err)
	}

	// The sequence number keeps filenames unique when two steps complete
	// within the same second.
	w.seq++
	name := fmt.Sprintf("checkpoint_%s_%03d.json", w.now().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	return path, nil
}

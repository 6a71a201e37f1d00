package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// Run is one recorded pipeline run.
type Run struct {
	ID           string           `json:"id"`
	WorkflowName string           `json:"workflow_name"`
	Status       models.RunStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   *time.Time       `json:"finished_at,omitempty"`
}

// RunStep is one recorded step outcome within a run.
type RunStep struct {
	RunID      string            `json:"run_id"`
	StepName   string            `json:"step_name"`
	Kind       models.StepKind   `json:"kind"`
	Status     models.StepStatus `json:"status"`
	ModelUsed  string            `json:"model_used,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// StartRun records that a pipeline run has begun.
func (db *DB) StartRun(runID, workflowName string) error {
	_, err := db.Exec(`
		INSERT INTO runs (id, workflow_name, status, started_at)
		VALUES (?, ?, ?, ?)
	`, runID, workflowName, string(models.RunStatusRunning), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// RecordStep records a step's terminal status within a run. Re-recording a
// step replaces its row; the run loop only reports terminal states.
func (db *DB) RecordStep(runID, stepName string, kind models.StepKind, status models.StepStatus, modelUsed string) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO run_steps (run_id, step_name, kind, status, model_used, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, stepName, string(kind), string(status), modelUsed, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// FinishRun records the run's terminal status and error, if any.
func (db *DB) FinishRun(runID string, status models.RunStatus, errMsg string) error {
	_, err := db.Exec(`
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, string(status), errMsg, formatTime(time.Now()), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID, or nil if absent.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, workflow_name, status, COALESCE(error, ''), started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	var r Run
	var status, startedAt string
	var finishedAt sql.NullString
	err := row.Scan(&r.ID, &r.WorkflowName, &status, &r.Error, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	r.Status = models.RunStatus(status)
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}

// ListRuns lists recorded runs, most recent first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, workflow_name, status, COALESCE(error, ''), started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status, startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.WorkflowName, &status, &r.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = models.RunStatus(status)
		r.StartedAt, _ = parseTime(startedAt)
		r.FinishedAt = parseNullableTime(finishedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListRunSteps lists the recorded step outcomes of a run in recording order.
func (db *DB) ListRunSteps(runID string) ([]RunStep, error) {
	rows, err := db.Query(`
		SELECT run_id, step_name, kind, status, COALESCE(model_used, ''), recorded_at
		FROM run_steps WHERE run_id = ? ORDER BY recorded_at
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run steps: %w", err)
	}
	defer rows.Close()

	var steps []RunStep
	for rows.Next() {
		var s RunStep
		var kind, status, recordedAt string
		if err := rows.Scan(&s.RunID, &s.StepName, &kind, &status, &s.ModelUsed, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan run step: %w", err)
		}
		s.Kind = models.StepKind(kind)
		s.Status = models.StepStatus(status)
		s.RecordedAt, _ = parseTime(recordedAt)
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// parseNullableTime parses a nullable time string from SQLite.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}

package pipeline

import (
	"fmt"
	"time"
)

// CollaboratorError indicates a collaborator call failed: a non-zero process
// exit, an API failure, or a malformed response. The original diagnostic is
// preserved verbatim for post-mortem inspection.
type CollaboratorError struct {
	// Step is the name of the failing step or sub-task.
	Step string
	// Collaborator identifies which agent failed ("decision" or "execution").
	Collaborator string
	// Diagnostic carries the raw diagnostic output, such as process stderr.
	Diagnostic string
	// Err is the underlying cause, if any.
	Err error
}

func (e *CollaboratorError) Error() string {
	msg := fmt.Sprintf("%s agent failed in step %q", e.Collaborator, e.Step)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// TimeoutError indicates a collaborator call exceeded its time bound.
type TimeoutError struct {
	// Step is the name of the step that timed out.
	Step string
	// Collaborator identifies which agent timed out.
	Collaborator string
	// Timeout is the bound that was exceeded.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s agent call in step %q timed out after %s", e.Collaborator, e.Step, e.Timeout)
}

// PartialContentWarning records that a successful call produced no
// extractable text and a sentinel value was substituted. It is non-fatal:
// the run continues.
type PartialContentWarning struct {
	// Step is the step whose response had no extractable text.
	Step string
}

func (w *PartialContentWarning) Error() string {
	return fmt.Sprintf("step %q: no text content in response, substituting placeholder", w.Step)
}

// NoContentSentinel is stored as the result text when a successful call
// yields no extractable content.
const NoContentSentinel = "No text content available"

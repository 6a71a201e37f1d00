// Package exec provides an interface for running external processes.
package exec

import (
	"context"
	"time"
)

// Request describes one external process invocation: the command line, the
// working directory, the text supplied on stdin and an upper time bound.
type Request struct {
	// Name is the binary to run.
	Name string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Stdin is written to the process's standard input.
	Stdin string
	// Timeout bounds the call; zero means no bound beyond ctx.
	Timeout time.Duration
}

// Result captures a finished process's output streams and exit status.
type Result struct {
	// Stdout is the captured standard output.
	Stdout []byte
	// Stderr is the captured diagnostic output.
	Stderr []byte
	// ExitCode is the process exit status.
	ExitCode int
}

// ProcessRunner runs external processes. The error return covers failures
// to launch or a deadline being exceeded; a process that starts and exits
// non-zero yields a nil error with the code in Result.ExitCode.
// This abstraction allows substituting a test double for the execution
// agent without touching the orchestrator.
type ProcessRunner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

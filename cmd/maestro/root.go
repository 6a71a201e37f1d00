package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// CheckExecutionCLI verifies that the execution-agent CLI is available in
// PATH. Returns an error with installation instructions if not found.
func CheckExecutionCLI(binary string) error {
	_, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%s CLI not found in PATH\n\n"+
			"Maestro drives execution steps through the Claude Code CLI.\n\n"+
			"Install it with:\n"+
			"  npm install -g @anthropic-ai/claude-code\n\n"+
			"For more information, visit:\n"+
			"  https://docs.anthropic.com/en/docs/claude-code", binary)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "maestro <workflow.yaml>",
	Short: "Decision/execution pipeline orchestrator",
	Long: `Maestro coordinates multi-step workflows between two collaborators:
a decision agent (Anthropic API) that plans and evaluates, and an execution
agent (Claude Code CLI) that carries out concrete actions.

Steps run in declared order, gated by conditions over prior results, with
parallel fan-out for execution sub-tasks, per-step checkpoints, and a full
debug log per run.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(args[0])
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}

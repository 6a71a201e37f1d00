package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>",
	Short: "Validate a workflow definition without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := workflow.Load(args[0])
		if err != nil {
			return err
		}

		color.Green("Workflow %q is valid (%d steps)", def.Name, len(def.Steps))
		for i, step := range def.Steps {
			line := color.New(color.FgWhite)
			if step.Condition != "" {
				line.Printf("  %d. %s [%s] (when %s)\n", i+1, step.Name, step.Kind, step.Condition)
			} else {
				line.Printf("  %d. %s [%s]\n", i+1, step.Name, step.Kind)
			}
		}
		return nil
	},
}

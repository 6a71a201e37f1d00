package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/state"
	"github.com/ShayCichocki/maestro/pkg/models"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectRoot, err := os.Getwd()
		if err != nil {
			return err
		}

		db, err := state.OpenProject(projectRoot)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return err
		}

		runs, err := db.ListRuns(runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, run := range runs {
			statusColor := color.New(color.FgWhite)
			switch run.Status {
			case models.RunStatusCompleted:
				statusColor = color.New(color.FgGreen)
			case models.RunStatusFailed:
				statusColor = color.New(color.FgRed)
			case models.RunStatusCanceled:
				statusColor = color.New(color.FgYellow)
			}

			fmt.Printf("%s  %-20s  %s  %s",
				run.ID,
				run.WorkflowName,
				statusColor.Sprint(run.Status),
				run.StartedAt.Local().Format(time.RFC3339))
			if run.Error != "" {
				fmt.Printf("  (%s)", run.Error)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")
}

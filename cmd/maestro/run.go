package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"

	"github.com/ShayCichocki/maestro/internal/config"
	"github.com/ShayCichocki/maestro/internal/decision"
	"github.com/ShayCichocki/maestro/internal/execution"
	"github.com/ShayCichocki/maestro/internal/notify"
	"github.com/ShayCichocki/maestro/internal/pipeline"
	"github.com/ShayCichocki/maestro/internal/state"
	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// runPipeline executes the workflow at the given path, wiring one
// orchestrator, one decision session and one set of executors per run.
func runPipeline(workflowPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The decision-agent credential must be present before any step runs;
	// bail out before creating any directories or logs.
	apiKey := ""
	if !cfg.Anthropic.UseBedrock {
		apiKey, err = config.GetAPIKey(cfg)
		if err != nil {
			return fmt.Errorf("%w\n\nSet the ANTHROPIC_API_KEY environment variable or add it to %s",
				err, "~/.config/maestro/config.yaml")
		}
	}

	def, err := workflow.Load(workflowPath)
	if err != nil {
		return err
	}

	if err := CheckExecutionCLI(cfg.Execution.Binary); err != nil {
		return err
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	if err := os.MkdirAll(def.Defaults.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if def.Defaults.WorkspaceDir != "" {
		if err := os.MkdirAll(def.Defaults.WorkspaceDir, 0755); err != nil {
			return fmt.Errorf("create workspace directory: %w", err)
		}
	}

	logger, err := pipeline.NewDebugLoggerForRun(def.Defaults.OutputDir)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Log("workflow file: %s", workflowPath)

	client, err := decision.NewClient(decision.ClientConfig{
		Model:         anthropic.Model(def.Defaults.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
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

	signals, err := notify.NewManager(projectRoot)
	if err != nil {
		return err
	}
	defer signals.Close()
	if err := signals.ClearSignals(); err != nil {
		return err
	}

	execExecutor := execution.NewExecutor(execution.Config{
		Binary:      cfg.Execution.Binary,
		Defaults:    def.Defaults,
		ProjectRoot: projectRoot,
		Timeout:     cfg.Timeouts.Execution,
		Logger:      logger,
	})

	decisionExecutor := decision.NewExecutor(decision.ExecutorConfig{
		Client:    client,
		Session:   decision.NewSession(),
		Defaults:  def.Defaults,
		Functions: def.Functions,
		Timeout:   cfg.Timeouts.Decision,
		Logger:    logger,
	})

	orch := pipeline.New(pipeline.Config{
		Definition: def,
		Executors: map[models.StepKind]pipeline.StepExecutor{
			models.StepKindDecision:  decisionExecutor,
			models.StepKindExecution: execExecutor,
			models.StepKindParallel:  execution.NewParallelExecutor(execExecutor),
		},
		Checkpoints: pipeline.NewCheckpointWriter(def.Defaults.CheckpointDir),
		Logger:      logger,
		Recorder:    db,
		Stop:        signals,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := orch.Run(ctx)

	if in, out := client.Tracker().Total(); in+out > 0 {
		color.White("Decision-agent tokens: %d in / %d out over %d calls", in, out, client.Tracker().Calls())
	}
	fmt.Printf("Debug log: %s\n", logger.Path())

	return runErr
}

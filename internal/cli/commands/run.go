package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"nbtp/internal/catalog"
	"nbtp/internal/config"
	"nbtp/internal/domain"
	"nbtp/internal/execution"
	"nbtp/internal/logger"
	"nbtp/internal/parser"
	"nbtp/internal/session"
	"nbtp/internal/storage"
	"nbtp/internal/ui"
	"nbtp/pkg/collect"
)

// RunCommand handles the run command
type RunCommand struct {
	config    *config.Config
	catalog   *catalog.Catalog
	scheduler execution.Scheduler
	parser    *parser.PapermillParser
	storage   storage.Storage
	formatter *ui.Formatter
	viewer    ui.Viewer
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	cfg *config.Config,
	cat *catalog.Catalog,
	scheduler execution.Scheduler,
	parser *parser.PapermillParser,
	st storage.Storage,
	formatter *ui.Formatter,
	viewer ui.Viewer,
) *RunCommand {
	return &RunCommand{
		config:    cfg,
		catalog:   cat,
		scheduler: scheduler,
		parser:    parser,
		storage:   st,
		formatter: formatter,
		viewer:    viewer,
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	log := logger.L()
	runID := uuid.NewString()
	log.Info("run.start", "run_id", runID, "project", rc.config.ProjectPath, "workers", rc.config.Processors)

	// Provision worker databases if flag is set
	if rc.config.Flags.Provision {
		if err := newProvisioner(rc.config).Run(rc.config.Processors); err != nil {
			return fmt.Errorf("provisioning failed: %w", err)
		}
		fmt.Println()
	}

	// Collect
	sess, err := session.Build(rc.config, rc.catalog, log)
	if err != nil {
		return err
	}
	tree := sess.Tree

	if rc.config.Flags.OnlyFailed {
		last, err := rc.storage.Load()
		if err != nil {
			return fmt.Errorf("no previous results to take failed items from: %w", err)
		}
		ids := last.FailedIDs()
		if len(ids) == 0 {
			color.Green("✓ No failed items in the last run")
			return nil
		}
		tree = session.SelectIDs(tree, ids)
	}

	items := tree.Items()
	if len(items) == 0 && len(tree.Errors) == 0 {
		color.Yellow("No tests to execute")
		return nil
	}

	params, err := rc.config.Parameters()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, duration, err := rc.execute(ctx, runID, items, params)
	if err != nil {
		return err
	}

	if rc.config.Flags.RerunFailures {
		results, duration, err = rc.rerunFailures(ctx, runID, tree, results, duration, params)
		if err != nil {
			return err
		}
	}

	// Parse failures, then collection errors
	var failures []domain.Failure
	for _, result := range results {
		if !result.Success {
			failures = append(failures, rc.parser.ParseFailure(result))
		}
	}
	for _, e := range tree.Errors {
		failures = append(failures, rc.parser.CollectionFailure(e.RelPath, e.Err))
	}

	// Save results
	output, err := rc.storage.Save(storage.Summary{
		RunID:            runID,
		Results:          results,
		Failures:         failures,
		CollectionErrors: len(tree.Errors),
		Duration:         duration,
		Workers:          rc.config.Processors,
	})
	if err != nil {
		return fmt.Errorf("failed to save test results: %w", err)
	}
	rc.record(ctx, output)

	// Print stats
	rc.formatter.PrintMetaStats(output)
	log.Info("run.done", "run_id", runID, "items", output.Meta.TotalItems, "failed", output.Meta.FailedItems, "collection_errors", output.Meta.CollectionErrors)

	if !output.Meta.Failed() {
		return nil
	}
	if rc.config.Flags.OpenFaills {
		if err := rc.viewer.View(output); err != nil {
			return err
		}
	}
	return &ExitError{Code: 1}
}

func (rc *RunCommand) execute(ctx context.Context, runID string, items []*collect.Item, params map[string]any) ([]domain.ItemResult, time.Duration, error) {
	if len(items) == 0 {
		return nil, 0, nil
	}
	log := logger.L()
	runner := execution.NewRunner(rc.config, rc.parser, log)
	pool := execution.NewWorkerPool(rc.config, runner, rc.scheduler, log)
	pool.SetOutputDir(rc.config.GetArtifactsDir(runID))
	pool.SetParameters(params)

	// Create and set progress bar
	pool.SetProgress(ui.NewProgressBar(len(items)))

	return pool.ExecuteWithOptions(ctx, items, rc.config.Flags.FailFast)
}

// rerunFailures runs the failed items once more and replaces their results
func (rc *RunCommand) rerunFailures(ctx context.Context, runID string, tree *collect.Tree, results []domain.ItemResult, duration time.Duration, params map[string]any) ([]domain.ItemResult, time.Duration, error) {
	var failedIDs []string
	for _, r := range results {
		if !r.Success {
			failedIDs = append(failedIDs, r.ID)
		}
	}
	if len(failedIDs) == 0 {
		return results, duration, nil
	}

	color.Yellow("\nRe-running %d failed item(s)...", len(failedIDs))
	retry := session.SelectIDs(tree, failedIDs).Items()
	retried, retryDuration, err := rc.execute(ctx, runID, retry, params)
	if err != nil {
		return nil, 0, err
	}

	byID := make(map[string]domain.ItemResult, len(retried))
	for _, r := range retried {
		byID[r.ID] = r
	}
	merged := make([]domain.ItemResult, len(results))
	for i, r := range results {
		if again, ok := byID[r.ID]; ok {
			merged[i] = again
		} else {
			merged[i] = r
		}
	}
	return merged, duration + retryDuration, nil
}

// record adds the run to the history database. A failure here never fails
// the run
func (rc *RunCommand) record(ctx context.Context, output *domain.ResultsOutput) {
	log := logger.L()
	history, err := storage.OpenHistory(rc.config.GetHistoryPath())
	if err != nil {
		log.Warn("history.open", "err", err)
		return
	}
	defer history.Close()
	if err := history.Record(context.WithoutCancel(ctx), output); err != nil {
		log.Warn("history.record", "run_id", output.Meta.RunID, "err", err)
	}
}

package commands

import (
	"errors"
	"io/fs"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nbtp/internal/config"
	"nbtp/internal/logger"
	"nbtp/internal/storage"
	"nbtp/internal/ui"
)

// FaillsCommand handles the faills command
type FaillsCommand struct {
	config  *config.Config
	storage storage.Storage
	viewer  ui.Viewer
}

// NewFaillsCommand creates a new FaillsCommand
func NewFaillsCommand(cfg *config.Config, st storage.Storage, viewer ui.Viewer) *FaillsCommand {
	return &FaillsCommand{
		config:  cfg,
		storage: st,
		viewer:  viewer,
	}
}

// Execute opens the viewer on the last run's failed items and collection
// errors
func (fc *FaillsCommand) Execute(cmd *cobra.Command, args []string) error {
	results, err := fc.storage.Load()
	if errors.Is(err, fs.ErrNotExist) {
		color.Yellow("No results yet; run the notebooks first")
		return nil
	}
	if err != nil {
		return err
	}

	if len(results.Details) == 0 {
		color.Green("✓ Run %s had no failed items or collection errors", results.Meta.RunID)
		return nil
	}

	logger.L().Info("faills.open",
		"run_id", results.Meta.RunID,
		"failed_items", results.Meta.FailedItems,
		"collection_errors", results.Meta.CollectionErrors,
	)
	return fc.viewer.View(results)
}

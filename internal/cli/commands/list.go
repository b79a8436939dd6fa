package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nbtp/internal/catalog"
	"nbtp/internal/config"
	"nbtp/internal/logger"
	"nbtp/internal/session"
	"nbtp/internal/storage"
	"nbtp/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	catalog   *catalog.Catalog
	formatter *ui.Formatter
	storage   storage.Storage
}

// NewListCommand creates a new ListCommand. st is optional; when set,
// notebooks that failed in the last run are marked
func NewListCommand(
	cfg *config.Config,
	cat *catalog.Catalog,
	formatter *ui.Formatter,
	st storage.Storage,
) *ListCommand {
	return &ListCommand{
		config:    cfg,
		catalog:   cat,
		formatter: formatter,
		storage:   st,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	sess, err := session.Build(lc.config, lc.catalog, logger.L())
	if err != nil {
		return err
	}

	if len(sess.Tree.Files) == 0 && len(sess.Tree.Errors) == 0 {
		color.Yellow("No tests found")
		return nil
	}

	var failedFiles map[string]struct{}
	if lc.storage != nil {
		if last, err := lc.storage.Load(); err == nil {
			failedFiles = last.FailedFiles()
		}
	}

	lc.formatter.PrintCollection(sess.Tree, lc.config.Flags.ShowItems, failedFiles)
	return nil
}

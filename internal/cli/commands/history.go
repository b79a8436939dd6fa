package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nbtp/internal/config"
	"nbtp/internal/storage"
	"nbtp/internal/ui"
)

// HistoryCommand handles the history command
type HistoryCommand struct {
	config    *config.Config
	formatter *ui.Formatter
}

// NewHistoryCommand creates a new HistoryCommand
func NewHistoryCommand(cfg *config.Config, formatter *ui.Formatter) *HistoryCommand {
	return &HistoryCommand{
		config:    cfg,
		formatter: formatter,
	}
}

// Execute runs the command
func (hc *HistoryCommand) Execute(cmd *cobra.Command, args []string) error {
	path := hc.config.GetHistoryPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		color.Yellow("No runs recorded yet")
		return nil
	}

	history, err := storage.OpenHistory(path)
	if err != nil {
		return err
	}
	defer history.Close()

	runs, err := history.Recent(cmd.Context(), hc.config.Flags.Limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	hc.formatter.PrintHistory(runs)
	return nil
}

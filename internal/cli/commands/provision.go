package commands

import (
	"github.com/spf13/cobra"

	"nbtp/internal/config"
)

// ProvisionCommand handles the provision command
type ProvisionCommand struct {
	config *config.Config
}

// NewProvisionCommand creates a new ProvisionCommand
func NewProvisionCommand(cfg *config.Config) *ProvisionCommand {
	return &ProvisionCommand{
		config: cfg,
	}
}

// Execute runs the command
func (pc *ProvisionCommand) Execute(cmd *cobra.Command, args []string) error {
	workerCount := pc.config.Processors
	return newProvisioner(pc.config).Run(workerCount)
}

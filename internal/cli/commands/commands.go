package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"nbtp/internal/catalog"
	"nbtp/internal/cli"
	"nbtp/internal/config"
	"nbtp/internal/execution"
	"nbtp/internal/logger"
	"nbtp/internal/parser"
	"nbtp/internal/provision"
	"nbtp/internal/storage"
	"nbtp/internal/ui"
)

// Commands holds all CLI commands
type Commands struct {
	Run       *RunCommand
	List      *ListCommand
	Provision *ProvisionCommand
	Faills    *FaillsCommand
	History   *HistoryCommand

	cleanup func() error
}

// NewCommands creates all commands with dependencies
func NewCommands(cfg *config.Config) *Commands {
	// Initialize dependencies
	cat := catalog.Default()
	papermillParser := parser.NewPapermillParser()
	scheduler := execution.NewFileScheduler()
	jsonStorage := storage.NewJSONStorage(cfg)
	formatter := ui.NewFormatter(cfg)
	errorViewer := ui.NewErrorViewer(cfg, jsonStorage)

	return &Commands{
		Run:       NewRunCommand(cfg, cat, scheduler, papermillParser, jsonStorage, formatter, errorViewer),
		List:      NewListCommand(cfg, cat, formatter, jsonStorage),
		Provision: NewProvisionCommand(cfg),
		Faills:    NewFaillsCommand(cfg, jsonStorage, errorViewer),
		History:   NewHistoryCommand(cfg, formatter),
	}
}

// newProvisioner builds the database provisioner; the logger is read at call
// time so it picks up Setup
func newProvisioner(cfg *config.Config) provision.Provisioner {
	return provision.NewSetupRunner(cfg, provision.NewDatabaseManager(cfg), logger.L())
}

// prepare applies flags and the project .env, then starts the file logger
func (c *Commands) prepare(flags *cli.Flags, cfg *config.Config) error {
	flags.Apply(cfg)
	if err := config.LoadEnv(cfg); err != nil {
		return err
	}
	cleanup, err := logger.Setup(logger.Config{Root: cfg.GetLogRoot(), Debug: cfg.Flags.Debug})
	if err != nil {
		// Logging is optional; keep going with the discarding logger
		return nil
	}
	c.cleanup = cleanup
	return nil
}

func (c *Commands) finish(cmd *cobra.Command, args []string) error {
	if c.cleanup == nil {
		return nil
	}
	err := c.cleanup()
	c.cleanup = nil
	return err
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	prepare := func(cmd *cobra.Command, args []string) error {
		return c.prepare(flags, cfg)
	}

	rootCmd.PersistentFlags().StringVar(&flags.ProjectPath, "project", "", "Project root; directory hooks are collected from here")
	rootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Write debug logs to .nbtp/logs/nbtp.log")

	// Run command
	runCmd := &cobra.Command{
		Use:      "run",
		Short:    "Run notebook tests in parallel",
		Long:     "Collect notebook tests through the directory hooks and execute them using parallel workers",
		RunE:     c.Run.Execute,
		PreRunE:  prepare,
		PostRunE: c.finish,
	}
	runCmd.Flags().IntVarP(&flags.Processors, "processors", "p", 0, "Number of processors to use (default 4)")
	runCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Folder or notebook where collection starts")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter notebooks by name pattern (supports wildcards, e.g., '*etl*')")
	runCmd.Flags().StringVarP(&flags.Select, "select", "k", "", "Run only items whose id matches the pattern (e.g. '*::Smoke::*')")
	runCmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop on first test failure")
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Run only items that failed in the last run")
	runCmd.Flags().BoolVar(&flags.RerunFailures, "rerun-failures", false, "After running all items, rerun only failed ones once and save that result")
	runCmd.Flags().BoolVar(&flags.OpenFaills, "open-faills", false, "Open the faills viewer when the run finishes with failures")
	runCmd.Flags().BoolVar(&flags.Provision, "provision", false, "Provision worker databases before executing tests")
	runCmd.Flags().BoolVar(&flags.NoDefault, "no-default", false, "Do not seed test_notebook_runs above the root directory hook")
	runCmd.Flags().StringVar(&flags.Kernel, "kernel", "", "Kernel name passed to papermill")
	runCmd.Flags().StringArrayVarP(&flags.Parameters, "param", "P", nil, "Notebook parameter key=value (repeatable)")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:      "list",
		Short:    "List collected notebook tests",
		Long:     "Collect and list notebook tests without executing them",
		RunE:     c.List.Execute,
		PreRunE:  prepare,
		PostRunE: c.finish,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter notebooks by name pattern (supports wildcards, e.g., '*etl*')")
	listCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Folder or notebook where collection starts")
	listCmd.Flags().StringVarP(&flags.Select, "select", "k", "", "List only items whose id matches the pattern")
	listCmd.Flags().BoolVarP(&flags.ShowItems, "test-cases", "c", false, "List the items of each notebook")
	listCmd.Flags().BoolVar(&flags.NoDefault, "no-default", false, "Do not seed test_notebook_runs above the root directory hook")
	rootCmd.AddCommand(listCmd)

	// Provision command
	provisionCmd := &cobra.Command{
		Use:      "provision",
		Short:    "Create the per-worker test databases",
		Long:     "Create one database per worker and run the setup command for each in parallel",
		RunE:     c.Provision.Execute,
		PreRunE:  prepare,
		PostRunE: c.finish,
	}
	provisionCmd.Flags().IntVarP(&flags.Processors, "processors", "p", 0, "Number of processors/workers to use (default 4)")
	rootCmd.AddCommand(provisionCmd)

	// Faills command
	faillsCmd := &cobra.Command{
		Use:      "faills",
		Short:    "View test failures interactively",
		Long:     "Display failures and collection errors from the last run in an interactive viewer",
		RunE:     c.Faills.Execute,
		PreRunE:  prepare,
		PostRunE: c.finish,
	}
	rootCmd.AddCommand(faillsCmd)

	// History command
	historyCmd := &cobra.Command{
		Use:      "history",
		Short:    "Show recent runs",
		Long:     "List recent runs recorded in the project's history database",
		RunE:     c.History.Execute,
		PreRunE:  prepare,
		PostRunE: c.finish,
	}
	historyCmd.Flags().IntVarP(&flags.Limit, "limit", "n", 10, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

// ExitError carries a process exit code without printing an error message
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

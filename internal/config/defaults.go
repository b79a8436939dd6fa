package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultTestPath is the default path where notebook discovery starts
	DefaultTestPath = "."
	// DefaultDirConfigFile is the per-directory hook file name
	DefaultDirConfigFile = "nbtest.yaml"
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = ".nbtp"
	// DefaultHistoryFile is the SQLite run history file name
	DefaultHistoryFile = "history.db"
	// DefaultProcessors is the default number of processors
	DefaultProcessors = 4
	// DefaultPapermillPath is the papermill executable
	DefaultPapermillPath = "papermill"
	// DefaultExecTimeout bounds a single notebook execution
	DefaultExecTimeout = 10 * time.Minute
	// DefaultDatabasePrefix names per-worker databases
	DefaultDatabasePrefix = "nbtp_testing"
)

// DefaultTests seed every collection session before the root directory hook
var DefaultTests = []string{"test_notebook_runs"}

// DefaultPathsToIgnore are the default directories to skip when scanning for notebooks.
// Hidden directories such as .ipynb_checkpoints are always skipped
var DefaultPathsToIgnore = []string{
	"node_modules",
	"venv",
	"__pycache__",
	"build",
	"dist",
	"site-packages",
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath   string
	TestPath      string
	DirConfigFile string

	// Output settings
	OutputJSONFile string
	OutputJSONDir  string
	HistoryFile    string

	// Execution settings
	Processors    int
	PapermillPath string
	Kernel        string
	ExecTimeout   time.Duration
	ExtraArgs     []string

	// Tests seeded above the root directory hook
	DefaultTests []string

	// Per-worker database provisioning
	DatabasePrefix string
	SetupCommand   string

	// Paths to ignore when scanning
	PathsToIgnore []string

	// Command flags
	Flags Flags
}

// Flags holds command-line flags
type Flags struct {
	Processors    int
	TestPath      string
	NameFilter    string
	Select        string
	ShowItems     bool
	FailFast      bool
	OnlyFailed    bool
	RerunFailures bool
	OpenFaills    bool
	Provision     bool
	NoDefault     bool
	Kernel        string
	Parameters    []string
	Debug         bool
	Limit         int
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:    DefaultProjectPath,
		TestPath:       DefaultTestPath,
		DirConfigFile:  DefaultDirConfigFile,
		OutputJSONFile: DefaultOutputJSONFile,
		OutputJSONDir:  DefaultOutputJSONDir,
		HistoryFile:    DefaultHistoryFile,
		Processors:     DefaultProcessors,
		PapermillPath:  DefaultPapermillPath,
		ExecTimeout:    DefaultExecTimeout,
		DatabasePrefix: DefaultDatabasePrefix,
	}
	cfg.DefaultTests = append([]string(nil), DefaultTests...)
	cfg.PathsToIgnore = append([]string(nil), DefaultPathsToIgnore...)
	return cfg
}

// Load creates a config and applies flags
func Load(flags Flags) *Config {
	cfg := New()
	cfg.Apply(flags)
	return cfg
}

// Apply stores flags on the config and applies their overrides
func (c *Config) Apply(flags Flags) {
	c.Flags = flags
	if flags.Processors > 0 {
		c.Processors = flags.Processors
	}
	if flags.Kernel != "" {
		c.Kernel = flags.Kernel
	}
	if flags.NoDefault {
		c.DefaultTests = nil
	}
}

// LoadEnv reads <project>/.env (if present) and applies NBTP_* and
// DB_DATABASE_PREFIX overrides. Variables already set in the environment win
// over the file
func LoadEnv(c *Config) error {
	envPath := filepath.Join(c.ProjectPath, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envPath, err)
	}

	if v := os.Getenv("NBTP_PAPERMILL"); v != "" {
		c.PapermillPath = v
	}
	if v := os.Getenv("NBTP_KERNEL"); v != "" && c.Kernel == "" {
		c.Kernel = v
	}
	if v := os.Getenv("NBTP_PROCESSORS"); v != "" && c.Flags.Processors <= 0 {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("NBTP_PROCESSORS must be a positive integer, got %q", v)
		}
		c.Processors = n
	}
	if v := os.Getenv("NBTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NBTP_TIMEOUT: %w", err)
		}
		c.ExecTimeout = d
	}
	if v := os.Getenv("NBTP_SETUP_COMMAND"); v != "" {
		c.SetupCommand = v
	}
	if v := os.Getenv("DB_DATABASE_PREFIX"); v != "" {
		c.DatabasePrefix = v
	}
	return nil
}

// GetTestPath returns the test path, using flag if provided
func (c *Config) GetTestPath() string {
	if c.Flags.TestPath != "" {
		// Relative flag paths are taken from the project path
		if filepath.IsAbs(c.Flags.TestPath) {
			return c.Flags.TestPath
		}
		return filepath.Join(c.ProjectPath, c.Flags.TestPath)
	}

	return filepath.Join(c.ProjectPath, c.TestPath)
}

// GetOutputPath returns the absolute path to the output JSON file so run and
// faills always read/write the same file regardless of cwd
func (c *Config) GetOutputPath() string {
	return c.projectFile(c.OutputJSONFile)
}

// GetHistoryPath returns the absolute path to the SQLite history database
func (c *Config) GetHistoryPath() string {
	return c.projectFile(c.HistoryFile)
}

// GetArtifactsDir is where executed notebooks are written, one directory per run
func (c *Config) GetArtifactsDir(runID string) string {
	return c.projectFile(filepath.Join("runs", runID))
}

// GetLogRoot is the root passed to the logger; logs land under <root>/.nbtp/logs
func (c *Config) GetLogRoot() string {
	if abs, err := filepath.Abs(c.ProjectPath); err == nil {
		return abs
	}
	return c.ProjectPath
}

func (c *Config) projectFile(name string) string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, name)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetDatabaseName returns the database name for a worker
func (c *Config) GetDatabaseName(workerID int) string {
	prefix := c.DatabasePrefix
	if prefix == "" {
		prefix = DefaultDatabasePrefix
	}
	return fmt.Sprintf("%s_%d", prefix, workerID)
}

// Parameters parses the -P key=value flags. Values are decoded as YAML
// scalars, so "3" is an int and "true" a bool
func (c *Config) Parameters() (map[string]any, error) {
	if len(c.Flags.Parameters) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(c.Flags.Parameters))
	for _, kv := range c.Flags.Parameters {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("parameter %q: expected key=value", kv)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		params[strings.TrimSpace(key)] = v
	}
	return params, nil
}

package provision

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"nbtp/internal/config"
	"nbtp/internal/domain"
)

// SetupRunner creates the worker databases and runs the setup command once
// per worker, in parallel
type SetupRunner struct {
	config    *config.Config
	databases Databases
	out       io.Writer
	log       *slog.Logger
}

// NewSetupRunner creates a new SetupRunner
func NewSetupRunner(cfg *config.Config, databases Databases, log *slog.Logger) *SetupRunner {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SetupRunner{
		config:    cfg,
		databases: databases,
		out:       os.Stderr,
		log:       log,
	}
}

// SetOutput redirects the progress bar
func (sr *SetupRunner) SetOutput(w io.Writer) {
	sr.out = w
}

// Run provisions workerCount workers
func (sr *SetupRunner) Run(workerCount int) error {
	color.Cyan("\n╔════════════════════════════════════════════════════════════╗")
	color.Cyan("║                Provisioning Worker Databases               ║")
	color.Cyan("╚════════════════════════════════════════════════════════════╝\n")

	availableWorkers, err := sr.databases.CheckAndCreateDatabases(workerCount)
	if err != nil {
		return fmt.Errorf("failed to check databases: %w", err)
	}
	if len(availableWorkers) == 0 {
		return fmt.Errorf("no worker databases available")
	}
	sr.log.Info("provision.databases", "workers", len(availableWorkers), "prefix", sr.config.DatabasePrefix)

	if strings.TrimSpace(sr.config.SetupCommand) == "" {
		color.Green("✓ %d worker database(s) ready\n", len(availableWorkers))
		return nil
	}

	color.White("Workers: %d | Setup: %s\n\n", len(availableWorkers), sr.config.SetupCommand)

	bar := progressbar.NewOptions(len(availableWorkers),
		progressbar.OptionSetDescription(
			color.CyanString("Setting up: ")+
				color.GreenString("[completed: 0/%d]", len(availableWorkers)),
		),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(sr.out),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(sr.out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	var progressMu sync.Mutex
	completedCount := 0

	var wg sync.WaitGroup
	results := make(chan domain.SetupResult, len(availableWorkers))
	startTime := time.Now()

	for _, workerID := range availableWorkers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			result := sr.RunWorker(context.Background(), id)
			progressMu.Lock()
			completedCount++
			bar.Set(completedCount)
			bar.Describe(color.CyanString("Setting up: ") +
				color.GreenString("[completed: %d/%d]", completedCount, len(availableWorkers)))
			progressMu.Unlock()
			results <- result
		}(workerID)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var failed []domain.SetupResult
	for result := range results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	bar.Finish()

	duration := time.Since(startTime)

	fmt.Print("\n")
	if len(failed) == 0 {
		color.Green("✓ Setup completed successfully for all %d workers\n", len(availableWorkers))
		color.White("Duration: %s\n", duration.Round(time.Millisecond))
		return nil
	}
	color.Red("✗ Setup failed for %d worker(s)\n", len(failed))
	for _, result := range failed {
		color.Red("  Worker %d (DB: %s): %v\n", result.WorkerID, result.Database, result.Error)
		sr.log.Error("provision.setup.failed", "worker", result.WorkerID, "db", result.Database, "err", result.Error, "output", result.Output)
	}
	return fmt.Errorf("setup failed for %d worker(s)", len(failed))
}

// RunWorker runs the setup command for one worker with its DB_DATABASE set,
// streaming stdout and stderr into the result
func (sr *SetupRunner) RunWorker(ctx context.Context, workerID int) domain.SetupResult {
	dbName := sr.config.GetDatabaseName(workerID)
	result := domain.SetupResult{WorkerID: workerID, Database: dbName}

	projectAbsPath, err := filepath.Abs(sr.config.ProjectPath)
	if err != nil {
		result.Error = fmt.Errorf("failed to get absolute project path: %w", err)
		return result
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", sr.config.SetupCommand)
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, fmt.Sprintf("DB_DATABASE=%s", dbName))
	cmd.Dir = projectAbsPath

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		result.Error = fmt.Errorf("failed to create stdout pipe: %w", err)
		return result
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		result.Error = fmt.Errorf("failed to create stderr pipe: %w", err)
		return result
	}
	if err := cmd.Start(); err != nil {
		result.Error = fmt.Errorf("failed to start command: %w", err)
		return result
	}

	var outputMu sync.Mutex
	var outputBuilder strings.Builder
	var scanWg sync.WaitGroup
	stream := func(r io.Reader) {
		defer scanWg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			outputMu.Lock()
			outputBuilder.WriteString(scanner.Text())
			outputBuilder.WriteString("\n")
			outputMu.Unlock()
		}
	}
	scanWg.Add(2)
	go stream(stdout)
	go stream(stderr)

	// Wait for all scanners to finish before Wait closes the pipes
	scanWg.Wait()
	err = cmd.Wait()

	result.Output = outputBuilder.String()
	result.Success = err == nil
	result.Error = err
	return result
}

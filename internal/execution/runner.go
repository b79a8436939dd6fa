package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"nbtp/internal/config"
	"nbtp/internal/parser"
	"nbtp/pkg/testobj"
)

// Runner executes a single notebook with papermill
type Runner struct {
	config *config.Config
	parser *parser.PapermillParser
	log    *slog.Logger
}

var _ testobj.Executor = (*Runner)(nil)

// NewRunner creates a new Runner
func NewRunner(cfg *config.Config, p *parser.PapermillParser, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Runner{config: cfg, parser: p, log: log}
}

// Args builds the papermill command line for req
func (r *Runner) Args(req testobj.ExecRequest) []string {
	args := []string{req.Notebook, req.Output, "--cwd", req.Cwd}
	if req.Kernel != "" {
		args = append(args, "-k", req.Kernel)
	}
	keys := make([]string, 0, len(req.Parameters))
	for k := range req.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-p", k, fmt.Sprint(req.Parameters[k]))
	}
	return append(args, req.ExtraArgs...)
}

// Execute runs papermill for req. A failing notebook yields
// *testobj.ExecutionError built from the executed notebook, or from the
// command output when papermill did not get that far
func (r *Runner) Execute(ctx context.Context, req testobj.ExecRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.Output), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if r.config.ExecTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ExecTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.config.PapermillPath, r.Args(req)...)

	// Set environment variables
	cmd.Env = os.Environ() // Start with current environment
	cmd.Env = append(cmd.Env, req.Env...)

	// Set working directory
	cmd.Dir = req.Cwd

	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	notebook := r.relative(req.Notebook)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &testobj.ExecutionError{
			Notebook:  notebook,
			CellIndex: -1,
			Output:    parser.StripANSI(string(output)),
			Err:       fmt.Errorf("timed out after %s: %w", r.config.ExecTimeout, ctx.Err()),
		}
	}

	execErr, ok := r.parser.ParseOutputNotebook(req.Output)
	if ok {
		execErr.Output = parser.StripANSI(string(output))
	} else {
		execErr = r.parser.ParseOutput(string(output))
	}
	execErr.Notebook = notebook
	execErr.Err = err
	r.log.Debug("papermill.failed", "notebook", notebook, "ename", execErr.EName, "cell", execErr.CellIndex, "err", err)
	return execErr
}

func (r *Runner) relative(path string) string {
	root, err := filepath.Abs(r.config.ProjectPath)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

package testobj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// ErrNoExecutor is returned by Call.Execute when no executor was provided
var ErrNoExecutor = errors.New("no notebook executor configured")

// Executor runs a notebook end to end. Implementations return
// *ExecutionError when a cell fails
type Executor interface {
	Execute(ctx context.Context, req ExecRequest) error
}

// ExecRequest describes one notebook execution
type ExecRequest struct {
	Notebook   string
	Output     string
	Cwd        string
	Kernel     string
	Parameters map[string]any
	ExtraArgs  []string
	Env        []string
}

// ExecutionError reports the cell that raised while executing a notebook
type ExecutionError struct {
	Notebook  string
	CellIndex int // zero based; -1 when unknown
	EName     string
	EValue    string
	Traceback []string
	Output    string
	Err       error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Notebook)
	if e.CellIndex >= 0 {
		fmt.Fprintf(&b, ":cell %d", e.CellIndex+1)
	}
	switch {
	case e.EName != "" && e.EValue != "":
		fmt.Fprintf(&b, ": %s: %s", e.EName, e.EValue)
	case e.EName != "":
		fmt.Fprintf(&b, ": %s", e.EName)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Fixtures are the injectable values an item is run with
type Fixtures struct {
	Executor   Executor
	OutputDir  string
	Cwd        string
	Kernel     string
	Parameters map[string]any
	ExtraArgs  []string
	Env        []string
}

// Call is what a running test receives: the bound notebook and its fixtures
type Call struct {
	ctx      context.Context
	Notebook string // absolute path
	ID       string // item id, e.g. "sub/x.ipynb::test_notebook_runs"
	Fixtures Fixtures
	Log      *slog.Logger
}

// NewCall binds a notebook to fixtures. A nil logger discards
func NewCall(ctx context.Context, notebook, id string, fx Fixtures, log *slog.Logger) *Call {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Call{ctx: ctx, Notebook: notebook, ID: id, Fixtures: fx, Log: log}
}

func (c *Call) Context() context.Context { return c.ctx }

// OutputPath is where an executed copy of the notebook is written
func (c *Call) OutputPath() string {
	stem := strings.TrimSuffix(filepath.Base(c.Notebook), filepath.Ext(c.Notebook))
	dir := c.Fixtures.OutputDir
	if dir == "" {
		dir = filepath.Dir(c.Notebook)
	}
	return filepath.Join(dir, stem+".output.ipynb")
}

// Cwd is the directory the notebook runs in; its own directory by default
func (c *Call) Cwd() string {
	if c.Fixtures.Cwd != "" {
		return c.Fixtures.Cwd
	}
	return filepath.Dir(c.Notebook)
}

// Execute runs the bound notebook through the configured executor
func (c *Call) Execute() error {
	if c.Fixtures.Executor == nil {
		return ErrNoExecutor
	}
	req := ExecRequest{
		Notebook:   c.Notebook,
		Output:     c.OutputPath(),
		Cwd:        c.Cwd(),
		Kernel:     c.Fixtures.Kernel,
		Parameters: c.Fixtures.Parameters,
		ExtraArgs:  c.Fixtures.ExtraArgs,
		Env:        c.Fixtures.Env,
	}
	c.Log.Debug("notebook.execute", "id", c.ID, "notebook", req.Notebook, "output", req.Output)
	return c.Fixtures.Executor.Execute(c.ctx, req)
}

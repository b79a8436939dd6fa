package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"nbtp/internal/discovery"
	"nbtp/internal/domain"
	"nbtp/pkg/registry"
	"nbtp/pkg/testobj"
)

var (
	ansiPattern      = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	exceptionPattern = regexp.MustCompile(`Exception encountered at "In \[(\d+)\]"`)
	errorLinePattern = regexp.MustCompile(`^([A-Za-z_][\w.]*(?:Error|Exception|Interrupt|Exit|Warning))(?::\s*(.*))?$`)
	traceHeader      = regexp.MustCompile(`Traceback \(most recent call last\)`)
)

// PapermillParser parses papermill output and executed notebooks
type PapermillParser struct{}

var _ Parser = (*PapermillParser)(nil)

// NewPapermillParser creates a new PapermillParser
func NewPapermillParser() *PapermillParser {
	return &PapermillParser{}
}

// StripANSI removes terminal colour codes, which papermill and IPython
// tracebacks are full of
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// ParseOutputNotebook reads the executed notebook papermill wrote and returns
// the first error output. ok is false when the notebook is missing or clean
func (p *PapermillParser) ParseOutputNotebook(path string) (*testobj.ExecutionError, bool) {
	nb, err := discovery.ReadNotebook(path)
	if err != nil {
		return nil, false
	}
	idx, out, ok := nb.FirstError()
	if !ok {
		return nil, false
	}
	trace := make([]string, 0, len(out.Traceback))
	for _, line := range out.Traceback {
		trace = append(trace, StripANSI(line))
	}
	return &testobj.ExecutionError{
		CellIndex: idx,
		EName:     out.EName,
		EValue:    out.EValue,
		Traceback: trace,
	}, true
}

// ParseOutput extracts the failing cell and exception from papermill's
// combined output. The cell index is unknown here; papermill only reports the
// execution count, which is kept in the traceback
func (p *PapermillParser) ParseOutput(output string) *testobj.ExecutionError {
	clean := StripANSI(output)
	lines := strings.Split(clean, "\n")
	e := &testobj.ExecutionError{CellIndex: -1, Output: clean}

	start := 0
	if loc := exceptionPattern.FindStringIndex(clean); loc != nil {
		start = strings.Count(clean[:loc[0]], "\n")
	} else {
		for i, line := range lines {
			if traceHeader.MatchString(line) {
				start = i
				break
			}
		}
	}

	for i := start; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \r")
		if strings.TrimSpace(line) == "" && len(e.Traceback) == 0 {
			continue
		}
		e.Traceback = append(e.Traceback, line)
	}
	for len(e.Traceback) > 0 && strings.TrimSpace(e.Traceback[len(e.Traceback)-1]) == "" {
		e.Traceback = e.Traceback[:len(e.Traceback)-1]
	}

	// the last "Name: value" line is the exception that stopped the run
	for i := len(lines) - 1; i >= start; i-- {
		m := errorLinePattern.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil || strings.HasPrefix(m[1], "papermill.") {
			continue
		}
		e.EName, e.EValue = m[1], m[2]
		break
	}
	return e
}

// ExecutionCount returns N from papermill's `Exception encountered at "In [N]"`
func (p *PapermillParser) ExecutionCount(output string) (int, bool) {
	m := exceptionPattern.FindStringSubmatch(StripANSI(output))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFailure converts a failed item result into a failure record
func (p *PapermillParser) ParseFailure(result domain.ItemResult) domain.Failure {
	f := domain.Failure{
		TestName: result.ID,
		FilePath: result.FilePath,
		Group:    result.Group,
		Kind:     domain.KindFailed,
	}
	if result.Err == nil {
		f.Message = "failed"
		return f
	}
	f.Message = result.Err.Error()

	var execErr *testobj.ExecutionError
	if errors.As(result.Err, &execErr) {
		if execErr.CellIndex >= 0 {
			f.Cell = execErr.CellIndex + 1
		}
		f.EName = execErr.EName
		f.EValue = execErr.EValue
		f.Traceback = execErr.Traceback
		f.Output = execErr.Output
	}
	return f
}

// CollectionFailure records a notebook that could not be collected
func (p *PapermillParser) CollectionFailure(relPath string, err error) domain.Failure {
	f := domain.Failure{
		TestName: relPath,
		FilePath: relPath,
		Kind:     domain.KindCollection,
		Message:  err.Error(),
	}
	var regErr *registry.Error
	if errors.As(err, &regErr) {
		f.EName = string(regErr.Kind) + " error"
	}
	return f
}

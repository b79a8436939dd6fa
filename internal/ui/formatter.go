package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"nbtp/internal/config"
	"nbtp/internal/domain"
	"nbtp/internal/storage"
	"nbtp/pkg/collect"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	out    io.Writer
	clear  bool
}

// NewFormatter creates a new Formatter writing to the terminal
func NewFormatter(cfg *config.Config) *Formatter {
	return &Formatter{
		config: cfg,
		out:    color.Output,
		clear:  true,
	}
}

// SetOutput redirects output to w. The screen is never cleared on a
// redirected formatter
func (f *Formatter) SetOutput(w io.Writer) {
	f.out = w
	f.clear = false
}

func (f *Formatter) println(c *color.Color, format string, a ...any) {
	c.Fprintf(f.out, format, a...)
	fmt.Fprintln(f.out)
}

// PrintMetaStats displays the statistics of a finished run
func (f *Formatter) PrintMetaStats(output *domain.ResultsOutput) {
	if f.clear {
		// Clear terminal screen
		fmt.Fprint(f.out, "\033[2J\033[H")
	}
	meta := output.Meta

	// Print header
	fmt.Fprint(f.out, "\n")
	f.println(cyan, "╔═══════════════════════════════════════════════════════════════╗")
	f.println(cyan, "║                    Test Execution Statistics                  ║")
	f.println(cyan, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(f.out)

	rows := []struct {
		label string
		value string
		c     *color.Color
	}{
		{"Total Notebooks", fmt.Sprint(meta.TotalFiles), white},
		{"Passed Notebooks", fmt.Sprint(meta.PassedFiles), green},
		{"Failed Notebooks", fmt.Sprint(meta.FailedFiles), red},
		{"Total Items", fmt.Sprint(meta.TotalItems), white},
		{"Passed Items", fmt.Sprint(meta.PassedItems), green},
		{"Failed Items", fmt.Sprint(meta.FailedItems), red},
		{"Collection Errors", fmt.Sprint(meta.CollectionErrors), red},
		{"Duration", fmt.Sprintf("%.2fs", meta.DurationSeconds), white},
		{"Workers", fmt.Sprint(meta.Workers), white},
		{"Run ID", meta.RunID, white},
		{"Timestamp", meta.Timestamp, white},
	}

	// Print table
	fmt.Fprintln(f.out, "┌─────────────────────────────────┬──────────────────────────────────────┐")
	for i, row := range rows {
		fmt.Fprintf(f.out, "│ %-31s │ ", row.label)
		row.c.Fprintf(f.out, "%-36s", row.value)
		fmt.Fprintln(f.out, " │")
		if i < len(rows)-1 {
			fmt.Fprintln(f.out, "├─────────────────────────────────┼──────────────────────────────────────┤")
		}
	}
	fmt.Fprintln(f.out, "└─────────────────────────────────┴──────────────────────────────────────┘")

	// Print summary line
	fmt.Fprintln(f.out)
	if !meta.Failed() {
		f.println(green, "✓ All tests passed!")
		return
	}
	f.println(red, "✗ %d item(s) failed in %d notebook(s), %d collection error(s)",
		meta.FailedItems, meta.FailedFiles, meta.CollectionErrors)
	fmt.Fprintln(f.out)
	f.printFailedTestsTree(output.Details)
}

// TreeNode represents a node in the file tree structure
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.Failure
	IsFile   bool
}

// printFailedTestsTree prints a tree structure of failed items
func (f *Formatter) printFailedTestsTree(failures []domain.Failure) {
	if len(failures) == 0 {
		return
	}

	root := &TreeNode{Children: make(map[string]*TreeNode)}
	for _, failure := range failures {
		parts := strings.Split(strings.TrimPrefix(failure.FilePath, "./"), "/")
		current := root
		for i, part := range parts {
			if part == "" {
				continue
			}
			if current.Children[part] == nil {
				current.Children[part] = &TreeNode{
					Name:     part,
					Children: make(map[string]*TreeNode),
					IsFile:   i == len(parts)-1,
				}
			}
			current = current.Children[part]
		}
		current.Failures = append(current.Failures, failure)
	}

	f.printTreeNode(root, "")
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string) {
	// Sort children for consistent output
	keys := make([]string, 0, len(node.Children))
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		child := node.Children[key]
		connector, childPrefix := branch(prefix, i == len(keys)-1)

		if child.IsFile {
			f.println(yellow, "%s%s", connector, child.Name)
		} else {
			f.println(cyan, "%s%s/", connector, child.Name)
		}

		for j, failure := range child.Failures {
			caseConnector, _ := branch(childPrefix, j == len(child.Failures)-1 && len(child.Children) == 0)
			f.println(red, "%s%s", caseConnector, failureLabel(failure))
		}
		f.printTreeNode(child, childPrefix)
	}
}

func branch(prefix string, last bool) (connector, childPrefix string) {
	if last {
		return prefix + "└── ", prefix + "    "
	}
	return prefix + "├── ", prefix + "│   "
}

func failureLabel(failure domain.Failure) string {
	if failure.Kind == domain.KindCollection {
		return "collection error: " + firstLine(failure.Message)
	}
	name := strings.TrimPrefix(failure.TestName, failure.FilePath+"::")
	switch {
	case failure.Cell > 0 && failure.EName != "":
		return fmt.Sprintf("%s (cell %d: %s)", name, failure.Cell, failure.EName)
	case failure.EName != "":
		return fmt.Sprintf("%s (%s)", name, failure.EName)
	}
	return name
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// PrintCollection prints the collected notebooks, optionally with their
// items. failedFiles is optional; notebooks in it are marked with [F] in
// red (from last run)
func (f *Formatter) PrintCollection(tree *collect.Tree, showItems bool, failedFiles map[string]struct{}) {
	if showItems {
		f.println(green, "Found %d notebook(s) with %d item(s):", len(tree.Files), tree.Len())
	} else {
		f.println(green, "Found %d notebook(s):", len(tree.Files))
	}

	for i, file := range tree.Files {
		isLastFile := i == len(tree.Files)-1
		connector, childPrefix := branch("", isLastFile)

		cyan.Fprintf(f.out, "%s%s", connector, file.RelPath)
		if _, ok := failedFiles[file.RelPath]; ok {
			fmt.Fprint(f.out, " ")
			red.Fprint(f.out, "[F]")
		}
		fmt.Fprintln(f.out)

		if !showItems {
			continue
		}
		for j, it := range file.Items {
			itemConnector, _ := branch(childPrefix, j == len(file.Items)-1)
			fmt.Fprint(f.out, itemConnector)
			f.println(yellow, "%s", strings.TrimPrefix(it.ID, file.RelPath+"::"))
		}
		// Add spacing between notebooks (except for the last one)
		if !isLastFile {
			fmt.Fprintln(f.out, strings.TrimRight(childPrefix, " "))
		}
	}

	if len(tree.Errors) == 0 {
		return
	}
	fmt.Fprintln(f.out)
	f.println(red, "Collection errors (%d):", len(tree.Errors))
	for _, e := range tree.Errors {
		f.println(red, "✗ %s", e.RelPath)
		fmt.Fprintf(f.out, "    %v\n", e.Err)
	}
}

// PrintHistory prints recent runs, newest first
func (f *Formatter) PrintHistory(runs []storage.RunRecord) {
	if len(runs) == 0 {
		f.println(yellow, "No runs recorded yet")
		return
	}
	w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tDURATION\tNOTEBOOKS\tITEMS\tPASSED\tFAILED\tERRORS\t")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%d\t%d\t%d\t%d\t%d\t\n",
			r.ID, r.StartedAt, r.DurationSeconds, r.TotalFiles, r.TotalItems, r.PassedItems, r.FailedItems, r.CollectionErrors)
	}
	w.Flush()
}

package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rivo/tview"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbtp/internal/config"
	"nbtp/internal/domain"
	"nbtp/internal/storage"
	"nbtp/pkg/collect"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func plainFormatter(t *testing.T) (*Formatter, *bytes.Buffer) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })

	var buf bytes.Buffer
	f := NewFormatter(config.New())
	f.SetOutput(&buf)
	return f, &buf
}

func sampleTree() *collect.Tree {
	a := &collect.File{Path: "/p/a.ipynb", RelPath: "a.ipynb"}
	a.Items = []*collect.Item{
		{ID: "a.ipynb::test_notebook_runs", Name: "test_notebook_runs", File: a},
	}
	b := &collect.File{Path: "/p/sub/b.ipynb", RelPath: "sub/b.ipynb"}
	b.Items = []*collect.Item{
		{ID: "sub/b.ipynb::Smoke::check", Name: "check", Group: "Smoke", File: b},
		{ID: "sub/b.ipynb::test_notebook_runs", Name: "test_notebook_runs", File: b},
	}
	return &collect.Tree{
		Root:  "/p",
		Files: []*collect.File{a, b},
	}
}

func TestPrintCollection(t *testing.T) {
	t.Run("files", func(t *testing.T) {
		f, buf := plainFormatter(t)
		f.PrintCollection(sampleTree(), false, map[string]struct{}{"sub/b.ipynb": {}})
		newGolden(t).Assert(t, "collection_files", buf.Bytes())
	})

	t.Run("items and errors", func(t *testing.T) {
		f, buf := plainFormatter(t)
		tree := sampleTree()
		tree.Errors = []*collect.Error{{
			Path:    "/p/broken/c.ipynb",
			RelPath: "broken/c.ipynb",
			Err:     errors.New(`unknown test "nope"`),
		}}
		f.PrintCollection(tree, true, nil)
		newGolden(t).Assert(t, "collection_items", buf.Bytes())
	})
}

func TestPrintMetaStats(t *testing.T) {
	t.Run("passed", func(t *testing.T) {
		f, buf := plainFormatter(t)
		f.PrintMetaStats(&domain.ResultsOutput{Meta: domain.ResultsMeta{
			RunID:           "run-0",
			TotalFiles:      2,
			PassedFiles:     2,
			TotalItems:      3,
			PassedItems:     3,
			DurationSeconds: 0.25,
			Workers:         1,
			Timestamp:       "2026-01-01T00:00:00Z",
		}})
		newGolden(t).Assert(t, "stats_passed", buf.Bytes())
	})

	t.Run("failed", func(t *testing.T) {
		f, buf := plainFormatter(t)
		f.PrintMetaStats(&domain.ResultsOutput{
			Meta: domain.ResultsMeta{
				RunID:            "run-1",
				TotalFiles:       3,
				FailedFiles:      3,
				TotalItems:       3,
				PassedItems:      1,
				FailedItems:      2,
				CollectionErrors: 1,
				DurationSeconds:  1.5,
				Workers:          2,
				Timestamp:        "2026-01-02T03:04:05Z",
			},
			Details: []domain.Failure{
				{
					TestName: "sub/b.ipynb::Smoke::check",
					FilePath: "sub/b.ipynb",
					Group:    "Smoke",
					Kind:     domain.KindFailed,
					Cell:     3,
					EName:    "AssertionError",
				},
				{
					TestName: "a.ipynb::test_notebook_runs",
					FilePath: "a.ipynb",
					Kind:     domain.KindFailed,
					EName:    "ValueError",
				},
				{
					TestName: "broken/c.ipynb",
					FilePath: "broken/c.ipynb",
					Kind:     domain.KindCollection,
					Message:  "configuration error\nmore detail",
				},
			},
		})
		newGolden(t).Assert(t, "stats_failed", buf.Bytes())
	})
}

func TestPrintHistory(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		f, buf := plainFormatter(t)
		f.PrintHistory(nil)
		assert.Equal(t, "No runs recorded yet\n", buf.String())
	})

	t.Run("runs", func(t *testing.T) {
		f, buf := plainFormatter(t)
		f.PrintHistory([]storage.RunRecord{
			{
				ID:              "run-2",
				StartedAt:       "2026-01-02T03:04:05Z",
				DurationSeconds: 2.25,
				TotalFiles:      3,
				TotalItems:      5,
				PassedItems:     4,
				FailedItems:     1,
			},
			{
				ID:              "run-1",
				StartedAt:       "2026-01-01T00:00:00Z",
				DurationSeconds: 0.5,
				TotalFiles:      1,
				TotalItems:      1,
				PassedItems:     1,
			},
		})
		newGolden(t).Assert(t, "history", buf.Bytes())
	})
}

func TestFormatFailureDetails(t *testing.T) {
	trace := make([]string, maxTraceLines+5)
	for i := range trace {
		trace[i] = "line"
	}
	trace[0] = "[bracketed]"

	got := formatFailureDetails(domain.Failure{
		TestName:  "x.ipynb::test_notebook_runs",
		FilePath:  "x.ipynb",
		Kind:      domain.KindFailed,
		Cell:      2,
		EName:     "KeyError",
		EValue:    "'k'",
		Message:   "x.ipynb:cell 2: KeyError: 'k'",
		Traceback: trace,
	})

	assert.Contains(t, got, "✗ Test: x.ipynb::test_notebook_runs")
	assert.Contains(t, got, "Location: x.ipynb:cell 2")
	assert.Contains(t, got, "Exception:[white] KeyError: 'k'")
	assert.Contains(t, got, tview.Escape("[bracketed]"))
	assert.Contains(t, got, "... and 5 more lines")
	assert.Equal(t, maxTraceLines-1, strings.Count(got, "  line\n"))

	coll := formatFailureDetails(domain.Failure{
		TestName: "bad.ipynb",
		FilePath: "bad.ipynb",
		Kind:     domain.KindCollection,
		Message:  "configuration error",
	})
	assert.Contains(t, coll, "✗ Collection error: bad.ipynb")
	assert.NotContains(t, coll, "Location:")
	assert.NotContains(t, coll, "Traceback:")
}

func TestFormatFailureStats(t *testing.T) {
	got := formatFailureStats(domain.Failure{
		TestName: "sub/b.ipynb::Smoke::check",
		FilePath: "sub/b.ipynb",
		Kind:     domain.KindFailed,
	}, 1)
	assert.Contains(t, got, "sub/b.ipynb[white]::[yellow]Smoke::check")

	got = formatFailureStats(domain.Failure{Kind: domain.KindCollection}, 4)
	assert.Contains(t, got, "Unknown path[white]::[yellow]#4")
}

func TestListItemText(t *testing.T) {
	f := domain.Failure{TestName: "a.ipynb::t", Kind: domain.KindFailed}
	assert.Equal(t, "[yellow]1.[white] a.ipynb::t", listItemText(f, 0))

	f.Resolved = true
	assert.Equal(t, "[gray]✓ [yellow]1.[gray] a.ipynb::t[white]", listItemText(f, 0))

	assert.Equal(t, "[yellow]3.[white] Failure 3", listItemText(domain.Failure{}, 2))

	header := headerText([]domain.Failure{{Resolved: true}, {}, {}})
	assert.Contains(t, header, "Failures (3 total, 2 unresolved)")
}

func TestErrorViewer_NoFailures(t *testing.T) {
	ev := NewErrorViewer(config.New(), storage.NewJSONStorage(config.New()))
	require.NoError(t, ev.View(&domain.ResultsOutput{}))
}

func TestProgressBar_Describe(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })

	var buf bytes.Buffer
	p := NewProgressBarTo(&buf, "Running items", 5)
	assert.Equal(t, "Running items: [passed: 1 | failed: 2] of 5", p.describe(1, 2))

	p.Update(1, 2)
	p.Update(3, 2)
	p.Finish()
	assert.Contains(t, buf.String(), "passed: 3 | failed: 2")
}

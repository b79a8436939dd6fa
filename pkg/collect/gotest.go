package collect

import (
	"context"
	"log/slog"
	"testing"

	"nbtp/pkg/testobj"
)

// FixtureFunc builds the fixtures for one item. It may use t for temporary
// directories
type FixtureFunc func(t *testing.T, it *Item) testobj.Fixtures

// TempOutput gives every item its own output directory under t.TempDir
func TempOutput(exec testobj.Executor) FixtureFunc {
	return func(t *testing.T, _ *Item) testobj.Fixtures {
		return testobj.Fixtures{Executor: exec, OutputDir: t.TempDir()}
	}
}

// RunT runs tree under go test: one subtest per file, one per item below it.
// Collection errors fail a subtest named after the file
func RunT(t *testing.T, tree *Tree, fixtures FixtureFunc) {
	t.Helper()
	for _, f := range tree.Files {
		f := f
		t.Run(f.RelPath, func(t *testing.T) {
			for _, it := range f.Items {
				it := it
				t.Run(it.SubName(), func(t *testing.T) {
					var fx testobj.Fixtures
					if fixtures != nil {
						fx = fixtures(t, it)
					}
					log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
					if err := it.Run(context.Background(), fx, log); err != nil {
						t.Fatal(err)
					}
				})
			}
		})
	}
	for _, e := range tree.Errors {
		e := e
		t.Run(e.RelPath, func(t *testing.T) {
			t.Fatalf("collection error: %v", e.Err)
		})
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

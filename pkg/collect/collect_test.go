package collect

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbtp/pkg/registry"
	"nbtp/pkg/resolve"
	"nbtp/pkg/testobj"
)

func session(t *testing.T, files ...string) (*registry.Registry, *resolve.Engine, []string) {
	t.Helper()
	root := t.TempDir()
	var paths []string
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
		paths = append(paths, p)
	}
	reg, err := registry.New(root)
	require.NoError(t, err)
	return reg, resolve.New(reg), paths
}

func ids(tree *Tree) []string {
	var out []string
	for _, it := range tree.Items() {
		out = append(out, it.ID)
	}
	return out
}

func hookReturning(objs ...*testobj.Object) registry.Hook {
	return registry.NewHook(func(registry.Args) (testobj.Sequence, error) {
		return testobj.Of(objs...), nil
	})
}

func TestCollect_EndToEndDefault(t *testing.T) {
	reg, engine, paths := session(t, "sub/x.ipynb")
	require.NoError(t, reg.RegisterDefault(".", hookReturning(testobj.New("test_runs", nil))))

	tree := Collect(engine, paths)

	require.Empty(t, tree.Errors)
	require.Len(t, tree.Files, 1)
	assert.Equal(t, "sub/x.ipynb", tree.Files[0].RelPath)
	assert.Equal(t, []string{"sub/x.ipynb::test_runs"}, ids(tree))
}

func TestCollect_EndToEndTestsFor(t *testing.T) {
	reg, engine, paths := session(t, "x.ipynb", "y.ipynb")
	runs, extra := testobj.New("test_runs", nil), testobj.New("test_extra", nil)
	require.NoError(t, reg.RegisterDefault(".", registry.NewHook(func(a registry.Args) (testobj.Sequence, error) {
		err := a.TestsFor("x.ipynb")(registry.NewHook(func(a registry.Args) (testobj.Sequence, error) {
			return a.CurrentTests.Append(extra), nil
		}, registry.CurrentTests))
		return testobj.Of(runs), err
	}, registry.TestsFor)))

	tree := Collect(engine, paths)

	require.Empty(t, tree.Errors)
	assert.Equal(t, []string{
		"x.ipynb::test_runs",
		"x.ipynb::test_extra",
		"y.ipynb::test_runs",
	}, ids(tree))
}

func TestCollect_GroupsExpandInOrder(t *testing.T) {
	reg, engine, paths := session(t, "nb/x.ipynb")
	group := testobj.Group("Smoke", testobj.New("test_one", nil), testobj.New("test_two", nil))
	require.NoError(t, reg.RegisterDefault(".", hookReturning(
		testobj.New("test_first", nil), group, testobj.New("test_last", nil),
	)))

	tree := Collect(engine, paths)

	require.Empty(t, tree.Errors)
	assert.Equal(t, []string{
		"nb/x.ipynb::test_first",
		"nb/x.ipynb::Smoke::test_one",
		"nb/x.ipynb::Smoke::test_two",
		"nb/x.ipynb::test_last",
	}, ids(tree))
	item, ok := tree.Lookup("nb/x.ipynb::Smoke::test_two")
	require.True(t, ok)
	assert.Equal(t, "Smoke/test_two", item.SubName())
	assert.Same(t, tree.Files[0], item.File)
}

func TestCollect_EmptyFilesHaveNoContainer(t *testing.T) {
	reg, engine, paths := session(t, "on/x.ipynb", "off/y.ipynb")
	require.NoError(t, reg.RegisterDefault("on", hookReturning(testobj.New("test_a", nil))))

	tree := Collect(engine, paths)

	require.Len(t, tree.Files, 1)
	assert.Equal(t, "on/x.ipynb", tree.Files[0].RelPath)
	assert.Empty(t, tree.Errors)
	assert.Equal(t, 1, tree.Len())
}

func TestCollect_ErrorsAreIsolated(t *testing.T) {
	reg, engine, paths := session(t, "bad/x.ipynb", "dup/y.ipynb", "nested/z.ipynb", "ok/w.ipynb")
	require.NoError(t, reg.RegisterDefault(".", hookReturning(testobj.New("test_a", nil))))
	require.NoError(t, reg.RegisterDefault("bad", registry.NewHook(func(registry.Args) (testobj.Sequence, error) {
		return nil, errors.New("boom")
	})))
	require.NoError(t, reg.RegisterDefault("dup", hookReturning(
		testobj.Group("G", testobj.New("test_a", nil), testobj.New("test_a", nil)),
	)))
	require.NoError(t, reg.RegisterDefault("nested", hookReturning(
		testobj.Group("Outer", testobj.Group("Inner", testobj.New("test_a", nil))),
	)))

	tree := Collect(engine, paths)

	assert.Equal(t, []string{"ok/w.ipynb::test_a"}, ids(tree))
	require.Len(t, tree.Errors, 3)
	assert.Equal(t, "bad/x.ipynb", tree.Errors[0].RelPath)
	assert.True(t, registry.IsKind(tree.Errors[0], registry.KindHook))
	assert.True(t, registry.IsKind(tree.Errors[1], registry.KindConfig))
	assert.True(t, registry.IsKind(tree.Errors[2], registry.KindConfig))
}

func TestCollect_SamePathOnce(t *testing.T) {
	reg, engine, paths := session(t, "x.ipynb")
	require.NoError(t, reg.RegisterDefault(".", hookReturning(testobj.New("test_a", nil))))

	tree := Collect(engine, append(paths, filepath.Join(filepath.Dir(paths[0]), ".", "x.ipynb")))
	assert.Equal(t, []string{"x.ipynb::test_a"}, ids(tree))
}

func TestCollect_Bindings(t *testing.T) {
	reg, engine, paths := session(t, "x.ipynb", "unlisted.ipynb")
	runs := testobj.New("test_runs", nil)
	bound := testobj.New("test_bound", nil)
	require.NoError(t, reg.RegisterDefault(".", hookReturning(runs)))

	tree := Collect(engine, paths[:1], WithBindings(
		Binding{Notebook: "x.ipynb", Object: bound},
		Binding{Notebook: paths[0], Object: bound},
		Binding{Notebook: "unlisted.ipynb", Object: bound},
		Binding{Notebook: "missing.ipynb", Object: bound},
	))

	assert.Equal(t, []string{
		"x.ipynb::test_runs",
		"x.ipynb::test_bound",
		"unlisted.ipynb::test_runs",
		"unlisted.ipynb::test_bound",
	}, ids(tree))
	require.Len(t, tree.Errors, 1)
	assert.Equal(t, "missing.ipynb", tree.Errors[0].RelPath)
}

func TestCollect_BindingNameClash(t *testing.T) {
	reg, engine, paths := session(t, "x.ipynb")
	require.NoError(t, reg.RegisterDefault(".", hookReturning(testobj.New("test_runs", nil))))

	tree := Collect(engine, paths, WithBindings(Binding{Notebook: paths[0], Object: testobj.New("test_runs", nil)}))

	assert.Empty(t, tree.Files)
	require.Len(t, tree.Errors, 1)
	assert.True(t, registry.IsKind(tree.Errors[0], registry.KindConfig))
}

func TestCollect_InvalidBindings(t *testing.T) {
	reg, engine, paths := session(t, "x.ipynb", "y.ipynb")
	bound := testobj.New("test_bound", nil)
	require.NoError(t, reg.RegisterDefault(".", hookReturning(testobj.New("test_runs", nil))))

	tree := Collect(engine, paths, WithBindings(
		Binding{Notebook: "", Object: bound},
		Binding{Notebook: "y.ipynb", Object: nil},
		Binding{Notebook: "x.ipynb", Object: bound},
	))

	assert.Equal(t, []string{"x.ipynb::test_runs", "x.ipynb::test_bound"}, ids(tree))
	require.Len(t, tree.Errors, 2)
	assert.Equal(t, "y.ipynb", tree.Errors[0].RelPath)
	assert.Equal(t, "", tree.Errors[1].RelPath)
	for _, e := range tree.Errors {
		var regErr *registry.Error
		require.True(t, errors.As(e, &regErr))
		assert.Equal(t, registry.KindConfig, regErr.Kind)
		assert.Equal(t, "collect.bind", regErr.Op)
	}
}

func TestRunT(t *testing.T) {
	reg, engine, paths := session(t, "a/x.ipynb", "b/y.ipynb")
	var calls atomic.Int32
	var seen []string
	check := testobj.New("test_check", func(c *testobj.Call) error {
		calls.Add(1)
		seen = append(seen, c.ID)
		if filepath.Base(c.OutputPath()) != filepath.Base(c.Notebook[:len(c.Notebook)-len(".ipynb")])+".output.ipynb" {
			return errors.New("unexpected output path")
		}
		return nil
	})
	require.NoError(t, reg.RegisterDefault(".", hookReturning(testobj.Group("Checks", check))))

	tree := Collect(engine, paths)
	RunT(t, tree, TempOutput(nil))

	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, []string{"a/x.ipynb::Checks::test_check", "b/y.ipynb::Checks::test_check"}, seen)
}

func TestTree_Filter(t *testing.T) {
	reg, engine, paths := session(t, "a.ipynb", "b.ipynb")
	require.NoError(t, reg.RegisterDefault(".", hookReturning(
		testobj.New("test_runs", nil), testobj.New("test_valid", nil))))

	tree := Collect(engine, paths)
	only := tree.Filter(func(it *Item) bool {
		return it.File.RelPath == "b.ipynb" || it.Name == "test_valid"
	})

	assert.Equal(t, []string{"a.ipynb::test_valid", "b.ipynb::test_runs", "b.ipynb::test_valid"}, ids(only))
	for _, f := range only.Files {
		for _, it := range f.Items {
			assert.Same(t, f, it.File)
		}
	}
	assert.Equal(t, 4, tree.Len())
	assert.Empty(t, tree.Filter(func(*Item) bool { return false }).Files)
}

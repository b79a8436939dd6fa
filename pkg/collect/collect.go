// Package collect turns resolved test sequences into named, runnable items
// grouped under one container per notebook file
package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"nbtp/pkg/pathkey"
	"nbtp/pkg/registry"
	"nbtp/pkg/resolve"
	"nbtp/pkg/testobj"
)

// Item is one runnable test bound to a notebook
type Item struct {
	ID     string // <rel>::<name> or <rel>::<Group>::<name>
	Name   string
	Group  string
	File   *File
	Object *testobj.Object
}

// Run executes the item against its notebook
func (it *Item) Run(ctx context.Context, fx testobj.Fixtures, log *slog.Logger) error {
	return it.Object.Run(testobj.NewCall(ctx, it.File.Path, it.ID, fx, log))
}

// SubName is the item's name below its file container
func (it *Item) SubName() string {
	if it.Group != "" {
		return it.Group + "/" + it.Name
	}
	return it.Name
}

// File is the container for one notebook
type File struct {
	Path    string // absolute
	RelPath string // slash separated, relative to the collection root
	Items   []*Item
}

// Error is a collection failure for a single notebook
type Error struct {
	Path    string
	RelPath string
	Err     error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.RelPath, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Tree is the outcome of a collection pass
type Tree struct {
	Root   string
	Files  []*File
	Errors []*Error
}

// Items returns every item in collection order
func (t *Tree) Items() []*Item {
	var items []*Item
	for _, f := range t.Files {
		items = append(items, f.Items...)
	}
	return items
}

// Len is the number of items
func (t *Tree) Len() int {
	n := 0
	for _, f := range t.Files {
		n += len(f.Items)
	}
	return n
}

// Lookup finds an item by id
func (t *Tree) Lookup(id string) (*Item, bool) {
	for _, f := range t.Files {
		for _, it := range f.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return nil, false
}

// Filter returns a tree with only the items keep accepts. Files left empty
// are dropped; collection errors are kept
func (t *Tree) Filter(keep func(*Item) bool) *Tree {
	out := &Tree{Root: t.Root, Errors: t.Errors}
	for _, f := range t.Files {
		nf := &File{Path: f.Path, RelPath: f.RelPath}
		for _, it := range f.Items {
			if !keep(it) {
				continue
			}
			cp := *it
			cp.File = nf
			nf.Items = append(nf.Items, &cp)
		}
		if len(nf.Items) > 0 {
			out.Files = append(out.Files, nf)
		}
	}
	return out
}

// Binding attaches a test to one notebook explicitly, outside directory hooks
type Binding struct {
	Notebook string
	Object   *testobj.Object
}

type options struct {
	bindings []Binding
	log      *slog.Logger
}

// Option configures Collect
type Option func(*options)

// WithBindings adds explicitly bound tests
func WithBindings(b ...Binding) Option {
	return func(o *options) { o.bindings = append(o.bindings, b...) }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Collect resolves each path and builds the tree. Paths keep their given
// order; files resolving to no tests get no container. Failures are recorded
// per file and never stop the pass
func Collect(engine *resolve.Engine, paths []string, opts ...Option) *Tree {
	o := options{log: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	reg := engine.Registry()
	tree := &Tree{Root: reg.Root().Path()}

	bound, order, bindErrs, invalid := groupBindings(reg, o.bindings)
	seen := make(map[pathkey.Key]bool, len(paths))

	collectOne := func(key pathkey.Key) {
		if seen[key] {
			return
		}
		seen[key] = true
		rel, err := key.Rel(reg.Root())
		if err != nil {
			rel = key.String()
		}
		if err := bindErrs[key]; err != nil {
			tree.Errors = append(tree.Errors, &Error{Path: key.Path(), RelPath: rel, Err: err})
			return
		}

		seq, err := engine.ResolveFile(key.Path())
		if err == nil {
			seq, err = merge(key, seq, bound[key])
		}
		var file *File
		if err == nil {
			file, err = buildFile(key.Path(), rel, seq)
		}
		if err != nil {
			o.log.Warn("collect.file.failed", "file", rel, "err", err)
			tree.Errors = append(tree.Errors, &Error{Path: key.Path(), RelPath: rel, Err: err})
			return
		}
		if len(file.Items) == 0 {
			return
		}
		tree.Files = append(tree.Files, file)
	}

	for _, p := range paths {
		key, err := reg.Key(p)
		if err != nil {
			tree.Errors = append(tree.Errors, &Error{Path: p, RelPath: p,
				Err: registry.ConfigError("collect", "", p, err)})
			continue
		}
		collectOne(key)
	}
	for _, key := range order {
		collectOne(key)
	}
	tree.Errors = append(tree.Errors, invalid...)
	o.log.Debug("collect.done", "files", len(tree.Files), "items", tree.Len(), "errors", len(tree.Errors))
	return tree
}

// groupBindings sorts bindings by notebook. Bindings whose notebook cannot
// be keyed come back in invalid
func groupBindings(reg *registry.Registry, bindings []Binding) (map[pathkey.Key]testobj.Sequence, []pathkey.Key, map[pathkey.Key]error, []*Error) {
	bound := make(map[pathkey.Key]testobj.Sequence)
	errs := make(map[pathkey.Key]error)
	var order []pathkey.Key
	var invalid []*Error
	for _, b := range bindings {
		key, err := reg.Key(b.Notebook)
		if err != nil {
			invalid = append(invalid, &Error{Path: b.Notebook, RelPath: b.Notebook,
				Err: registry.ConfigError("collect.bind", "", b.Notebook, err)})
			continue
		}
		if _, ok := bound[key]; !ok {
			order = append(order, key)
			bound[key] = testobj.Sequence{}
		}
		if b.Object == nil {
			errs[key] = registry.ConfigError("collect.bind", "", key.String(), errors.New("binding has no test object"))
			continue
		}
		if ok, err := key.IsRegularFile(); err != nil || !ok {
			errs[key] = registry.ConfigError("collect.bind", "", key.String(), fmt.Errorf("not a file: %s", key))
			continue
		}
		dup := false
		for _, have := range bound[key] {
			if have == b.Object {
				dup = true
				break
			}
		}
		if !dup {
			bound[key] = bound[key].Append(b.Object)
		}
	}
	return bound, order, errs, invalid
}

func merge(key pathkey.Key, resolved, bound testobj.Sequence) (testobj.Sequence, error) {
	if len(bound) == 0 {
		return resolved, nil
	}
	out := resolved.Append(bound...)
	if dups := out.Duplicates(); len(dups) > 0 {
		return nil, registry.ConfigError("collect.bind", "", key.String(),
			fmt.Errorf("bound tests clash with resolved tests %v", dups))
	}
	return out, nil
}

func buildFile(path, rel string, seq testobj.Sequence) (*File, error) {
	f := &File{Path: path, RelPath: rel}
	for _, obj := range seq {
		if !obj.IsGroup() {
			f.Items = append(f.Items, &Item{
				ID:     rel + "::" + obj.Name(),
				Name:   obj.Name(),
				File:   f,
				Object: obj,
			})
			continue
		}
		members := obj.Members()
		if dups := testobj.Sequence(members).Duplicates(); len(dups) > 0 {
			return nil, registry.ConfigError("collect", "", path,
				fmt.Errorf("group %s has duplicate members %v", obj.Name(), dups))
		}
		for _, m := range members {
			if m.IsGroup() {
				return nil, registry.ConfigError("collect", "", path,
					fmt.Errorf("group %s contains nested group %s", obj.Name(), m.Name()))
			}
			f.Items = append(f.Items, &Item{
				ID:     rel + "::" + obj.Name() + "::" + m.Name(),
				Name:   m.Name(),
				Group:  obj.Name(),
				File:   f,
				Object: m,
			})
		}
	}
	return f, nil
}

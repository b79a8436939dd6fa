// Package catalog names the test objects that directory config files can
// refer to
package catalog

import (
	"fmt"
	"sort"

	"nbtp/pkg/testobj"
)

// Catalog maps names to test objects
type Catalog struct {
	objs map[string]*testobj.Object
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{objs: make(map[string]*testobj.Object)}
}

// Default returns a catalog holding the built-in tests
func Default() *Catalog {
	c := New()
	if err := c.Add(Builtins()...); err != nil {
		panic(err)
	}
	return c
}

// Add registers objs; names must be unique
func (c *Catalog) Add(objs ...*testobj.Object) error {
	for _, o := range objs {
		if _, ok := c.objs[o.Name()]; ok {
			return fmt.Errorf("test %q is already defined", o.Name())
		}
		c.objs[o.Name()] = o
	}
	return nil
}

// With returns a copy of the catalog extended with objs
func (c *Catalog) With(objs ...*testobj.Object) (*Catalog, error) {
	out := New()
	for k, v := range c.objs {
		out.objs[k] = v
	}
	if err := out.Add(objs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Lookup finds a test by name
func (c *Catalog) Lookup(name string) (*testobj.Object, bool) {
	o, ok := c.objs[name]
	return o, ok
}

// Sequence looks up names in order; unknown names are an error
func (c *Catalog) Sequence(names []string) (testobj.Sequence, error) {
	seq := testobj.Sequence{}
	for _, n := range names {
		o, ok := c.objs[n]
		if !ok {
			return nil, fmt.Errorf("unknown test %q (known: %v)", n, c.Names())
		}
		seq = seq.Append(o)
	}
	return seq, nil
}

// Names lists every known name, sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.objs))
	for n := range c.objs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

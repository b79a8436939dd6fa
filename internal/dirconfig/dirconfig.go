// Package dirconfig reads per-directory YAML files and registers them as
// directory hooks.
//
// A file looks like:
//
//	define:
//	  kernel_is_python:
//	    jsonpath:
//	      "$.metadata.kernelspec.language": {equals: python}
//	groups:
//	  Smoke: [test_valid_notebook, kernel_is_python]
//	tests:
//	  inherit: true
//	  exclude: [test_has_kernelspec]
//	  use: [Smoke]
//	files:
//	  x.ipynb:
//	    inherit: true
//	    use: [test_no_error_outputs]
package dirconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"nbtp/internal/catalog"
	"nbtp/pkg/registry"
	"nbtp/pkg/testobj"
)

// File is a decoded directory config
type File struct {
	Define map[string]Definition `yaml:"define"`
	Groups map[string][]string   `yaml:"groups"`
	Tests  *Rule                 `yaml:"tests"`
	Files  map[string]Rule       `yaml:"files"`
}

// Definition declares a local test
type Definition struct {
	JSONPath map[string]catalog.Check `yaml:"jsonpath"`
}

// Rule describes how a sequence is derived from the current one. A bare
// list is shorthand for {use: [...]}
type Rule struct {
	Inherit bool     `yaml:"inherit"`
	Use     []string `yaml:"use"`
	Exclude []string `yaml:"exclude"`
}

func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var use []string
		if err := node.Decode(&use); err != nil {
			return err
		}
		*r = Rule{Use: use}
		return nil
	}
	type plain Rule
	var p plain
	if err := decodeStrict(node, &p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// decodeStrict re-decodes node with unknown fields rejected; yaml.Node.Decode
// does not carry the decoder's KnownFields setting
func decodeStrict(node *yaml.Node, out any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func (r Rule) inherits() bool { return r.Inherit || len(r.Exclude) > 0 }

func (r Rule) params() []registry.Param {
	if r.inherits() {
		return []registry.Param{registry.CurrentTests}
	}
	return nil
}

// Parse decodes a directory config. Unknown keys are errors
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}

type compiledRule struct {
	rule Rule
	use  testobj.Sequence
}

func (c compiledRule) apply(current testobj.Sequence) testobj.Sequence {
	out := testobj.Sequence{}
	if c.rule.inherits() {
		out = current.Without(c.rule.Exclude...)
	}
	return out.Append(c.use...)
}

// Hook compiles f into a directory hook. Names are looked up in cat after
// adding the file's own definitions and groups
func (f *File) Hook(cat *catalog.Catalog, source string) (registry.Hook, error) {
	local, err := f.catalog(cat)
	if err != nil {
		return registry.Hook{}, err
	}

	var tests *compiledRule
	if f.Tests != nil {
		use, err := local.Sequence(f.Tests.Use)
		if err != nil {
			return registry.Hook{}, fmt.Errorf("tests: %w", err)
		}
		tests = &compiledRule{rule: *f.Tests, use: use}
	}

	names := make([]string, 0, len(f.Files))
	files := make(map[string]compiledRule, len(f.Files))
	for name, rule := range f.Files {
		use, err := local.Sequence(rule.Use)
		if err != nil {
			return registry.Hook{}, fmt.Errorf("files.%s: %w", name, err)
		}
		files[name] = compiledRule{rule: rule, use: use}
		names = append(names, name)
	}
	sort.Strings(names)

	var params []registry.Param
	if tests != nil && tests.rule.inherits() {
		params = append(params, registry.CurrentTests)
	}
	if len(names) > 0 {
		params = append(params, registry.TestsFor)
	}

	return registry.Hook{
		Params: params,
		Source: source,
		Func: func(a registry.Args) (testobj.Sequence, error) {
			for _, name := range names {
				cr := files[name]
				fh := registry.Hook{
					Params: cr.rule.params(),
					Source: source + "#files." + name,
					Func: func(a registry.Args) (testobj.Sequence, error) {
						return cr.apply(a.CurrentTests), nil
					},
				}
				if err := a.TestsFor(name)(fh); err != nil {
					return nil, err
				}
			}
			if tests == nil {
				return nil, nil
			}
			return tests.apply(a.CurrentTests), nil
		},
	}, nil
}

func (f *File) catalog(cat *catalog.Catalog) (*catalog.Catalog, error) {
	var defined []*testobj.Object
	for _, name := range sortedKeys(f.Define) {
		def := f.Define[name]
		if len(def.JSONPath) == 0 {
			return nil, fmt.Errorf("define.%s: no checks", name)
		}
		o, err := catalog.JSONPath(name, def.JSONPath)
		if err != nil {
			return nil, fmt.Errorf("define.%s: %w", name, err)
		}
		defined = append(defined, o)
	}
	local, err := cat.With(defined...)
	if err != nil {
		return nil, fmt.Errorf("define: %w", err)
	}

	var groups []*testobj.Object
	for _, name := range sortedKeys(f.Groups) {
		members, err := local.Sequence(f.Groups[name])
		if err != nil {
			return nil, fmt.Errorf("groups.%s: %w", name, err)
		}
		groups = append(groups, testobj.Group(name, members...))
	}
	local, err = local.With(groups...)
	if err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	return local, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

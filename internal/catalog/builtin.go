package catalog

import (
	"errors"
	"fmt"

	"nbtp/internal/discovery"
	"nbtp/pkg/testobj"
)

// Names of the built-in tests
const (
	NotebookRuns   = "test_notebook_runs"
	ValidNotebook  = "test_valid_notebook"
	HasKernelSpec  = "test_has_kernelspec"
	NoErrorOutputs = "test_no_error_outputs"
)

var builtins = []*testobj.Object{
	testobj.New(NotebookRuns, func(c *testobj.Call) error {
		return c.Execute()
	}),
	testobj.New(ValidNotebook, func(c *testobj.Call) error {
		nb, err := discovery.ReadNotebook(c.Notebook)
		if err != nil {
			return err
		}
		return nb.Validate()
	}),
	testobj.New(HasKernelSpec, func(c *testobj.Call) error {
		nb, err := discovery.ReadNotebook(c.Notebook)
		if err != nil {
			return err
		}
		if nb.Metadata.KernelSpec == nil || nb.Metadata.KernelSpec.Name == "" {
			return errors.New("notebook metadata has no kernelspec name")
		}
		return nil
	}),
	testobj.New(NoErrorOutputs, func(c *testobj.Call) error {
		nb, err := discovery.ReadNotebook(c.Notebook)
		if err != nil {
			return err
		}
		if idx, out, ok := nb.FirstError(); ok {
			return fmt.Errorf("stored output of cell %d is an error: %s: %s", idx+1, out.EName, out.EValue)
		}
		return nil
	}),
}

// Builtins returns the built-in tests. The objects are shared, so identity
// is stable across sessions
func Builtins() []*testobj.Object {
	return append([]*testobj.Object(nil), builtins...)
}

package registry

import (
	"fmt"

	"nbtp/pkg/testobj"
)

// Param names a value a hook asks the engine for
type Param string

const (
	// CurrentTests is the sequence resolved so far (the parent's result for
	// directory hooks, the directory's result for file hooks)
	CurrentTests Param = "current_tests"
	// TestsFor registers per-file overrides scoped to the hook's directory
	TestsFor Param = "tests_for"
)

// Registrar registers a file hook for the path it was obtained for
type Registrar func(h Hook) error

// TestsForFunc returns the registrar for path, resolved against the hook's
// directory
type TestsForFunc func(path string) Registrar

// Args carries the declared subset of hook inputs. Undeclared fields are zero
type Args struct {
	CurrentTests testobj.Sequence
	TestsFor     TestsForFunc
}

// HookFunc returns the new sequence, or nil to leave the current one unchanged
type HookFunc func(Args) (testobj.Sequence, error)

// Hook is a hook function together with its capability descriptor
type Hook struct {
	Params []Param
	Func   HookFunc
	// Source names where the hook came from, for error messages
	Source string
}

// NewHook is shorthand for Hook{Params: params, Func: fn}
func NewHook(fn HookFunc, params ...Param) Hook {
	return Hook{Params: params, Func: fn}
}

// Declares reports whether the hook asked for p
func (h Hook) Declares(p Param) bool {
	for _, have := range h.Params {
		if have == p {
			return true
		}
	}
	return false
}

var (
	directoryParams = []Param{CurrentTests, TestsFor}
	fileParams      = []Param{CurrentTests}
)

func (h Hook) validate(allowed []Param) error {
	if h.Func == nil {
		return fmt.Errorf("hook has no function")
	}
	seen := make(map[Param]bool, len(h.Params))
	for _, p := range h.Params {
		ok := false
		for _, a := range allowed {
			if p == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("unsupported hook parameter %q (supported: %v)", p, allowed)
		}
		if seen[p] {
			return fmt.Errorf("hook parameter %q declared twice", p)
		}
		seen[p] = true
	}
	return nil
}

// binding is what the engine can offer a hook
type binding struct {
	current  testobj.Sequence
	testsFor TestsForFunc
}

var providers = map[Param]func(b binding, a *Args){
	CurrentTests: func(b binding, a *Args) {
		a.CurrentTests = testobj.Sequence{}.Append(b.current...)
	},
	TestsFor: func(b binding, a *Args) {
		a.TestsFor = b.testsFor
	},
}

// Bind builds the Args for h, filling only the declared parameters
func (h Hook) Bind(current testobj.Sequence, testsFor TestsForFunc) Args {
	var a Args
	b := binding{current: current, testsFor: testsFor}
	for _, p := range h.Params {
		if provide, ok := providers[p]; ok {
			provide(b, &a)
		}
	}
	return a
}

// Call runs the hook with its declared arguments. Panics are returned as
// errors
func (h Hook) Call(current testobj.Sequence, testsFor TestsForFunc) (seq testobj.Sequence, err error) {
	defer func() {
		if r := recover(); r != nil {
			seq, err = nil, fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h.Func(h.Bind(current, testsFor))
}

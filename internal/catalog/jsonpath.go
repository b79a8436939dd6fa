package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"nbtp/internal/discovery"
	"nbtp/pkg/testobj"
)

// Check is one jsonpath assertion on the notebook document
type Check struct {
	Exists  *bool  `yaml:"exists,omitempty"`
	Equals  any    `yaml:"equals,omitempty"`
	Matches string `yaml:"matches,omitempty"`
}

// JSONPath builds a test that evaluates checks against the notebook's JSON.
// Every expression must resolve unless its check says exists: false
func JSONPath(name string, checks map[string]Check) (*testobj.Object, error) {
	exprs := make([]string, 0, len(checks))
	for expr, chk := range checks {
		if chk.Matches != "" {
			if _, err := regexp.Compile(chk.Matches); err != nil {
				return nil, fmt.Errorf("%s: %s: invalid matches pattern: %w", name, expr, err)
			}
		}
		exprs = append(exprs, expr)
	}
	sort.Strings(exprs)

	return testobj.New(name, func(c *testobj.Call) error {
		nb, err := discovery.ReadNotebook(c.Notebook)
		if err != nil {
			return err
		}
		var failed []string
		for _, expr := range exprs {
			if msg := evaluate(expr, checks[expr], nb.Doc); msg != "" {
				failed = append(failed, msg)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%s", strings.Join(failed, "; "))
		}
		return nil
	}), nil
}

func evaluate(expr string, chk Check, doc any) string {
	val, err := jsonpath.Get(expr, doc)
	present := err == nil && !isEmpty(val)

	if chk.Exists != nil && !*chk.Exists {
		if present {
			return fmt.Sprintf("jsonpath %q: expected no value, got %v", expr, val)
		}
		return ""
	}
	if !present {
		if err != nil {
			return fmt.Sprintf("jsonpath %q: %v", expr, err)
		}
		return fmt.Sprintf("jsonpath %q: expected value to exist, got empty", expr)
	}
	if chk.Equals != nil && fmt.Sprint(val) != fmt.Sprint(chk.Equals) {
		return fmt.Sprintf("jsonpath %q: expected %v, got %v", expr, chk.Equals, val)
	}
	if chk.Matches != "" {
		re := regexp.MustCompile(chk.Matches)
		if !re.MatchString(fmt.Sprint(val)) {
			return fmt.Sprintf("jsonpath %q: %v does not match %q", expr, val, chk.Matches)
		}
	}
	return ""
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

package testobj

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject_Location(t *testing.T) {
	o := New("test_a", nil)
	assert.True(t, strings.HasPrefix(o.Location(), "testobj_test.go:"), o.Location())
	assert.False(t, o.IsGroup())
	assert.Nil(t, o.Members())
	assert.Equal(t, "test_a@"+o.Location(), o.Identity())
}

func TestGroup_MembersAreCopied(t *testing.T) {
	a, b := New("test_a", nil), New("test_b", nil)
	g := Group("Smoke", a, b)

	members := g.Members()
	members[0] = nil
	assert.Equal(t, []*Object{a, b}, g.Members())
	assert.True(t, g.IsGroup())
	assert.Error(t, g.Run(NewCall(context.Background(), "/x.ipynb", "x", Fixtures{}, nil)))
}

func TestSequence_AppendDoesNotAlias(t *testing.T) {
	a, b, c := New("a", nil), New("b", nil), New("c", nil)
	base := make(Sequence, 1, 4)
	base[0] = a

	left := base.Append(b)
	right := base.Append(c)

	assert.Equal(t, []string{"a", "b"}, left.Names())
	assert.Equal(t, []string{"a", "c"}, right.Names())
	assert.Equal(t, []string{"a"}, base.Names())
}

func TestSequence_WithoutAndDuplicates(t *testing.T) {
	a, b := New("a", nil), New("b", nil)
	s := Of(a, b, New("a", nil))

	assert.Equal(t, []string{"a"}, s.Duplicates())
	assert.Equal(t, []string{"b"}, s.Without("a").Names())
	assert.NotNil(t, Of(a).Without("a"))
	assert.Empty(t, Of(a, b).Duplicates())

	got, ok := s.Lookup("b")
	require.True(t, ok)
	assert.Same(t, b, got)

	assert.Nil(t, Sequence(nil).Clone())
	assert.NotNil(t, Sequence{}.Clone())
}

type recordingExecutor struct {
	got ExecRequest
	err error
}

func (r *recordingExecutor) Execute(_ context.Context, req ExecRequest) error {
	r.got = req
	return r.err
}

func TestCall_Execute(t *testing.T) {
	exec := &recordingExecutor{}
	nb := filepath.Join("/work", "sub", "x.ipynb")
	call := NewCall(context.Background(), nb, "sub/x.ipynb::test_notebook_runs", Fixtures{
		Executor:   exec,
		OutputDir:  "/tmp/out",
		Parameters: map[string]any{"alpha": 1},
	}, nil)

	require.NoError(t, call.Execute())
	assert.Equal(t, nb, exec.got.Notebook)
	assert.Equal(t, filepath.Join("/tmp/out", "x.output.ipynb"), exec.got.Output)
	assert.Equal(t, filepath.Join("/work", "sub"), exec.got.Cwd)
	assert.Equal(t, 1, exec.got.Parameters["alpha"])
}

func TestCall_ExecuteWithoutExecutor(t *testing.T) {
	call := NewCall(nil, "/x.ipynb", "x.ipynb::t", Fixtures{}, nil)
	assert.ErrorIs(t, call.Execute(), ErrNoExecutor)
	assert.NotNil(t, call.Context())
}

func TestExecutionError_Message(t *testing.T) {
	err := &ExecutionError{Notebook: "sub/x.ipynb", CellIndex: 2, EName: "ZeroDivisionError", EValue: "division by zero"}
	assert.Equal(t, "sub/x.ipynb:cell 3: ZeroDivisionError: division by zero", err.Error())

	cause := errors.New("exit status 1")
	err = &ExecutionError{Notebook: "x.ipynb", CellIndex: -1, Err: cause}
	assert.Equal(t, "x.ipynb: exit status 1", err.Error())
	assert.ErrorIs(t, err, cause)
}

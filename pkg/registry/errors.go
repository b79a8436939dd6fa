package registry

import (
	"errors"
	"fmt"
)

// Kind classifies collection failures
type Kind string

const (
	// KindConfig covers malformed hooks, bad paths and name clashes
	KindConfig Kind = "configuration"
	// KindHook covers errors and panics raised by user hooks
	KindHook Kind = "hook execution"
)

// Error wraps a collection failure with the directory or file it belongs to
type Error struct {
	Op   string
	Kind Kind
	Dir  string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	switch {
	case e.Path != "":
		base += fmt.Sprintf(" (path=%s)", e.Path)
	case e.Dir != "":
		base += fmt.Sprintf(" (dir=%s)", e.Dir)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err wraps an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

// ConfigError builds a KindConfig error
func ConfigError(op, dir, path string, err error) *Error {
	return &Error{Op: op, Kind: KindConfig, Dir: dir, Path: path, Err: err}
}

// HookError builds a KindHook error
func HookError(op, dir, path string, err error) *Error {
	return &Error{Op: op, Kind: KindHook, Dir: dir, Path: path, Err: err}
}

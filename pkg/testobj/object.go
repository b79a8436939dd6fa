// Package testobj defines the test objects that directory hooks hand around:
// plain test functions and named groups of them
package testobj

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Func is the body of a test. A non-nil error fails the item
type Func func(c *Call) error

// Object is an immutable test: either a function or a group of functions.
// Identity is name plus the location where it was constructed
type Object struct {
	name     string
	location string
	fn       Func
	group    bool
	members  []*Object
}

// New builds a function test named name
func New(name string, fn Func) *Object {
	return &Object{name: name, location: caller(2), fn: fn}
}

// Group builds a container whose members are collected as separate items
func Group(name string, members ...*Object) *Object {
	return &Object{
		name:     name,
		location: caller(2),
		group:    true,
		members:  append([]*Object(nil), members...),
	}
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func (o *Object) Name() string     { return o.name }
func (o *Object) Location() string { return o.location }
func (o *Object) IsGroup() bool    { return o.group }

// Members returns a copy of the group's members; nil for functions
func (o *Object) Members() []*Object {
	if !o.IsGroup() {
		return nil
	}
	return append([]*Object(nil), o.members...)
}

// Identity is the name qualified by the defining location
func (o *Object) Identity() string {
	return o.name + "@" + o.location
}

// Run executes a function test. Running a group is an error
func (o *Object) Run(c *Call) error {
	if o.IsGroup() {
		return fmt.Errorf("%s is a group and cannot be run directly", o.name)
	}
	if o.fn == nil {
		return nil
	}
	return o.fn(c)
}

func (o *Object) String() string {
	if o.IsGroup() {
		return fmt.Sprintf("group %s (%s)", o.name, o.location)
	}
	return fmt.Sprintf("test %s (%s)", o.name, o.location)
}

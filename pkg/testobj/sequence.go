package testobj

// Sequence is an ordered list of tests. Order is execution order.
//
// A nil Sequence returned from a hook means "unchanged"; an empty non-nil
// Sequence disables every test
type Sequence []*Object

// Of builds a sequence from objs
func Of(objs ...*Object) Sequence {
	return append(Sequence{}, objs...)
}

// Append returns a new sequence with objs after s. s is never modified
func (s Sequence) Append(objs ...*Object) Sequence {
	out := make(Sequence, 0, len(s)+len(objs))
	out = append(out, s...)
	return append(out, objs...)
}

// Without returns a copy of s minus the tests with the given names
func (s Sequence) Without(names ...string) Sequence {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := Sequence{}
	for _, o := range s {
		if !drop[o.Name()] {
			out = append(out, o)
		}
	}
	return out
}

// Clone copies s, keeping nil as nil
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	return append(Sequence{}, s...)
}

// Names lists the test names in order
func (s Sequence) Names() []string {
	names := make([]string, len(s))
	for i, o := range s {
		names[i] = o.Name()
	}
	return names
}

// Duplicates returns each name that appears more than once, in first-seen order
func (s Sequence) Duplicates() []string {
	return duplicates(s)
}

func duplicates(objs []*Object) []string {
	seen := make(map[string]int, len(objs))
	var dups []string
	for _, o := range objs {
		seen[o.Name()]++
		if seen[o.Name()] == 2 {
			dups = append(dups, o.Name())
		}
	}
	return dups
}

// Lookup returns the first test named name
func (s Sequence) Lookup(name string) (*Object, bool) {
	for _, o := range s {
		if o.Name() == name {
			return o, true
		}
	}
	return nil, false
}

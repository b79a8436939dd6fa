// Package pathkey turns filesystem paths into comparable keys.
//
// Two paths that point at the same file compare equal once normalised:
// "a/b.ipynb", "a/./c/../b.ipynb" and a symlinked route to the same file all
// map to one Key
package pathkey

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key is an absolute, cleaned, symlink-resolved, NFC, slash-separated path
type Key string

// Normalize resolves p against base (when p is relative) and returns its Key.
// An empty base means the current working directory
func Normalize(base, p string) (Key, error) {
	if p == "" {
		return "", errors.New("empty path")
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("absolute path for %s: %w", p, err)
	}
	return Key(filepath.ToSlash(norm.NFC.String(resolveLinks(abs)))), nil
}

// MustNormalize is Normalize for paths known to be valid; it panics otherwise
func MustNormalize(base, p string) Key {
	k, err := Normalize(base, p)
	if err != nil {
		panic(err)
	}
	return k
}

// resolveLinks evaluates symlinks on the longest existing prefix of abs, so
// paths to files that do not exist yet still normalise consistently
func resolveLinks(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	dir, file := filepath.Split(abs)
	dir = filepath.Clean(dir)
	if dir == abs {
		return abs
	}
	return filepath.Join(resolveLinks(dir), file)
}

func (k Key) String() string { return string(k) }

// Path returns the key in the host's native separator form
func (k Key) Path() string { return filepath.FromSlash(string(k)) }

// Base returns the last element of the key
func (k Key) Base() string { return filepath.Base(k.Path()) }

// Dir returns the parent directory key. The parent of a root is the root
func (k Key) Dir() Key {
	return Key(filepath.ToSlash(filepath.Dir(k.Path())))
}

// Within reports whether k equals dir or lies beneath it
func (k Key) Within(dir Key) bool {
	if k == dir {
		return true
	}
	prefix := string(dir)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(string(k), prefix)
}

// Rel returns k relative to root, slash separated. It fails when k is not
// within root
func (k Key) Rel(root Key) (string, error) {
	if !k.Within(root) {
		return "", fmt.Errorf("%s is not within %s", k, root)
	}
	rel, err := filepath.Rel(root.Path(), k.Path())
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Ancestors returns the directory chain from root down to dir, inclusive
func Ancestors(root, dir Key) ([]Key, error) {
	if !dir.Within(root) {
		return nil, fmt.Errorf("%s is not within %s", dir, root)
	}
	var chain []Key
	for cur := dir; ; cur = cur.Dir() {
		chain = append(chain, cur)
		if cur == root {
			break
		}
		if cur.Dir() == cur {
			return nil, fmt.Errorf("%s is not within %s", dir, root)
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// IsRegularFile reports whether k names an existing regular file
func (k Key) IsRegularFile() (bool, error) {
	info, err := os.Stat(k.Path())
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

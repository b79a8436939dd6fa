package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NotebookExt is the extension of collected files
const NotebookExt = ".ipynb"

// Scanner scans for notebooks and directory config files
type Scanner struct {
	skipDirs map[string]bool
}

// NewScanner creates a new Scanner with the given directories to skip
func NewScanner(skipDirs []string) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{skipDirs: skipMap}
}

// Scan finds all notebooks under root in lexical walk order
func (s *Scanner) Scan(root string) ([]string, error) {
	return s.walk(root, func(name string) bool {
		return strings.HasSuffix(name, NotebookExt) && !strings.HasSuffix(name, ".output"+NotebookExt)
	})
}

// FindConfigs finds every file called name under root, parents before children
func (s *Scanner) FindConfigs(root, name string) ([]string, error) {
	found, err := s.walk(root, func(base string) bool { return base == name })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(found, func(i, j int) bool {
		return depth(found[i]) < depth(found[j])
	})
	return found, nil
}

func depth(path string) int {
	return strings.Count(filepath.ToSlash(path), "/")
}

func (s *Scanner) walk(root string, match func(name string) bool) ([]string, error) {
	var found []string

	// Clean and validate the root path
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test path is not a directory: %s", root)
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			// Hidden directories include .ipynb_checkpoints
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if s.skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		if match(d.Name()) {
			found = append(found, path)
		}
		return nil
	})

	return found, err
}

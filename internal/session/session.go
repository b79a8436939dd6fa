// Package session wires configuration, directory hooks and collection into
// one pass over a project
package session

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"nbtp/internal/catalog"
	"nbtp/internal/config"
	"nbtp/internal/dirconfig"
	"nbtp/internal/discovery"
	"nbtp/pkg/collect"
	"nbtp/pkg/registry"
	"nbtp/pkg/resolve"
)

// Session is the outcome of collecting a project
type Session struct {
	Config    *config.Config
	Catalog   *catalog.Catalog
	Registry  *registry.Registry
	Engine    *resolve.Engine
	Configs   []string // directory config files that were loaded
	Notebooks []string // notebooks handed to collection, in order
	Tree      *collect.Tree
}

// Build collects the notebooks under the configured test path. The project
// path is the collection root, so directory hooks above the test path still
// apply
func Build(cfg *config.Config, cat *catalog.Catalog, log *slog.Logger, opts ...collect.Option) (*Session, error) {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	root, err := filepath.Abs(cfg.ProjectPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}

	base, err := cat.Sequence(cfg.DefaultTests)
	if err != nil {
		return nil, fmt.Errorf("default tests: %w", err)
	}
	reg, err := registry.New(root, registry.WithBase(base), registry.WithLogger(log))
	if err != nil {
		return nil, err
	}

	scanner := discovery.NewScanner(cfg.PathsToIgnore)
	configs, err := dirconfig.NewLoader(reg, cat, scanner, cfg.DirConfigFile, log).Load()
	if err != nil {
		return nil, err
	}

	// Scan from an absolute path so notebook keys resolve against the root
	// and not against the working directory a second time
	testPath, err := filepath.Abs(cfg.GetTestPath())
	if err != nil {
		return nil, fmt.Errorf("resolve test path: %w", err)
	}
	notebooks, err := findNotebooks(scanner, testPath)
	if err != nil {
		return nil, err
	}
	filter := discovery.NewFilter()
	notebooks = filter.FilterByName(notebooks, cfg.Flags.NameFilter)

	engine := resolve.New(reg, resolve.WithLogger(log))
	tree := collect.Collect(engine, notebooks, append(opts, collect.WithLogger(log))...)
	if sel := cfg.Flags.Select; sel != "" {
		tree = tree.Filter(func(it *collect.Item) bool { return filter.Match(it.ID, sel) })
	}

	log.Info("session.collected",
		"root", root,
		"configs", len(configs),
		"notebooks", len(notebooks),
		"items", tree.Len(),
		"errors", len(tree.Errors),
	)

	return &Session{
		Config:    cfg,
		Catalog:   cat,
		Registry:  reg,
		Engine:    engine,
		Configs:   configs,
		Notebooks: notebooks,
		Tree:      tree,
	}, nil
}

// findNotebooks scans testPath, or returns it alone when it names a notebook
func findNotebooks(scanner *discovery.Scanner, testPath string) ([]string, error) {
	info, err := os.Stat(testPath)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", testPath)
	}
	if !info.IsDir() {
		if !strings.HasSuffix(testPath, discovery.NotebookExt) {
			return nil, fmt.Errorf("test path is not a notebook or directory: %s", testPath)
		}
		return []string{testPath}, nil
	}
	return scanner.Scan(testPath)
}

// SelectIDs keeps only the items whose ids are in ids
func SelectIDs(tree *collect.Tree, ids []string) *collect.Tree {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return tree.Filter(func(it *collect.Item) bool { return want[it.ID] })
}

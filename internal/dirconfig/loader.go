package dirconfig

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"nbtp/internal/catalog"
	"nbtp/internal/discovery"
	"nbtp/pkg/registry"
	"nbtp/pkg/testobj"
)

// Loader registers every config file under a root with a registry
type Loader struct {
	reg     *registry.Registry
	cat     *catalog.Catalog
	scanner *discovery.Scanner
	name    string
	log     *slog.Logger
}

// NewLoader creates a Loader looking for files called name
func NewLoader(reg *registry.Registry, cat *catalog.Catalog, scanner *discovery.Scanner, name string, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Loader{reg: reg, cat: cat, scanner: scanner, name: name, log: log}
}

// Load finds and registers the config files under the registry root. A
// broken file fails only its own subtree; the returned error covers scanning
// and registration problems
func (l *Loader) Load() ([]string, error) {
	paths, err := l.scanner.FindConfigs(l.reg.Root().Path(), l.name)
	if err != nil {
		return nil, fmt.Errorf("find %s files: %w", l.name, err)
	}
	var errs []error
	for _, p := range paths {
		if err := l.LoadFile(p); err != nil {
			errs = append(errs, err)
		}
	}
	return paths, errors.Join(errs...)
}

// LoadFile registers the hook declared by the config file at path for its
// directory
func (l *Loader) LoadFile(path string) error {
	dir := filepath.Dir(path)
	hook, err := l.compile(path)
	if err != nil {
		l.log.Warn("dirconfig.invalid", "path", path, "err", err)
		hook = failing(path, err)
	}
	if err := l.reg.RegisterDefault(dir, hook); err != nil {
		return err
	}
	l.log.Debug("dirconfig.loaded", "path", path, "params", hook.Params)
	return nil
}

func (l *Loader) compile(path string) (registry.Hook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.Hook{}, err
	}
	f, err := Parse(data)
	if err != nil {
		return registry.Hook{}, err
	}
	return f.Hook(l.cat, path)
}

// failing is registered in place of a broken config so every notebook below
// it reports the problem
func failing(path string, err error) registry.Hook {
	cfgErr := registry.ConfigError("dirconfig.load", filepath.Dir(path), path, err)
	return registry.Hook{
		Source: path,
		Func: func(registry.Args) (testobj.Sequence, error) {
			return nil, cfgErr
		},
	}
}

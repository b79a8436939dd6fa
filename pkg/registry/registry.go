// Package registry stores the hooks each directory contributes to test
// resolution: an optional default hook and any number of per-file overrides
package registry

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"nbtp/pkg/pathkey"
	"nbtp/pkg/testobj"
)

// DirConfig is everything registered for one directory
type DirConfig struct {
	Dir       pathkey.Key
	hook      *Hook
	overrides map[pathkey.Key]Hook
	sealed    bool
	errs      []error
}

// Default returns the directory's default hook, if any
func (d *DirConfig) Default() (Hook, bool) {
	if d == nil || d.hook == nil {
		return Hook{}, false
	}
	return *d.hook, true
}

// Override returns the file hook registered here for file
func (d *DirConfig) Override(file pathkey.Key) (Hook, bool) {
	if d == nil {
		return Hook{}, false
	}
	h, ok := d.overrides[file]
	return h, ok
}

// Overrides lists the files with an override here, sorted
func (d *DirConfig) Overrides() []pathkey.Key {
	if d == nil {
		return nil
	}
	keys := make([]pathkey.Key, 0, len(d.overrides))
	for k := range d.overrides {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Sealed reports whether the directory has been resolved and is read-only
func (d *DirConfig) Sealed() bool { return d != nil && d.sealed }

// Err joins the registration errors raised through this directory's
// tests_for registrars
func (d *DirConfig) Err() error {
	if d == nil {
		return nil
	}
	return errors.Join(d.errs...)
}

// Registry holds the directory configs of one collection session
type Registry struct {
	root pathkey.Key
	base testobj.Sequence
	dirs map[pathkey.Key]*DirConfig
	log  *slog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithBase seeds the chain above the root directory
func WithBase(seq testobj.Sequence) Option {
	return func(r *Registry) { r.base = seq.Clone() }
}

// WithLogger sets the logger used for registration events
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a registry rooted at root, which must be an existing directory
func New(root string, opts ...Option) (*Registry, error) {
	key, err := pathkey.Normalize("", root)
	if err != nil {
		return nil, ConfigError("registry.new", root, "", err)
	}
	info, err := os.Stat(key.Path())
	if err != nil {
		return nil, ConfigError("registry.new", key.String(), "", err)
	}
	if !info.IsDir() {
		return nil, ConfigError("registry.new", key.String(), "", fmt.Errorf("not a directory: %s", key))
	}
	r := &Registry{
		root: key,
		base: testobj.Sequence{},
		dirs: make(map[pathkey.Key]*DirConfig),
		log:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Registry) Root() pathkey.Key { return r.root }

// Base returns a copy of the session seed
func (r *Registry) Base() testobj.Sequence { return r.base.Clone() }

// Key normalises p, resolving relative paths against the root
func (r *Registry) Key(p string) (pathkey.Key, error) {
	return pathkey.Normalize(r.root.Path(), p)
}

// Lookup returns the config registered for dir, or nil
func (r *Registry) Lookup(dir pathkey.Key) *DirConfig {
	return r.dirs[dir]
}

// Dirs lists every directory with a config, sorted
func (r *Registry) Dirs() []pathkey.Key {
	keys := make([]pathkey.Key, 0, len(r.dirs))
	for k := range r.dirs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (r *Registry) dirKey(op, dir string) (pathkey.Key, error) {
	key, err := r.Key(dir)
	if err != nil {
		return "", ConfigError(op, dir, "", err)
	}
	if !key.Within(r.root) {
		return "", ConfigError(op, key.String(), "", fmt.Errorf("directory is outside the collection root %s", r.root))
	}
	return key, nil
}

func (r *Registry) config(key pathkey.Key) *DirConfig {
	cfg, ok := r.dirs[key]
	if !ok {
		cfg = &DirConfig{Dir: key, overrides: make(map[pathkey.Key]Hook)}
		r.dirs[key] = cfg
	}
	return cfg
}

// RegisterDefault sets the default hook of dir. Each directory gets at most
// one
func (r *Registry) RegisterDefault(dir string, h Hook) error {
	const op = "registry.register_default"
	key, err := r.dirKey(op, dir)
	if err != nil {
		return err
	}
	if err := h.validate(directoryParams); err != nil {
		return ConfigError(op, key.String(), "", err)
	}
	cfg := r.config(key)
	if cfg.sealed {
		return ConfigError(op, key.String(), "", errors.New("directory already resolved"))
	}
	if cfg.hook != nil {
		return ConfigError(op, key.String(), "", fmt.Errorf("default hook already registered (by %s)", sourceOf(*cfg.hook)))
	}
	cfg.hook = &h
	r.log.Debug("registry.default", "dir", key.String(), "params", h.Params, "source", h.Source)
	return nil
}

// RegisterFileOverride registers h for path, resolved against dir. The path
// must name an existing regular file beneath dir. A later registration for
// the same file in the same directory replaces the earlier one
func (r *Registry) RegisterFileOverride(dir, path string, h Hook) error {
	const op = "registry.register_file_override"
	key, err := r.dirKey(op, dir)
	if err != nil {
		return err
	}
	file, err := pathkey.Normalize(key.Path(), path)
	if err != nil {
		return ConfigError(op, key.String(), path, err)
	}
	if file == key || !file.Within(key) {
		return ConfigError(op, key.String(), file.String(),
			fmt.Errorf("tests_for path must be inside the registering directory %s", key))
	}
	regular, err := file.IsRegularFile()
	if errors.Is(err, fs.ErrNotExist) {
		return ConfigError(op, key.String(), file.String(), fmt.Errorf("no such file: %s", file))
	}
	if err != nil {
		return ConfigError(op, key.String(), file.String(), err)
	}
	if !regular {
		return ConfigError(op, key.String(), file.String(), fmt.Errorf("not a file: %s", file))
	}
	if err := h.validate(fileParams); err != nil {
		return ConfigError(op, key.String(), file.String(), err)
	}
	cfg := r.config(key)
	if cfg.sealed {
		return ConfigError(op, key.String(), file.String(), errors.New("directory already resolved"))
	}
	if _, replaced := cfg.overrides[file]; replaced {
		r.log.Debug("registry.override.replaced", "dir", key.String(), "file", file.String())
	}
	cfg.overrides[file] = h
	r.log.Debug("registry.override", "dir", key.String(), "file", file.String(), "params", h.Params)
	return nil
}

// TestsFor returns the tests_for function handed to dir's default hook.
// Registration errors are returned and also recorded on the directory so a
// hook that drops them still fails
func (r *Registry) TestsFor(dir pathkey.Key) TestsForFunc {
	return func(path string) Registrar {
		return func(h Hook) error {
			err := r.RegisterFileOverride(dir.Path(), path, h)
			if err != nil {
				cfg := r.config(dir)
				cfg.errs = append(cfg.errs, err)
			}
			return err
		}
	}
}

// Seal marks dir as resolved. Later registrations against it fail
func (r *Registry) Seal(dir pathkey.Key) {
	r.config(dir).sealed = true
}

func sourceOf(h Hook) string {
	if h.Source == "" {
		return "an earlier call"
	}
	return h.Source
}

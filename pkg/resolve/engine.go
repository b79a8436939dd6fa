// Package resolve computes the effective tests for each notebook by walking
// the directory chain from the collection root and applying hooks
package resolve

import (
	"fmt"
	"io"
	"log/slog"

	"nbtp/pkg/pathkey"
	"nbtp/pkg/registry"
	"nbtp/pkg/testobj"
)

type result struct {
	seq testobj.Sequence
	err error
}

// Engine resolves and caches per-directory and per-file test sequences for
// one session. It is not safe for concurrent use
type Engine struct {
	reg   *registry.Registry
	dirs  map[pathkey.Key]result
	files map[pathkey.Key]result
	log   *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine's logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an engine over reg
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:   reg,
		dirs:  make(map[pathkey.Key]result),
		files: make(map[pathkey.Key]result),
		log:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine reads from
func (e *Engine) Registry() *registry.Registry { return e.reg }

// ResolveDir returns the sequence in effect for dir after applying every
// default hook from the root down to dir
func (e *Engine) ResolveDir(dir string) (testobj.Sequence, error) {
	key, err := e.reg.Key(dir)
	if err != nil {
		return nil, registry.ConfigError("resolve.dir", dir, "", err)
	}
	if !key.Within(e.reg.Root()) {
		return nil, registry.ConfigError("resolve.dir", key.String(), "",
			fmt.Errorf("directory is outside the collection root %s", e.reg.Root()))
	}
	seq, err := e.resolveDir(key)
	return seq.Clone(), err
}

func (e *Engine) resolveDir(key pathkey.Key) (testobj.Sequence, error) {
	if r, ok := e.dirs[key]; ok {
		return r.seq, r.err
	}

	var current testobj.Sequence
	if key == e.reg.Root() {
		current = e.reg.Base()
	} else {
		parent, err := e.resolveDir(key.Dir())
		if err != nil {
			e.dirs[key] = result{err: err}
			return nil, err
		}
		current = parent
	}

	cfg := e.reg.Lookup(key)
	if hook, ok := cfg.Default(); ok {
		e.log.Debug("resolve.dir.hook", "dir", key.String(), "params", hook.Params, "source", hook.Source)
		seq, err := hook.Call(current, e.reg.TestsFor(key))
		if err == nil {
			err = cfg.Err()
		}
		if err != nil {
			if !registry.IsKind(err, registry.KindConfig) {
				err = registry.HookError("resolve.dir", key.String(), "", withSource(hook, err))
			}
			e.reg.Seal(key)
			e.dirs[key] = result{err: err}
			e.log.Warn("resolve.dir.failed", "dir", key.String(), "err", err)
			return nil, err
		}
		if seq != nil {
			current = seq.Clone()
		}
	}

	e.reg.Seal(key)
	e.dirs[key] = result{seq: current}
	return current, nil
}

// ResolveFile returns the ordered tests bound to file. Relative paths are
// taken from the collection root. Results, including errors, are cached
func (e *Engine) ResolveFile(file string) (testobj.Sequence, error) {
	key, err := e.reg.Key(file)
	if err != nil {
		return nil, registry.ConfigError("resolve.file", "", file, err)
	}
	seq, err := e.resolveFile(key)
	return seq.Clone(), err
}

func (e *Engine) resolveFile(key pathkey.Key) (testobj.Sequence, error) {
	if r, ok := e.files[key]; ok {
		return r.seq, r.err
	}
	seq, err := e.computeFile(key)
	if err != nil {
		e.log.Warn("resolve.file.failed", "file", key.String(), "err", err)
		seq = nil
	}
	e.files[key] = result{seq: seq, err: err}
	return seq, err
}

func (e *Engine) computeFile(key pathkey.Key) (testobj.Sequence, error) {
	const op = "resolve.file"
	root := e.reg.Root()
	if key == root || !key.Within(root) {
		return nil, registry.ConfigError(op, "", key.String(),
			fmt.Errorf("file is outside the collection root %s", root))
	}

	current, err := e.resolveDir(key.Dir())
	if err != nil {
		return nil, err
	}

	chain, err := pathkey.Ancestors(root, key.Dir())
	if err != nil {
		return nil, registry.ConfigError(op, "", key.String(), err)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		hook, ok := e.reg.Lookup(chain[i]).Override(key)
		if !ok {
			continue
		}
		e.log.Debug("resolve.file.override", "file", key.String(), "dir", chain[i].String())
		seq, err := hook.Call(current, nil)
		if err != nil {
			return nil, registry.HookError(op, chain[i].String(), key.String(), withSource(hook, err))
		}
		if seq != nil {
			current = seq.Clone()
		}
		break
	}

	if dups := current.Duplicates(); len(dups) > 0 {
		return nil, registry.ConfigError(op, "", key.String(),
			fmt.Errorf("duplicate test names %v", dups))
	}
	if current == nil {
		current = testobj.Sequence{}
	}
	return current, nil
}

func withSource(h registry.Hook, err error) error {
	if h.Source == "" {
		return err
	}
	return fmt.Errorf("%s: %w", h.Source, err)
}

// Package world hosts module composition on top of the grid registry: a
// World owns one registry plus a cache of module instances keyed by
// (scope, module type), and modules declare scoped resources through refs.
package world

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/lazygrid/grid"
)

// ModuleCycleError reports mutual module requirements discovered during
// construction. Path entries are "<scope>:<ModuleType>", ending with the
// key that closed the cycle.
type ModuleCycleError struct {
	Path []string
}

func (e *ModuleCycleError) Error() string {
	return fmt.Sprintf("module dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

type moduleKey struct {
	scope string
	typ   reflect.Type
}

func (k moduleKey) String() string {
	return k.scope + ":" + k.typ.Name()
}

// Option configures a World.
type Option func(*config)

type config struct {
	log     *slog.Logger
	regOpts []grid.Option
}

// WithLogger sets the world logger, also handed to the registry.
func WithLogger(log *slog.Logger) Option {
	return func(w *config) {
		w.log = log
	}
}

// WithRegistryOption forwards an option to the registry the world creates,
// e.g. grid.WithObserver for a metrics collector.
func WithRegistryOption(opt grid.Option) Option {
	return func(w *config) {
		w.regOpts = append(w.regOpts, opt)
	}
}

// World owns one registry and memoizes module instances. Two worlds are
// fully isolated; there is no process-wide state.
type World struct {
	id  string
	log *slog.Logger
	reg *grid.Registry

	modules map[moduleKey]any

	// building tracks in-flight constructions; Require calls are
	// synchronous, so it evolves like a call stack.
	building    []moduleKey
	buildingSet map[moduleKey]bool
}

// New creates an empty world.
func New(opts ...Option) *World {
	cfg := &config{log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	id := uuid.NewString()
	log := cfg.log.With("world", id)
	regOpts := append([]grid.Option{grid.WithLogger(log)}, cfg.regOpts...)

	return &World{
		id:          id,
		log:         log,
		reg:         grid.New(regOpts...),
		modules:     make(map[moduleKey]any),
		buildingSet: make(map[moduleKey]bool),
	}
}

// ID returns the world's identity, attached to its log attributes.
func (w *World) ID() string { return w.id }

// Registry returns the registry owned by this world.
func (w *World) Registry() *grid.Registry { return w.reg }

// Logger returns the world logger.
func (w *World) Logger() *slog.Logger { return w.log }

// Require returns the module instance for (scope, M), constructing it on
// first use. Construction may itself Require other modules; a repeated
// (scope, M) on the constructing stack is a module cycle.
func Require[M any](w *World, scope string, ctor func(*World, string) (*M, error)) (*M, error) {
	key := moduleKey{scope: scope, typ: reflect.TypeOf((*M)(nil)).Elem()}

	if existing, ok := w.modules[key]; ok {
		return existing.(*M), nil
	}

	if w.buildingSet[key] {
		start := 0
		for i, k := range w.building {
			if k == key {
				start = i
				break
			}
		}
		cycle := make([]string, 0, len(w.building)-start+1)
		for _, k := range w.building[start:] {
			cycle = append(cycle, k.String())
		}
		cycle = append(cycle, key.String())
		return nil, &ModuleCycleError{Path: cycle}
	}

	w.building = append(w.building, key)
	w.buildingSet[key] = true
	defer func() {
		w.building = w.building[:len(w.building)-1]
		delete(w.buildingSet, key)
	}()

	w.log.Debug("constructing module", "module", key.String())
	m, err := ctor(w, scope)
	if err != nil {
		return nil, err
	}
	w.modules[key] = m
	return m, nil
}

// MustRequire is Require panicking on error, for assembly code where a
// failed module construction is fatal anyway.
func MustRequire[M any](w *World, scope string, ctor func(*World, string) (*M, error)) *M {
	m, err := Require(w, scope, ctor)
	if err != nil {
		panic(err)
	}
	return m
}

// Package grid implements the compute engine core: a name-keyed registry of
// versioned resources, lazily recomputed by producers when their
// dependencies advance.
//
// The engine is single-threaded by contract. One goroutine owns a Registry
// and everything in it; ensure passes, writes and module construction all
// run on that goroutine to completion.
package grid

import (
	"log/slog"
	"sort"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for engine activity. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(g *Registry) {
		g.log = log
	}
}

// WithObserver attaches an observer notified of engine activity.
func WithObserver(obs Observer) Option {
	return func(g *Registry) {
		g.obs = append(g.obs, obs)
	}
}

// Registry is the single point of truth for all resources and the executor
// of the lazy dependency graph.
type Registry struct {
	log    *slog.Logger
	obs    []Observer
	res    map[string]*resource
	active *ensureCtx
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	g := &Registry{
		log: slog.Default(),
		res: make(map[string]*resource),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Declare registers a new resource. The version starts at 0 and the
// dependency signature empty: declaration is not a commit, even when an
// initial buffer is supplied.
func (g *Registry) Declare(name string, d Decl) error {
	if name == "" {
		return &ValidationError{Name: name, Reason: "empty resource name"}
	}
	if _, exists := g.res[name]; exists {
		return &DuplicateResourceError{Name: name}
	}
	if d.Producer != nil && !containsName(d.Producer.Outputs(), name) {
		return &NotOwnedError{Name: name, Producer: producerName(d.Producer)}
	}
	if d.Spec != nil {
		if err := d.Spec.check(); err != nil {
			return &ValidationError{Name: name, Reason: err.Error()}
		}
	}

	r := &resource{
		name:        name,
		deps:        append([]string(nil), d.Deps...),
		producer:    d.Producer,
		description: d.Description,
		spec:        d.Spec,
	}
	if d.Buffer != nil {
		if err := g.validateBuffer(r, d.Buffer); err != nil {
			return err
		}
		r.buffer = d.Buffer
	}
	g.res[name] = r

	g.log.Debug("declared resource",
		"name", name,
		"deps", r.deps,
		"producer", describeProducer(d.Producer),
	)
	return nil
}

// Read ensures the resource and returns its current buffer.
func (g *Registry) Read(name string) (any, error) {
	if err := g.Ensure(name); err != nil {
		return nil, err
	}
	return g.Peek(name)
}

// Peek returns the current buffer without ensuring freshness.
func (g *Registry) Peek(name string) (any, error) {
	r, err := g.get(name)
	if err != nil {
		return nil, err
	}
	return r.buffer, nil
}

// SetBuffer replaces a resource's buffer.
//
// With bump=true the write also commits (version bump plus dependency
// signature refresh). With bump=false the version and signature stay
// untouched, supporting allocate-then-fill. unsafe bypasses spec
// validation.
func (g *Registry) SetBuffer(name string, buf any, bump, unsafe bool) error {
	r, err := g.get(name)
	if err != nil {
		return err
	}
	if !unsafe {
		if err := g.validateBuffer(r, buf); err != nil {
			return err
		}
	}
	r.buffer = buf
	if bump {
		return g.commit(r, true, unsafe)
	}
	return nil
}

// Commit bumps the resource version and snapshots the current versions of
// its dependencies, leaving the buffer unchanged. The current buffer is
// re-validated unless unsafe.
func (g *Registry) Commit(name string, unsafe bool) error {
	r, err := g.get(name)
	if err != nil {
		return err
	}
	return g.commit(r, true, unsafe)
}

// CommitBuffer replaces the buffer and commits in one step. Nothing is
// mutated when validation rejects the buffer.
func (g *Registry) CommitBuffer(name string, buf any, unsafe bool) error {
	r, err := g.get(name)
	if err != nil {
		return err
	}
	if !unsafe {
		if err := g.validateBuffer(r, buf); err != nil {
			return err
		}
	}
	r.buffer = buf
	return g.commit(r, true, true)
}

// Bump bumps the resource version without refreshing the dependency
// signature: downstream consumers see an update, but the recorded upstream
// baseline stays as committed.
func (g *Registry) Bump(name string, unsafe bool) error {
	r, err := g.get(name)
	if err != nil {
		return err
	}
	return g.commit(r, false, unsafe)
}

// CommitMany commits a set of resources at once, as a producer with several
// outputs does. buffers may be nil (commit current buffers) or parallel to
// names. Validation is all-or-nothing: every buffer is checked before any
// version moves.
func (g *Registry) CommitMany(names []string, buffers []any, unsafe bool) error {
	if buffers != nil && len(buffers) != len(names) {
		return &ValidationError{Name: "", Reason: "CommitMany buffers do not match names"}
	}

	rs := make([]*resource, len(names))
	for i, name := range names {
		r, err := g.get(name)
		if err != nil {
			return err
		}
		rs[i] = r
	}
	if !unsafe {
		for i, r := range rs {
			buf := r.buffer
			if buffers != nil {
				buf = buffers[i]
			}
			if err := g.validateBuffer(r, buf); err != nil {
				return err
			}
		}
	}

	if buffers != nil {
		for i, r := range rs {
			r.buffer = buffers[i]
		}
	}
	for _, r := range rs {
		r.version++
	}
	// Signatures snapshot after every version moved, so co-committed
	// resources see each other's final versions.
	for _, r := range rs {
		sig, err := g.currentDepSig(r.deps)
		if err != nil {
			return err
		}
		r.depSig = sig
		g.notifyCommitted(r.name, r.version)
	}
	return nil
}

// Names returns every declared name in sorted order.
func (g *Registry) Names() []string {
	names := make([]string, 0, len(g.res))
	for name := range g.res {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Version returns the current version of a resource.
func (g *Registry) Version(name string) (uint64, error) {
	r, err := g.get(name)
	if err != nil {
		return 0, err
	}
	return r.version, nil
}

// DepSig returns a copy of the dependency signature recorded at the
// resource's last commit.
func (g *Registry) DepSig(name string) ([]DepVersion, error) {
	r, err := g.get(name)
	if err != nil {
		return nil, err
	}
	return append([]DepVersion(nil), r.depSig...), nil
}

// Description returns the description a resource was declared with.
func (g *Registry) Description(name string) (string, error) {
	r, err := g.get(name)
	if err != nil {
		return "", err
	}
	return r.description, nil
}

// Deps returns a copy of the declared dependency names of a resource.
func (g *Registry) Deps(name string) ([]string, error) {
	r, err := g.get(name)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), r.deps...), nil
}

func (g *Registry) get(name string) (*resource, error) {
	r, ok := g.res[name]
	if !ok {
		return nil, &UnknownResourceError{Name: name}
	}
	return r, nil
}

// commit is the version-bump path for single-resource writes (CommitMany
// bumps its set itself). refreshSig selects between commit semantics
// (snapshot dep versions) and bump semantics (keep the baseline).
func (g *Registry) commit(r *resource, refreshSig, unsafe bool) error {
	if !unsafe {
		if err := g.validateBuffer(r, r.buffer); err != nil {
			return err
		}
	}
	var sig []DepVersion
	if refreshSig {
		var err error
		sig, err = g.currentDepSig(r.deps)
		if err != nil {
			return err
		}
	}
	r.version++
	if refreshSig {
		r.depSig = sig
	}
	g.notifyCommitted(r.name, r.version)
	return nil
}

// currentDepSig snapshots the current version of every dependency. A
// dependency that is still undeclared makes the commit fail: forward
// declarations are a construction-time convenience only.
func (g *Registry) currentDepSig(deps []string) ([]DepVersion, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	sig := make([]DepVersion, len(deps))
	for i, d := range deps {
		dr, err := g.get(d)
		if err != nil {
			return nil, err
		}
		sig[i] = DepVersion{Name: d, Version: dr.version}
	}
	return sig, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func describeProducer(p Producer) string {
	if p == nil {
		return "none"
	}
	return producerName(p)
}

package grid

import "time"

// ensureCtx is the per-pass bookkeeping of the ensure traversal.
//
// visiting holds the names on the DFS stack (cycle detection), ensured the
// names already made fresh this pass, and ran the producers executed this
// pass. Sharing ran across one pass is what keeps a multi-output producer
// to a single execution even when several of its outputs are demanded.
type ensureCtx struct {
	stack    []string
	visiting map[string]bool
	ensured  map[string]bool
	ran      map[Producer]bool
}

func newEnsureCtx() *ensureCtx {
	return &ensureCtx{
		visiting: make(map[string]bool),
		ensured:  make(map[string]bool),
		ran:      make(map[Producer]bool),
	}
}

func (c *ensureCtx) push(name string) {
	c.stack = append(c.stack, name)
	c.visiting[name] = true
}

func (c *ensureCtx) pop() {
	name := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	delete(c.visiting, name)
}

// Ensure makes the named resource fresh, recursively ensuring dependencies
// and running stale producers. A call made while a pass is already active
// (from inside a producer) joins that pass, so reentrant ensures on an
// ancestor surface as dependency cycles instead of infinite recursion.
func (g *Registry) Ensure(name string) error {
	if g.active != nil {
		return g.ensure(name, g.active)
	}
	ctx := newEnsureCtx()
	g.active = ctx
	defer func() { g.active = nil }()

	g.notifyEnsureStarted(name)
	return g.ensure(name, ctx)
}

// EnsureMany ensures each name in order within a single pass, so shared
// producers still execute at most once.
func (g *Registry) EnsureMany(names []string) error {
	if g.active != nil {
		for _, name := range names {
			if err := g.ensure(name, g.active); err != nil {
				return err
			}
		}
		return nil
	}
	ctx := newEnsureCtx()
	g.active = ctx
	defer func() { g.active = nil }()

	for _, name := range names {
		g.notifyEnsureStarted(name)
		if err := g.ensure(name, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g *Registry) ensure(name string, ctx *ensureCtx) error {
	if ctx.visiting[name] {
		path := append(append([]string(nil), ctx.stack...), name)
		return &CycleError{Path: path}
	}
	if ctx.ensured[name] {
		return nil
	}

	r, err := g.get(name)
	if err != nil {
		return err
	}

	ctx.push(name)
	defer ctx.pop()

	for _, d := range r.deps {
		if err := g.ensure(d, ctx); err != nil {
			return err
		}
	}

	if !g.stale(r) {
		ctx.ensured[name] = true
		return nil
	}

	if r.producer == nil {
		if r.version == 0 {
			return &UninitializedError{Name: name}
		}
		// A committed manual input stays usable even when its recorded
		// dependency baseline has drifted; only producers recompute.
		ctx.ensured[name] = true
		return nil
	}

	p := r.producer
	if ctx.ran[p] {
		// The producer already executed this pass but left this output
		// stale: it committed only a subset of its declared outputs.
		return &NotCommittedError{Producer: producerName(p), Names: []string{name}}
	}

	// The union of dependencies across all outputs must be fresh before
	// the single compute call runs. Dependencies owned by this same
	// producer are satisfied by the compute call itself and are skipped.
	outputs := p.Outputs()
	for _, out := range outputs {
		outR, err := g.get(out)
		if err != nil {
			return err
		}
		for _, d := range outR.deps {
			if dr, ok := g.res[d]; ok && dr.producer == p {
				continue
			}
			if err := g.ensure(d, ctx); err != nil {
				return err
			}
		}
	}

	// Ensuring sibling-output dependencies above may already have run the
	// producer through a nested path; never execute it twice in one pass.
	if !ctx.ran[p] {
		pre := make(map[string]uint64, len(outputs))
		for _, out := range outputs {
			outR, err := g.get(out)
			if err != nil {
				return err
			}
			pre[out] = outR.version
		}

		g.log.Debug("running producer", "producer", producerName(p), "target", name)
		start := time.Now()
		if err := p.Compute(g); err != nil {
			return err
		}
		ctx.ran[p] = true
		g.notifyProducerRan(producerName(p), outputs, time.Since(start))

		var missing []string
		for _, out := range outputs {
			outR, err := g.get(out)
			if err != nil {
				return err
			}
			if outR.version <= pre[out] {
				missing = append(missing, out)
			}
		}
		if len(missing) > 0 {
			return &NotCommittedError{Producer: producerName(p), Names: missing}
		}
	}

	// Note: the target may still read as stale here when the producer
	// committed it with Bump (old baseline kept). The version increase
	// above is the commit contract; bump-style outputs simply recompute
	// on every pass.
	ctx.ensured[name] = true
	return nil
}

// stale reports whether a resource needs recomputation: never committed, or
// some dependency's current version differs from the signature recorded at
// last commit.
func (g *Registry) stale(r *resource) bool {
	if r.version == 0 {
		return true
	}
	for _, e := range r.depSig {
		d, ok := g.res[e.Name]
		if !ok || d.version != e.Version {
			return true
		}
	}
	return false
}

package grid

import (
	"fmt"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
)

// Explain renders the dependency tree under a resource as indented text,
// one line per transitive dependency up to depth: name, version, owning
// producer, a STALE tag and, for stale resources, the signature entry that
// triggers the staleness. Purely a debugging aid; the text is not a stable
// format. Explain never mutates the registry.
func (g *Registry) Explain(name string, depth int) (string, error) {
	if _, err := g.get(name); err != nil {
		return "", err
	}

	var lines []string
	seen := make(map[string]bool)

	var rec func(n string, lvl int)
	rec = func(n string, lvl int) {
		if lvl > depth {
			return
		}
		indent := strings.Repeat("  ", lvl)
		r, ok := g.res[n]
		if !ok {
			lines = append(lines, fmt.Sprintf("%s- %s (undeclared)", indent, n))
			return
		}
		lines = append(lines, indent+"- "+g.describe(r))
		if seen[n] {
			return
		}
		seen[n] = true
		for _, d := range r.deps {
			rec(d, lvl+1)
		}
	}

	rec(name, 0)
	return strings.Join(lines, "\n"), nil
}

// ExplainTree renders the same information as Explain as a boxed tree.
func (g *Registry) ExplainTree(name string, depth int) (string, error) {
	if _, err := g.get(name); err != nil {
		return "", err
	}

	root := tree.NewTree(tree.NodeString(g.describeName(name)))
	seen := make(map[string]bool)

	var rec func(t *tree.Tree, n string, lvl int)
	rec = func(t *tree.Tree, n string, lvl int) {
		if lvl >= depth || seen[n] {
			return
		}
		seen[n] = true
		r, ok := g.res[n]
		if !ok {
			return
		}
		for i, d := range r.deps {
			t.AddChild(tree.NodeString(g.describeName(d)))
			child, err := t.Child(i)
			if err != nil {
				continue
			}
			rec(child, d, lvl+1)
		}
	}

	rec(root, name, 0)
	return root.String(), nil
}

func (g *Registry) describeName(n string) string {
	r, ok := g.res[n]
	if !ok {
		return n + " (undeclared)"
	}
	return g.describe(r)
}

func (g *Registry) describe(r *resource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v=%d producer=%s", r.name, r.version, describeProducer(r.producer))
	if r.spec != nil {
		fmt.Fprintf(&b, " spec(kind=%s", string(r.spec.Kind))
		if r.spec.Elem != "" {
			fmt.Fprintf(&b, ", elem=%s", string(r.spec.Elem))
		}
		if r.spec.Lanes != 0 {
			fmt.Fprintf(&b, ", lanes=%d", r.spec.Lanes)
		}
		b.WriteString(")")
	}
	if g.stale(r) {
		b.WriteString(" STALE")
		if trigger, ok := g.staleTrigger(r); ok {
			b.WriteString(" " + trigger)
		}
	}
	return b.String()
}

// staleTrigger names the first signature entry whose dependency advanced
// past the recorded version.
func (g *Registry) staleTrigger(r *resource) (string, bool) {
	if r.version == 0 {
		return "(never committed)", true
	}
	for _, e := range r.depSig {
		d, ok := g.res[e.Name]
		if !ok {
			return fmt.Sprintf("(dep %s gone)", e.Name), true
		}
		if d.version != e.Version {
			return fmt.Sprintf("(dep %s v=%d, saw v=%d)", e.Name, d.version, e.Version), true
		}
	}
	return "", false
}

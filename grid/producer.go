package grid

import "fmt"

// Producer is a computation node owning a fixed set of output resources.
//
// Outputs is the exact set of names the producer may commit; it is fixed at
// construction. Compute must, before returning nil, commit every output
// (via Set, Commit or Bump on its refs, or the registry equivalents). The
// registry decides when to run producers based on dependency freshness and
// verifies the commits afterwards.
type Producer interface {
	Outputs() []string
	Compute(reg *Registry) error
}

// producerName resolves a display identity for errors, logs and explain
// output. Producers that carry a name (wired producers do) report it;
// anything else falls back to its dynamic type.
func producerName(p Producer) string {
	if named, ok := p.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", p)
}

// Decl carries the wiring of a resource declaration.
//
// Deps may reference names that do not exist yet; that keeps construction
// order flexible, but any dependency still unresolved at ensure time is
// fatal. Buffer, when non-nil, is validated and stored without committing:
// declaration never bumps the version.
type Decl struct {
	Buffer      any
	Deps        []string
	Producer    Producer
	Description string
	Spec        *Spec
}

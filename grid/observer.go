package grid

import "time"

// Observer receives notifications about engine activity. Implementations
// must not mutate the registry from a callback; they are for metrics and
// tracing only.
type Observer interface {
	// EnsureStarted fires once per top-level ensure target.
	EnsureStarted(target string)
	// ProducerRan fires after a producer's compute returned successfully.
	ProducerRan(producer string, outputs []string, d time.Duration)
	// Committed fires on every version bump, with the new version.
	Committed(name string, version uint64)
	// ValidationFailed fires when a spec rejects a buffer.
	ValidationFailed(name string)
}

func (g *Registry) notifyEnsureStarted(target string) {
	for _, o := range g.obs {
		o.EnsureStarted(target)
	}
}

func (g *Registry) notifyProducerRan(producer string, outputs []string, d time.Duration) {
	for _, o := range g.obs {
		o.ProducerRan(producer, outputs, d)
	}
}

func (g *Registry) notifyCommitted(name string, version uint64) {
	for _, o := range g.obs {
		o.Committed(name, version)
	}
}

func (g *Registry) notifyValidationFailed(name string) {
	for _, o := range g.obs {
		o.ValidationFailed(name)
	}
}

package grid

import "fmt"

// DepVersion is one entry of a dependency signature: the version of a named
// dependency observed at the moment of the owning resource's last commit.
type DepVersion struct {
	Name    string
	Version uint64
}

// resource is a registry entry. The registry is its single owner; all
// mutation routes through registry methods so invariants live in one place.
type resource struct {
	name        string
	buffer      any
	deps        []string
	producer    Producer
	version     uint64
	depSig      []DepVersion
	description string
	spec        *Spec
}

// Key pairs a fully qualified resource name with its spec. The type
// parameter flows the expected buffer type to call sites; it has no
// runtime representation of its own.
type Key[T any] struct {
	Name string
	Spec *Spec
}

// Handle is the untyped view of a ref, used by wiring and module
// declaration helpers that do not care about the buffer type.
type Handle interface {
	RefName() string
	RefSpec() *Spec
}

// Ref is a typed, non-owning handle to a resource: a registry back-reference
// plus a key. It always resolves by name lookup and is safe to copy. Refs
// are the sole read/write surface handed to user code.
type Ref[T any] struct {
	reg *Registry
	key Key[T]
	doc string
}

// NewRef binds a key to a registry. Most refs are created through module
// helpers rather than directly.
func NewRef[T any](reg *Registry, key Key[T], doc string) *Ref[T] {
	return &Ref[T]{reg: reg, key: key, doc: doc}
}

// RefName returns the fully qualified resource name.
func (r *Ref[T]) RefName() string { return r.key.Name }

// RefSpec returns the spec carried by the ref's key, which may be nil.
func (r *Ref[T]) RefSpec() *Spec { return r.key.Spec }

// Doc returns the documentation string attached at ref creation.
func (r *Ref[T]) Doc() string { return r.doc }

// Ensure makes the resource fresh, running stale producers as needed.
func (r *Ref[T]) Ensure() error { return r.reg.Ensure(r.key.Name) }

// Get ensures the resource and returns its current buffer.
func (r *Ref[T]) Get() (T, error) {
	if err := r.Ensure(); err != nil {
		var zero T
		return zero, err
	}
	return r.Peek()
}

// Peek returns the current buffer without ensuring; the result may be nil
// or stale. Producers read their inputs this way, because the registry has
// already made inputs fresh by the time compute runs.
func (r *Ref[T]) Peek() (T, error) {
	buf, err := r.reg.Peek(r.key.Name)
	if err != nil {
		var zero T
		return zero, err
	}
	return asBuffer[T](r.key.Name, buf)
}

// Set validates the value, replaces the buffer and marks the resource fresh
// relative to current dependency versions.
func (r *Ref[T]) Set(v T) error {
	return r.reg.CommitBuffer(r.key.Name, v, false)
}

// SetUnsafe is Set without spec validation. Callers accept responsibility.
func (r *Ref[T]) SetUnsafe(v T) error {
	return r.reg.CommitBuffer(r.key.Name, v, true)
}

// SetBuffer replaces the buffer. With bump=false the version and dependency
// signature stay untouched, which is the allocate-then-fill pattern: attach
// a freshly sized buffer, fill it, then Commit.
func (r *Ref[T]) SetBuffer(v T, bump bool) error {
	return r.reg.SetBuffer(r.key.Name, v, bump, false)
}

// SetBufferUnsafe is SetBuffer without spec validation.
func (r *Ref[T]) SetBufferUnsafe(v T, bump bool) error {
	return r.reg.SetBuffer(r.key.Name, v, bump, true)
}

// Commit bumps the version and records the current dependency versions,
// leaving the buffer as is.
func (r *Ref[T]) Commit() error { return r.reg.Commit(r.key.Name, false) }

// MarkFresh is an alias of Commit.
func (r *Ref[T]) MarkFresh() error { return r.Commit() }

// Touch is an alias of Commit.
func (r *Ref[T]) Touch() error { return r.Commit() }

// Bump bumps the version without refreshing the dependency signature: the
// resource counts as updated for downstream freshness, but its recorded
// upstream baseline stays canonical.
func (r *Ref[T]) Bump() error { return r.reg.Bump(r.key.Name, false) }

// asBuffer converts an untyped buffer to the ref's buffer type. A nil
// buffer yields the zero value.
func asBuffer[T any](name string, buf any) (T, error) {
	var zero T
	if buf == nil {
		return zero, nil
	}
	typed, ok := buf.(T)
	if !ok {
		return zero, fmt.Errorf("resource '%s': buffer is %T, not %T", name, buf, zero)
	}
	return typed, nil
}

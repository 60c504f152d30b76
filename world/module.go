package world

import (
	"strings"

	"github.com/vk/lazygrid/grid"
)

// Namespace is an ordered list of name segments joined with dots.
type Namespace struct {
	parts []string
}

// Child returns the namespace extended with one segment.
func (n Namespace) Child(name string) Namespace {
	parts := make([]string, 0, len(n.parts)+1)
	parts = append(parts, n.parts...)
	parts = append(parts, name)
	return Namespace{parts: parts}
}

// Prefix returns the namespace as a dotted string.
func (n Namespace) Prefix() string {
	return strings.Join(n.parts, ".")
}

// Qualify appends an attribute to the namespace.
func (n Namespace) Qualify(attr string) string {
	if len(n.parts) == 0 {
		return attr
	}
	return n.Prefix() + "." + attr
}

// Base is embedded by module types. It carries the module's world, scope
// and namespace, and the helpers that keep resource names out of user code.
// The fully qualified names it produces are "<scope>.<module>.<attr>", or
// "<module>.<attr>" when the scope is empty.
type Base struct {
	world *World
	reg   *grid.Registry
	scope string
	name  string
	ns    Namespace
}

// NewBase roots a module namespace in a world. name is the module's stable
// NAME; scope selects the instance.
func NewBase(w *World, scope, name string) Base {
	root := Namespace{}
	if scope != "" {
		root = root.Child(scope)
	}
	return Base{
		world: w,
		reg:   w.Registry(),
		scope: scope,
		name:  name,
		ns:    root.Child(name),
	}
}

// World returns the owning world.
func (b *Base) World() *World { return b.world }

// Registry returns the world's registry.
func (b *Base) Registry() *grid.Registry { return b.reg }

// Scope returns the module's scope.
func (b *Base) Scope() string { return b.scope }

// ModuleName returns the module's stable name.
func (b *Base) ModuleName() string { return b.name }

// Prefix returns the module's namespace prefix.
func (b *Base) Prefix() string { return b.ns.Prefix() }

// Qualify turns an attribute into a fully qualified resource name.
func (b *Base) Qualify(attr string) string { return b.ns.Qualify(attr) }

// Declare wires a previously reserved ref in the registry. The ref's spec
// applies unless the decl carries its own; the ref's doc string becomes the
// description when none is given.
func (b *Base) Declare(ref grid.Handle, d grid.Decl) error {
	if d.Spec == nil {
		d.Spec = ref.RefSpec()
	}
	if d.Description == "" {
		if doc, ok := ref.(interface{ Doc() string }); ok {
			d.Description = doc.Doc()
		}
	}
	return b.reg.Declare(ref.RefName(), d)
}

// Resource reserves a module-scoped typed ref without declaring it; the
// module wires it later with Declare once producers exist. spec may be nil.
func Resource[T any](b *Base, attr string, spec *grid.Spec, doc string) *grid.Ref[T] {
	key := grid.Key[T]{Name: b.Qualify(attr), Spec: spec}
	return grid.NewRef[T](b.Registry(), key, doc)
}

// DeclareResource reserves a scoped ref and declares it immediately.
func DeclareResource[T any](b *Base, attr string, spec *grid.Spec, doc string, d grid.Decl) (*grid.Ref[T], error) {
	ref := Resource[T](b, attr, spec, doc)
	if err := b.Declare(ref, d); err != nil {
		return nil, err
	}
	return ref, nil
}

// Deps collects dependency names from refs, keeping name construction out
// of module code.
func Deps(refs ...grid.Handle) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.RefName()
	}
	return names
}

package grid

import (
	"errors"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/lazygrid/field"
)

// Kind selects the validation protocol a Spec applies to candidate buffers.
type Kind string

const (
	// KindOpaque accepts any buffer satisfying field.Buffer. Checks are
	// best-effort against that interface.
	KindOpaque Kind = "opaque"
	// KindArray accepts *field.Array buffers.
	KindArray Kind = "array"
	// KindValue accepts plain Go values, optionally constrained to a cty type.
	KindValue Kind = "value"
)

// ShapeFn computes the expected shape of a buffer from currently committed
// upstream state. It must not mutate the registry.
type ShapeFn func(*Registry) ([]int, error)

// Spec is the declarative runtime contract of a resource buffer. Writes are
// validated against it unless the caller opts out with an unsafe variant.
//
// At most one of Shape, ShapeFn and ShapeExpr may be set. ShapeExpr is an
// HCL expression evaluated with one variable tree per declared dependency;
// each dependency name resolves to an object describing its committed
// buffer: version always, shape and len for field.Buffer buffers, and len
// alone for slices, strings and maps. "[3 * Mesh.F_verts.len]" thus sizes
// an output from an upstream length.
type Spec struct {
	Kind      Kind
	Elem      field.ElemType
	Lanes     int
	Shape     []int
	ShapeFn   ShapeFn
	ShapeExpr string
	ValueType cty.Type
	AllowNil  bool
}

// check verifies the spec invariants at declaration time.
func (s *Spec) check() error {
	sources := 0
	if s.Shape != nil {
		sources++
	}
	if s.ShapeFn != nil {
		sources++
	}
	if s.ShapeExpr != "" {
		sources++
	}
	if sources > 1 {
		return errors.New("spec sets more than one of Shape, ShapeFn and ShapeExpr")
	}
	switch s.Kind {
	case KindOpaque, KindArray, KindValue:
	default:
		return errors.New("spec has unknown kind " + string(s.Kind))
	}
	if s.Kind == KindValue && (s.Shape != nil || s.ShapeFn != nil || s.ShapeExpr != "" || s.Elem != field.Any || s.Lanes != 0) {
		return errors.New("value spec cannot constrain element type, lanes or shape")
	}
	return nil
}

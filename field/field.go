// Package field defines the buffer model shared by the compute engine:
// dense typed arrays, the opaque field-like buffer contract, and the
// element types both are described with.
package field

import "fmt"

// ElemType identifies the scalar element type of a buffer.
type ElemType string

const (
	// Any matches every element type during validation.
	Any ElemType = ""

	F32 ElemType = "f32"
	F64 ElemType = "f64"
	I32 ElemType = "i32"
	I64 ElemType = "i64"
	U8  ElemType = "u8"
	U32 ElemType = "u32"
)

// Buffer is the opaque, field-like contract. GPU-side descriptors and other
// external payloads satisfy it without the engine knowing their storage.
type Buffer interface {
	Elem() ElemType
	Shape() []int
	Lanes() int
}

// Numel returns the number of elements a shape addresses. An empty shape
// describes a scalar and has one element.
func Numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// SameShape reports whether two shapes are identical.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Array is a dense CPU-side array: a flat backing slice addressed by an
// n-dimensional shape. lanes > 1 models vector-valued elements, so the
// backing slice holds Numel(shape)*lanes scalars.
type Array struct {
	elem  ElemType
	lanes int
	shape []int
	data  any
}

// Option configures NewArray.
type Option func(*Array)

// WithLanes sets the vector-lane count of each element.
func WithLanes(n int) Option {
	return func(a *Array) {
		a.lanes = n
	}
}

// NewArray allocates a zeroed dense array. It panics on an unknown element
// type or a non-positive lane count: array construction sites are static
// and misuse is a programmer error.
func NewArray(elem ElemType, shape []int, opts ...Option) *Array {
	a := &Array{
		elem:  elem,
		lanes: 1,
		shape: append([]int(nil), shape...),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.lanes < 1 {
		panic(fmt.Sprintf("field: invalid lane count %d", a.lanes))
	}

	n := Numel(a.shape) * a.lanes
	switch elem {
	case F32:
		a.data = make([]float32, n)
	case F64:
		a.data = make([]float64, n)
	case I32:
		a.data = make([]int32, n)
	case I64:
		a.data = make([]int64, n)
	case U8:
		a.data = make([]uint8, n)
	case U32:
		a.data = make([]uint32, n)
	default:
		panic(fmt.Sprintf("field: unknown element type %q", string(elem)))
	}
	return a
}

// Elem returns the element type.
func (a *Array) Elem() ElemType { return a.elem }

// Lanes returns the vector-lane count of each element.
func (a *Array) Lanes() int { return a.lanes }

// Shape returns a copy of the array shape.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the number of (possibly vector-valued) elements.
func (a *Array) Len() int { return Numel(a.shape) }

// Data exposes the flat backing slice as an untyped value.
func (a *Array) Data() any { return a.data }

// F32 returns the backing slice of an F32 array. It panics when the element
// type differs; callers reach for the typed accessor matching the spec they
// declared.
func (a *Array) F32() []float32 { return typedData[float32](a) }

// F64 returns the backing slice of an F64 array.
func (a *Array) F64() []float64 { return typedData[float64](a) }

// I32 returns the backing slice of an I32 array.
func (a *Array) I32() []int32 { return typedData[int32](a) }

// I64 returns the backing slice of an I64 array.
func (a *Array) I64() []int64 { return typedData[int64](a) }

// U8 returns the backing slice of a U8 array.
func (a *Array) U8() []uint8 { return typedData[uint8](a) }

// U32 returns the backing slice of a U32 array.
func (a *Array) U32() []uint32 { return typedData[uint32](a) }

func typedData[T any](a *Array) []T {
	data, ok := a.data.([]T)
	if !ok {
		panic(fmt.Sprintf("field: array holds %s elements, not %T", string(a.elem), []T(nil)))
	}
	return data
}

var _ Buffer = (*Array)(nil)

package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/lazygrid/field"
)

func requireValidation(t *testing.T, err error, name string) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, name, verr.Name)
	return verr
}

func TestSpecCheck(t *testing.T) {
	g := New()

	t.Run("two shape sources rejected", func(t *testing.T) {
		err := g.Declare("a", Decl{Spec: &Spec{
			Kind:    KindArray,
			Shape:   []int{3},
			ShapeFn: func(*Registry) ([]int, error) { return []int{3}, nil },
		}})
		requireValidation(t, err, "a")
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		err := g.Declare("b", Decl{Spec: &Spec{Kind: Kind("tensor")}})
		requireValidation(t, err, "b")
	})

	t.Run("value spec cannot constrain shape", func(t *testing.T) {
		err := g.Declare("c", Decl{Spec: &Spec{Kind: KindValue, Shape: []int{1}}})
		requireValidation(t, err, "c")
	})
}

func TestValidateNil(t *testing.T) {
	g := New()
	require.NoError(t, g.Declare("strict", Decl{Spec: &Spec{Kind: KindValue}}))
	require.NoError(t, g.Declare("loose", Decl{Spec: &Spec{Kind: KindValue, AllowNil: true}}))

	err := g.CommitBuffer("strict", nil, false)
	requireValidation(t, err, "strict")

	// Null tolerance is opt-in per resource; a committed nil leaves the
	// resource fresh-but-nil for consumers that accept that.
	require.NoError(t, g.CommitBuffer("loose", nil, false))
	v, err := g.Version("loose")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestValidateValueType(t *testing.T) {
	g := New()
	require.NoError(t, g.Declare("n", Decl{Spec: &Spec{Kind: KindValue, ValueType: cty.Number}}))

	require.NoError(t, g.CommitBuffer("n", 42, false))

	err := g.CommitBuffer("n", "forty-two", false)
	verr := requireValidation(t, err, "n")
	assert.Contains(t, verr.Reason, "expected value type")

	// The rejected write changed nothing.
	v, err := g.Version("n")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	buf, err := g.Peek("n")
	require.NoError(t, err)
	assert.Equal(t, 42, buf)
}

func TestValidateArray(t *testing.T) {
	g := New()
	require.NoError(t, g.Declare("arr", Decl{Spec: &Spec{
		Kind:  KindArray,
		Elem:  field.F32,
		Lanes: 3,
		Shape: []int{4},
	}}))

	t.Run("accepts a matching array", func(t *testing.T) {
		ok := field.NewArray(field.F32, []int{4}, field.WithLanes(3))
		require.NoError(t, g.CommitBuffer("arr", ok, false))
	})

	t.Run("rejects non-array buffers", func(t *testing.T) {
		verr := requireValidation(t, g.CommitBuffer("arr", 42, false), "arr")
		assert.Contains(t, verr.Reason, "expected *field.Array")
	})

	t.Run("rejects wrong element type", func(t *testing.T) {
		bad := field.NewArray(field.I32, []int{4}, field.WithLanes(3))
		verr := requireValidation(t, g.CommitBuffer("arr", bad, false), "arr")
		assert.Contains(t, verr.Reason, "element type")
	})

	t.Run("rejects wrong lanes", func(t *testing.T) {
		bad := field.NewArray(field.F32, []int{4}, field.WithLanes(2))
		verr := requireValidation(t, g.CommitBuffer("arr", bad, false), "arr")
		assert.Contains(t, verr.Reason, "lanes")
	})

	t.Run("rejects wrong shape", func(t *testing.T) {
		bad := field.NewArray(field.F32, []int{5}, field.WithLanes(3))
		verr := requireValidation(t, g.CommitBuffer("arr", bad, false), "arr")
		assert.Contains(t, verr.Reason, "shape")
	})

	t.Run("unsafe bypasses validation", func(t *testing.T) {
		require.NoError(t, g.CommitBuffer("arr", "anything goes", true))
	})
}

func TestValidateShapeFn(t *testing.T) {
	g := New()
	require.NoError(t, g.Declare("src", Decl{}))
	require.NoError(t, g.Declare("out", Decl{
		Deps: []string{"src"},
		Spec: &Spec{
			Kind: KindArray,
			Elem: field.F32,
			ShapeFn: func(g *Registry) ([]int, error) {
				buf, err := g.Peek("src")
				if err != nil {
					return nil, err
				}
				return []int{len(buf.([]float64))}, nil
			},
		},
	}))

	require.NoError(t, g.CommitBuffer("src", []float64{1, 2, 3}, false))

	require.NoError(t, g.CommitBuffer("out", field.NewArray(field.F32, []int{3}), false))

	verr := requireValidation(t, g.CommitBuffer("out", field.NewArray(field.F32, []int{4}), false), "out")
	assert.Contains(t, verr.Reason, "expected shape [3]")
}

func TestValidateShapeExpr(t *testing.T) {
	g := New()
	require.NoError(t, g.Declare("Mesh.F_verts", Decl{}))
	require.NoError(t, g.Declare("Topology.E_verts", Decl{
		Deps: []string{"Mesh.F_verts"},
		Spec: &Spec{
			Kind:      KindArray,
			Elem:      field.I32,
			Lanes:     2,
			ShapeExpr: "[3 * Mesh.F_verts.len]",
		},
	}))

	faces := field.NewArray(field.I32, []int{2}, field.WithLanes(3))
	require.NoError(t, g.CommitBuffer("Mesh.F_verts", faces, false))

	edges := field.NewArray(field.I32, []int{6}, field.WithLanes(2))
	require.NoError(t, g.CommitBuffer("Topology.E_verts", edges, false))

	wrong := field.NewArray(field.I32, []int{5}, field.WithLanes(2))
	verr := requireValidation(t, g.CommitBuffer("Topology.E_verts", wrong, false), "Topology.E_verts")
	assert.Contains(t, verr.Reason, "expected shape [6]")
}

func TestValidateOpaque(t *testing.T) {
	g := New()
	require.NoError(t, g.Declare("f", Decl{Spec: &Spec{Kind: KindOpaque, Elem: field.F32}}))

	// Any field-like buffer passes; *field.Array satisfies the contract.
	require.NoError(t, g.CommitBuffer("f", field.NewArray(field.F32, []int{2, 2}), false))

	verr := requireValidation(t, g.CommitBuffer("f", struct{}{}, false), "f")
	assert.Contains(t, verr.Reason, "field-like")
}

func TestAllocateThenFillWithDynamicShape(t *testing.T) {
	g := New()
	require.NoError(t, g.Declare("upstream", Decl{}))

	p := &testProducer{name: "Sized", outputs: []string{"y"}}
	p.fn = func(g *Registry) error {
		buf, err := g.Peek("upstream")
		if err != nil {
			return err
		}
		n := len(buf.([]float64))

		cur, err := g.Peek("y")
		if err != nil {
			return err
		}
		arr, _ := cur.(*field.Array)
		if arr == nil || !field.SameShape(arr.Shape(), []int{n}) {
			arr = field.NewArray(field.F64, []int{n})
			if err := g.SetBuffer("y", arr, false, false); err != nil {
				return err
			}
		}
		for i, v := range buf.([]float64) {
			arr.F64()[i] = 2 * v
		}
		return g.Commit("y", false)
	}
	require.NoError(t, g.Declare("y", Decl{
		Deps:     []string{"upstream"},
		Producer: p,
		Spec: &Spec{
			Kind:      KindArray,
			Elem:      field.F64,
			ShapeExpr: "[upstream.len]",
		},
	}))

	require.NoError(t, g.CommitBuffer("upstream", []float64{1, 2, 3}, false))

	buf, err := g.Read("y")
	require.NoError(t, err)
	arr := buf.(*field.Array)
	assert.Equal(t, []float64{2, 4, 6}, arr.F64())
	assert.Equal(t, 1, p.runs)

	v, err := g.Version("y")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	sig, err := g.DepSig("y")
	require.NoError(t, err)
	assert.Equal(t, []DepVersion{{Name: "upstream", Version: 1}}, sig)

	// Resizing upstream forces reallocation on the next read.
	require.NoError(t, g.CommitBuffer("upstream", []float64{1, 2, 3, 4}, false))
	buf, err = g.Read("y")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6, 8}, buf.(*field.Array).F64())
	assert.Equal(t, 2, p.runs)
}

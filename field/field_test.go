package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumel(t *testing.T) {
	assert.Equal(t, 1, Numel(nil))
	assert.Equal(t, 4, Numel([]int{4}))
	assert.Equal(t, 12, Numel([]int{3, 4}))
	assert.Equal(t, 0, Numel([]int{3, 0}))
}

func TestSameShape(t *testing.T) {
	assert.True(t, SameShape(nil, nil))
	assert.True(t, SameShape([]int{2, 3}, []int{2, 3}))
	assert.False(t, SameShape([]int{2, 3}, []int{3, 2}))
	assert.False(t, SameShape([]int{2}, []int{2, 1}))
}

func TestNewArray(t *testing.T) {
	t.Run("scalar elements", func(t *testing.T) {
		a := NewArray(F32, []int{3, 4})
		assert.Equal(t, F32, a.Elem())
		assert.Equal(t, []int{3, 4}, a.Shape())
		assert.Equal(t, 1, a.Lanes())
		assert.Equal(t, 12, a.Len())
		assert.Len(t, a.F32(), 12)
	})

	t.Run("vector elements", func(t *testing.T) {
		a := NewArray(I32, []int{5}, WithLanes(3))
		assert.Equal(t, 3, a.Lanes())
		assert.Equal(t, 5, a.Len())
		assert.Len(t, a.I32(), 15)
	})

	t.Run("shape is copied", func(t *testing.T) {
		shape := []int{2}
		a := NewArray(U8, shape)
		shape[0] = 99
		assert.Equal(t, []int{2}, a.Shape())
	})

	t.Run("unknown element type panics", func(t *testing.T) {
		assert.Panics(t, func() { NewArray("f16", []int{1}) })
	})

	t.Run("bad lane count panics", func(t *testing.T) {
		assert.Panics(t, func() { NewArray(F32, []int{1}, WithLanes(0)) })
	})
}

func TestTypedAccessors(t *testing.T) {
	a := NewArray(F64, []int{2})
	require.Len(t, a.F64(), 2)

	// Reading through the wrong element type is a programmer error.
	assert.Panics(t, func() { a.F32() })
	assert.Panics(t, func() { NewArray(U32, []int{1}).I64() })
}

func TestArrayIsBuffer(t *testing.T) {
	var buf Buffer = NewArray(I64, []int{2, 2}, WithLanes(2))
	assert.Equal(t, I64, buf.Elem())
	assert.Equal(t, []int{2, 2}, buf.Shape())
	assert.Equal(t, 2, buf.Lanes())
}

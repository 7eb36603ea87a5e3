package cpu_test

import (
	"testing"

	"github.com/haormj/gpubench/accelerated"
	"github.com/haormj/gpubench/accelerated/cpu"
	"github.com/haormj/gpubench/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) accelerated.Backend {
	t.Helper()

	b, err := accelerated.Open(cpu.Name, "")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, b.Release()) })

	return b
}

func TestMatMulMatchesReference(t *testing.T) {
	b := open(t)

	x := matrix.New(8, 12)
	y := matrix.New(10, 8)
	x.FillRandom()
	y.FillRandom()

	want := matrix.New(10, 12)
	matrix.Multiply(want, x, y)

	got := matrix.New(10, 12)
	require.NoError(t, b.MatMul(got, x, y))
	assert.True(t, matrix.Verify(want, got, 0).Match)
}

func TestMatMulShapeError(t *testing.T) {
	b := open(t)

	err := b.MatMul(matrix.New(3, 3), matrix.New(2, 3), matrix.New(3, 3))
	assert.ErrorIs(t, err, accelerated.ErrShape)
}

func TestMulArrays(t *testing.T) {
	b := open(t)

	out := make([]float32, 4)
	require.NoError(t, b.MulArrays(out, []float32{1, 2, 3, 4}, []float32{0.5, 2, -1, 0}))
	assert.Equal(t, []float32{0.5, 4, -3, 0}, out)

	assert.ErrorIs(t, b.MulArrays(out, []float32{1}, []float32{1, 2, 3, 4}), accelerated.ErrShape)
}

func TestRippleIdleIsFlat(t *testing.T) {
	b := open(t)
	grid := accelerated.Grid{Width: 8, Height: 4}

	heights := make([]float32, grid.Len())
	for i := range heights {
		heights[i] = 1
	}

	// Start in the future: not yet active.
	require.NoError(t, b.Ripple(heights, grid, []float32{0.5, 0.5, 1, 10000}))

	for _, h := range heights {
		assert.Zero(t, h)
	}
}

func TestRippleActiveDisturbsNearCenter(t *testing.T) {
	b := open(t)
	grid := accelerated.Grid{Width: 32, Height: 32}
	heights := make([]float32, grid.Len())

	// Age 1s: front radius 0.5 around (0.5, 0.5).
	require.NoError(t, b.Ripple(heights, grid, []float32{0.5, 0.5, 2, 1}))

	assert.Zero(t, heights[0], "corner lies outside the wave front")

	var moved int
	for _, h := range heights {
		if h != 0 {
			moved++
		}
	}
	assert.Positive(t, moved)
}

func TestRippleShapeError(t *testing.T) {
	b := open(t)

	err := b.Ripple(make([]float32, 3), accelerated.Grid{Width: 2, Height: 2}, nil)
	assert.ErrorIs(t, err, accelerated.ErrShape)

	err = b.Ripple(make([]float32, 4), accelerated.Grid{Width: 2, Height: 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, accelerated.ErrShape)
}

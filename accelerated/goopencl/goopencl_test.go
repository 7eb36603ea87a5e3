package goopencl_test

import (
	"testing"

	"github.com/haormj/gpubench/accelerated"
	"github.com/haormj/gpubench/accelerated/cpu"
	"github.com/haormj/gpubench/accelerated/goopencl"
	"github.com/haormj/gpubench/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDevice(t *testing.T) accelerated.Backend {
	t.Helper()

	b := goopencl.New("")
	if err := b.SetupContext(); err != nil {
		t.Skipf("no OpenCL device: %v", err)
	}

	t.Cleanup(func() { require.NoError(t, b.Release()) })

	return b
}

func TestDispatchBeforeSetup(t *testing.T) {
	b := goopencl.New("")

	assert.ErrorIs(t, b.MatMul(matrix.New(1, 1), matrix.New(1, 1), matrix.New(1, 1)), accelerated.ErrNotSetup)
	assert.ErrorIs(t, b.MulArrays(nil, nil, nil), accelerated.ErrNotSetup)
	assert.ErrorIs(t, b.Ripple(nil, accelerated.Grid{}, nil), accelerated.ErrNotSetup)
	assert.NoError(t, b.Release())
}

func TestMatMulMatchesCPU(t *testing.T) {
	b := openDevice(t)

	// Output shape deliberately not a multiple of the tile.
	x := matrix.New(40, 50)
	y := matrix.New(30, 40)
	x.FillRandom()
	y.FillRandom()

	want := matrix.New(30, 50)
	require.NoError(t, (&cpu.CPU{}).MatMul(want, x, y))

	got := matrix.New(30, 50)
	require.NoError(t, b.MatMul(got, x, y))

	res := matrix.Verify(want, got, matrix.DefaultTolerance)
	assert.True(t, res.Match, res.String())
}

func TestMulArraysExact(t *testing.T) {
	b := openDevice(t)

	const n = 1000
	x, y := make([]float32, n), make([]float32, n)
	for i := range x {
		x[i] = float32(i) / n
		y[i] = float32(n-i) / n
	}

	want, got := make([]float32, n), make([]float32, n)
	require.NoError(t, (&cpu.CPU{}).MulArrays(want, x, y))
	require.NoError(t, b.MulArrays(got, x, y))

	assert.True(t, matrix.VerifySlices(want, got, 0).Match)
}

func TestRippleMatchesCPU(t *testing.T) {
	b := openDevice(t)

	grid := accelerated.Grid{Width: 20, Height: 36}
	ripples := []float32{0.25, 0.5, 2, 0.5, 0.75, 0.25, 2, 1.5, 0, 0, 2, 10000}

	want, got := make([]float32, grid.Len()), make([]float32, grid.Len())
	require.NoError(t, (&cpu.CPU{}).Ripple(want, grid, ripples))
	require.NoError(t, b.Ripple(got, grid, ripples))

	res := matrix.VerifySlices(want, got, 1e-3)
	assert.True(t, res.Match, res.String())
}

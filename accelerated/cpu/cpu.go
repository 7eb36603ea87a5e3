package cpu

import (
	"github.com/chewxy/math32"
	"github.com/haormj/gpubench/accelerated"
	"github.com/haormj/gpubench/accelerated/kernels"
	"github.com/haormj/gpubench/matrix"
)

const Name = "cpu"

func init() {
	accelerated.Register(Name, func(string) accelerated.Backend { return &CPU{} })
}

// CPU runs every kernel on the calling goroutine.
type CPU struct {
}

// Name implements accelerated.Backend.
func (*CPU) Name() string { return Name }

// MatMul implements accelerated.Backend.
func (*CPU) MatMul(dst, a, b *matrix.Dense) error {
	if err := accelerated.CheckMatMul(dst, a, b); err != nil {
		return err
	}

	matrix.Multiply(dst, a, b)

	return nil
}

// MulArrays implements accelerated.Backend.
func (*CPU) MulArrays(out, a, b []float32) error {
	if err := accelerated.CheckArrays(out, a, b); err != nil {
		return err
	}

	for i := range out {
		out[i] = a[i] * b[i]
	}

	return nil
}

// Ripple implements accelerated.Backend.
func (*CPU) Ripple(heights []float32, grid accelerated.Grid, ripples []float32) error {
	if err := accelerated.CheckRipple(heights, grid, ripples); err != nil {
		return err
	}

	for j := 0; j < grid.Height; j++ {
		y := float32(j) / float32(grid.Height)

		for i := 0; i < grid.Width; i++ {
			x := float32(i) / float32(grid.Width)
			heights[j*grid.Width+i] = rippleHeight(x, y, ripples)
		}
	}

	return nil
}

func rippleHeight(x, y float32, ripples []float32) float32 {
	var h float32

	for k := 0; k+3 < len(ripples); k += 4 {
		age := ripples[k+2] - ripples[k+3]
		if age < 0 || age > kernels.RippleLifetime {
			continue
		}

		dx, dy := x-ripples[k], y-ripples[k+1]
		d := math32.Sqrt(dx*dx + dy*dy)
		front := kernels.RippleSpeed * age

		if d > front {
			continue
		}

		h += kernels.RippleAmplitude * math32.Exp(-kernels.RippleDecay*age) * math32.Sin(kernels.RippleFrequency*(front-d))
	}

	return h
}

// Release implements accelerated.Backend.
func (*CPU) Release() error {
	return nil
}

// SetupContext implements accelerated.Backend.
func (*CPU) SetupContext() error {
	return nil
}

var _ accelerated.Backend = &CPU{}

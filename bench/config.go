package bench

import (
	"errors"
	"fmt"

	"github.com/haormj/gpubench/matrix"
	"github.com/haormj/gpubench/ripple"
)

var ErrInvalidConfig = errors.New("bench: invalid config")

// MatMulConfig sizes the matrix benchmark: A is InnerDim x OuterDim and B is
// OuterDim x InnerDim (columns x rows), so the product is OuterDim square.
type MatMulConfig struct {
	OuterDim  int
	InnerDim  int
	Tolerance float32
	// Accelerated also times the BLAS path and verifies it.
	Accelerated bool
}

func DefaultMatMulConfig() MatMulConfig {
	return MatMulConfig{
		OuterDim:    512,
		InnerDim:    256,
		Tolerance:   matrix.DefaultTolerance,
		Accelerated: true,
	}
}

func (c MatMulConfig) Validate() error {
	if c.OuterDim <= 0 || c.InnerDim <= 0 {
		return fmt.Errorf("%w: matrix dimensions %dx%d", ErrInvalidConfig, c.OuterDim, c.InnerDim)
	}

	if c.Tolerance < 0 {
		return fmt.Errorf("%w: negative tolerance %g", ErrInvalidConfig, c.Tolerance)
	}

	return nil
}

type ArraysConfig struct {
	Size int
}

func DefaultArraysConfig() ArraysConfig {
	return ArraysConfig{Size: 1024 * 1024}
}

func (c ArraysConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: array size %d", ErrInvalidConfig, c.Size)
	}

	return nil
}

type RippleConfig struct {
	GridWidth  int
	GridHeight int
	MaxRipples int
	Frames     int
	// FrameTime is the simulated time between frames, in seconds.
	FrameTime float32
	Tolerance float32
}

func DefaultRippleConfig() RippleConfig {
	return RippleConfig{
		GridWidth:  256,
		GridHeight: 256,
		MaxRipples: ripple.DefaultMaxRipples,
		Frames:     60,
		FrameTime:  1.0 / 60,
		Tolerance:  1e-3,
	}
}

func (c RippleConfig) Validate() error {
	switch {
	case c.GridWidth <= 0 || c.GridHeight <= 0:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, c.GridWidth, c.GridHeight)
	case c.MaxRipples <= 0:
		return fmt.Errorf("%w: max ripples %d", ErrInvalidConfig, c.MaxRipples)
	case c.Frames <= 0:
		return fmt.Errorf("%w: frames %d", ErrInvalidConfig, c.Frames)
	case c.FrameTime <= 0:
		return fmt.Errorf("%w: frame time %g", ErrInvalidConfig, c.FrameTime)
	case c.Tolerance < 0:
		return fmt.Errorf("%w: negative tolerance %g", ErrInvalidConfig, c.Tolerance)
	}

	return nil
}

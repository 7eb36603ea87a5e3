// Package kernels holds the OpenCL program shared by the OpenCL backends.
package kernels

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed kernels.cl
var source string

// Kernel entry points taking their sizes as scalar arguments.
const (
	MultiplyMatrices = "multiply_matrices"
	MultiplyArrays   = "multiply_arrays"
	Ripple           = "ripple"
)

// Kernel entry points taking their sizes from a trailing __global uint header
// buffer, for bindings that can only bind buffer arguments.
const (
	MultiplyMatricesHeader = "multiply_matrices_header"
	MultiplyArraysHeader   = "multiply_arrays_header"
	RippleHeader           = "ripple_header"
)

// Ripple kernel constants. The CPU backend evaluates the same wave so the two
// can be compared.
const (
	RippleSpeed     float32 = 0.5
	RippleFrequency float32 = 40
	RippleDecay     float32 = 1.5
	RippleAmplitude float32 = 0.05
	RippleLifetime  float32 = 10
)

// Source returns override if non-empty, otherwise the embedded program.
func Source(override string) string {
	if override != "" {
		return override
	}

	return source
}

// Load reads a program from path. An empty path yields the embedded program.
func Load(path string) (string, error) {
	if path == "" {
		return source, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("accelerated/kernels: failed to read kernel source: %w", err)
	}

	return string(b), nil
}

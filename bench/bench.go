// Package bench runs the demo workloads on the host and on an accelerated
// backend, times them and checks that both produced the same result.
package bench

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/haormj/gpubench/accelerated"
	"github.com/haormj/gpubench/matrix"
)

var ErrMismatch = errors.New("results differ")

const verifiedMessage = "Verified CPU and GPU produced same result"

// Timing holds the wall-clock duration of each path that ran.
type Timing struct {
	CPU         time.Duration
	Accelerated time.Duration
	GPU         time.Duration
}

func timed(f func() error) (time.Duration, error) {
	start := time.Now()
	err := f()

	return time.Since(start), err
}

func printTime(w io.Writer, label string, d time.Duration) {
	fmt.Fprintf(w, "%s execution time: %0.2fms\n", label, float64(d)/float64(time.Millisecond))
}

func mismatch(what string, res matrix.Result) error {
	return fmt.Errorf("%w: %s differ at index %d (%g != %g)", ErrMismatch, what, res.Index, res.Want, res.Got)
}

// MatMul multiplies two random matrices with the reference loop, optionally
// with BLAS, and with b, then verifies every result against the reference.
func MatMul(b accelerated.Backend, cfg MatMulConfig, w io.Writer) (Timing, error) {
	var t Timing

	if err := cfg.Validate(); err != nil {
		return t, err
	}

	a := matrix.New(cfg.InnerDim, cfg.OuterDim)
	a.FillRandom()
	bm := matrix.New(cfg.OuterDim, cfg.InnerDim)
	bm.FillRandom()

	cpuOut := matrix.New(cfg.OuterDim, cfg.OuterDim)
	t.CPU, _ = timed(func() error {
		matrix.Multiply(cpuOut, a, bm)
		return nil
	})
	printTime(w, "CPU", t.CPU)

	if cfg.Accelerated {
		accOut := matrix.New(cfg.OuterDim, cfg.OuterDim)
		t.Accelerated, _ = timed(func() error {
			matrix.AcceleratedMultiply(accOut, a, bm)
			return nil
		})
		printTime(w, "Accelerated CPU", t.Accelerated)

		if res := matrix.Verify(cpuOut, accOut, cfg.Tolerance); !res.Match {
			return t, mismatch("CPU and accelerated CPU results", res)
		}
	}

	gpuOut := matrix.New(cfg.OuterDim, cfg.OuterDim)

	var err error
	t.GPU, err = timed(func() error { return b.MatMul(gpuOut, a, bm) })
	if err != nil {
		return t, err
	}
	printTime(w, "GPU", t.GPU)

	if res := matrix.Verify(cpuOut, gpuOut, cfg.Tolerance); !res.Match {
		return t, mismatch("CPU and GPU results", res)
	}

	fmt.Fprintln(w, verifiedMessage)

	return t, nil
}

// MultiplyArrays multiplies two random arrays elementwise on the host and on
// b. Elementwise products are exact, so the results must be identical.
func MultiplyArrays(b accelerated.Backend, cfg ArraysConfig, w io.Writer) (Timing, error) {
	var t Timing

	if err := cfg.Validate(); err != nil {
		return t, err
	}

	x, y := randomArray(cfg.Size), randomArray(cfg.Size)
	cpuOut := make([]float32, cfg.Size)

	t.CPU, _ = timed(func() error {
		for i := range cpuOut {
			cpuOut[i] = x[i] * y[i]
		}
		return nil
	})
	printTime(w, "CPU", t.CPU)

	gpuOut := make([]float32, cfg.Size)

	var err error
	t.GPU, err = timed(func() error { return b.MulArrays(gpuOut, x, y) })
	if err != nil {
		return t, err
	}
	printTime(w, "GPU", t.GPU)

	if res := matrix.VerifySlices(cpuOut, gpuOut, 0); !res.Match {
		return t, mismatch("CPU and GPU results", res)
	}

	fmt.Fprintln(w, verifiedMessage)

	return t, nil
}

func randomArray(n int) []float32 {
	m := matrix.New(1, n)
	m.FillRandom()

	return m.Elements()
}

package matrix

import (
	"fmt"

	"github.com/chewxy/math32"
)

// DefaultTolerance is the absolute tolerance used to compare products
// computed by different pipelines on inputs in [0,1).
const DefaultTolerance float32 = 5e-5

// Result reports the outcome of an elementwise comparison.
type Result struct {
	Match bool
	// Index is the linear storage index of the first mismatch, or -1.
	Index int
	Want  float32
	Got   float32
}

func (r Result) String() string {
	if r.Match {
		return "match"
	}

	return fmt.Sprintf("mismatch at index %d: %g != %g", r.Index, r.Want, r.Got)
}

// Verify compares a and b elementwise in storage order and reports the first
// index where they differ by more than tolerance. Shapes must be identical.
func Verify(a, b *Dense, tolerance float32) Result {
	mustSameShape("verify", a, b)

	return VerifySlices(a.elements, b.elements, tolerance)
}

// VerifySlices is Verify over raw buffers of equal length.
func VerifySlices(want, got []float32, tolerance float32) Result {
	if len(want) != len(got) {
		panic(fmt.Sprintf("matrix: verify: length mismatch %d vs %d", len(want), len(got)))
	}

	for i := range want {
		// NaN never satisfies <= so it is reported as a mismatch.
		if !(math32.Abs(want[i]-got[i]) <= tolerance) {
			return Result{Index: i, Want: want[i], Got: got[i]}
		}
	}

	return Result{Match: true, Index: -1}
}

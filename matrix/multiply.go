package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func mustConform(op string, dst, a, b *Dense) {
	if dst.columns != b.columns || dst.rows != a.rows || a.columns != b.rows {
		panic(fmt.Sprintf("matrix: %s: cannot multiply %dx%d by %dx%d into %dx%d",
			op, a.columns, a.rows, b.columns, b.rows, dst.columns, dst.rows))
	}
}

// Multiply stores A·B into dst with a plain triple loop. The inner sum runs
// over k ascending with no compensation, which fixes the rounding that other
// implementations are compared against.
func Multiply(dst, a, b *Dense) {
	mustConform("multiply", dst, a, b)

	inner := a.columns

	for r := 0; r < dst.rows; r++ {
		for c := 0; c < dst.columns; c++ {
			var sum float32

			for k := 0; k < inner; k++ {
				sum += a.elements[k*a.rows+r] * b.elements[c*b.rows+k]
			}

			dst.elements[c*dst.rows+r] = sum
		}
	}
}

// AccumulateProduct computes dst = A·B + dst through BLAS sgemm (alpha=1,
// beta=1). The prior contents of dst are part of the result.
func AccumulateProduct(dst, a, b *Dense) {
	mustConform("accumulate", dst, a, b)

	// blas32 is row-major, and a column-major m x n buffer read row-major is
	// its n x m transpose. C = A·B is therefore computed as Cᵀ = Bᵀ·Aᵀ.
	blas32.Gemm(blas.NoTrans, blas.NoTrans,
		1, transposed(b), transposed(a),
		1, transposed(dst))
}

// AcceleratedMultiply stores A·B into dst through BLAS. dst is zeroed first.
func AcceleratedMultiply(dst, a, b *Dense) {
	mustConform("accelerated multiply", dst, a, b)

	dst.Fill(0)
	AccumulateProduct(dst, a, b)
}

func transposed(m *Dense) blas32.General {
	return blas32.General{
		Rows:   m.columns,
		Cols:   m.rows,
		Stride: m.rows,
		Data:   m.elements,
	}
}

package matrix

import (
	"fmt"
	"math/rand/v2"
)

// Dense is a column-major matrix of float32 values. Element (column c, row r)
// lives at Elements[c*Rows+r].
type Dense struct {
	columns int
	rows    int

	elements []float32
}

// New allocates a columns x rows matrix. Both dimensions must be positive.
func New(columns, rows int) *Dense {
	if columns <= 0 || rows <= 0 {
		panic(fmt.Sprintf("matrix: invalid dimensions %dx%d", columns, rows))
	}

	return &Dense{
		columns:  columns,
		rows:     rows,
		elements: make([]float32, columns*rows),
	}
}

// FromColumnMajor wraps a copy of elements as a columns x rows matrix.
func FromColumnMajor(columns, rows int, elements []float32) *Dense {
	m := New(columns, rows)
	if len(elements) != len(m.elements) {
		panic(fmt.Sprintf("matrix: %d elements do not fit %dx%d", len(elements), columns, rows))
	}

	copy(m.elements, elements)

	return m
}

func (m *Dense) Columns() int { return m.columns }
func (m *Dense) Rows() int    { return m.rows }
func (m *Dense) Len() int     { return len(m.elements) }

// Elements returns the backing storage in column-major order. The slice is
// owned by the matrix; callers may read or write it but must not retain it
// past the matrix's use.
func (m *Dense) Elements() []float32 { return m.elements }

func (m *Dense) Fill(value float32) {
	for i := range m.elements {
		m.elements[i] = value
	}
}

// FillRandom sets every element to a uniform value in [0,1).
func (m *Dense) FillRandom() {
	for i := range m.elements {
		m.elements[i] = rand.Float32()
	}
}

// FillRandomFrom is FillRandom with an explicit source.
func (m *Dense) FillRandomFrom(r *rand.Rand) {
	for i := range m.elements {
		m.elements[i] = r.Float32()
	}
}

// FillFunc sets element (c, r) to f(c, r).
func (m *Dense) FillFunc(f func(column, row int) float32) {
	for c := 0; c < m.columns; c++ {
		for r := 0; r < m.rows; r++ {
			m.elements[c*m.rows+r] = f(c, r)
		}
	}
}

// CopyFrom copies src's elements into m. Shapes must match.
func (m *Dense) CopyFrom(src *Dense) {
	mustSameShape("copy", m, src)
	copy(m.elements, src.elements)
}

// At returns element (column, row). Bounds are only checked in debug builds.
func (m *Dense) At(column, row int) float32 {
	if debugChecks {
		m.checkBounds(column, row)
	}

	return m.elements[column*m.rows+row]
}

// Set stores value at (column, row). Bounds are only checked in debug builds.
func (m *Dense) Set(column, row int, value float32) {
	if debugChecks {
		m.checkBounds(column, row)
	}

	m.elements[column*m.rows+row] = value
}

func (m *Dense) checkBounds(column, row int) {
	if column < 0 || column >= m.columns || row < 0 || row >= m.rows {
		panic(fmt.Sprintf("matrix: index (%d, %d) out of range for %dx%d", column, row, m.columns, m.rows))
	}
}

func (m *Dense) String() string {
	return fmt.Sprintf("Dense(%dx%d)", m.columns, m.rows)
}

func mustSameShape(op string, a, b *Dense) {
	if a.columns != b.columns || a.rows != b.rows {
		panic(fmt.Sprintf("matrix: %s: shape mismatch %dx%d vs %dx%d", op, a.columns, a.rows, b.columns, b.rows))
	}
}

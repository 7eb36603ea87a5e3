package accelerated

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/haormj/gpubench/matrix"
)

var (
	ErrUnknownBackend = errors.New("accelerated: unknown backend")
	ErrNotSetup       = errors.New("accelerated: backend context not set up")
	ErrShape          = errors.New("accelerated: buffer shape mismatch")
)

// TileSize is the edge of the square thread group used by 2-D dispatches.
const TileSize = 16

// Grid is the shape of a 2-D dispatch in threads.
type Grid struct {
	Width  int
	Height int
}

func (g Grid) Len() int { return g.Width * g.Height }

// Rounded returns g with each edge rounded up to a multiple of tile. Kernels
// bounds-check against the unrounded shape.
func (g Grid) Rounded(tile int) Grid {
	return Grid{
		Width:  roundUp(g.Width, tile),
		Height: roundUp(g.Height, tile),
	}
}

func roundUp(n, m int) int {
	return (n + m - 1) / m * m
}

// Dims is the header passed alongside a matrix product dispatch.
type Dims struct {
	Inner      uint32
	OutColumns uint32
	OutRows    uint32
}

// MatMulDims returns the header for dst = a·b.
func MatMulDims(dst, a *matrix.Dense) Dims {
	return Dims{
		Inner:      uint32(a.Columns()),
		OutColumns: uint32(dst.Columns()),
		OutRows:    uint32(dst.Rows()),
	}
}

// Backend runs the demo kernels. Every dispatch blocks until the device has
// finished and the output has been copied back to host memory.
type Backend interface {
	Name() string
	SetupContext() error

	// MatMul stores a·b into dst. All three matrices are column-major.
	MatMul(dst, a, b *matrix.Dense) error
	// MulArrays stores a[i]*b[i] into out[i].
	MulArrays(out, a, b []float32) error
	// Ripple writes one height per vertex of grid into heights. ripples holds
	// packed float4 records {centerX, centerY, now, start}.
	Ripple(heights []float32, grid Grid, ripples []float32) error

	Release() error
}

// CheckMatMul validates the shapes of a product dispatch.
func CheckMatMul(dst, a, b *matrix.Dense) error {
	if dst.Columns() != b.Columns() || dst.Rows() != a.Rows() || a.Columns() != b.Rows() {
		return fmt.Errorf("%w: cannot multiply %v by %v into %v", ErrShape, a, b, dst)
	}

	return nil
}

// CheckArrays validates the lengths of an elementwise dispatch.
func CheckArrays(out, a, b []float32) error {
	if len(a) != len(out) || len(b) != len(out) {
		return fmt.Errorf("%w: array lengths %d, %d, %d", ErrShape, len(out), len(a), len(b))
	}

	return nil
}

// CheckRipple validates the lengths of a ripple dispatch.
func CheckRipple(heights []float32, grid Grid, ripples []float32) error {
	if grid.Width <= 0 || grid.Height <= 0 || len(heights) != grid.Len() {
		return fmt.Errorf("%w: %d heights for %dx%d grid", ErrShape, len(heights), grid.Width, grid.Height)
	}

	if len(ripples)%4 != 0 {
		return fmt.Errorf("%w: ripple uniforms length %d is not a multiple of 4", ErrShape, len(ripples))
	}

	return nil
}

// Factory builds an unconfigured backend. kernelSource overrides the embedded
// OpenCL program when non-empty.
type Factory func(kernelSource string) Backend

var factories = map[string]Factory{}

// Register makes a backend available to Open. It is meant to be called from
// init functions.
func Register(name string, f Factory) {
	if _, dup := factories[name]; dup {
		panic("accelerated: Register called twice for backend " + name)
	}

	factories[name] = f
}

// Names lists registered backends in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Open builds the named backend and sets up its context.
func Open(name, kernelSource string) (Backend, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownBackend, name, strings.Join(Names(), ", "))
	}

	b := f(kernelSource)
	if err := b.SetupContext(); err != nil {
		return nil, err
	}

	return b, nil
}

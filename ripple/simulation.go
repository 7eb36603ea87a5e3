// Package ripple tracks the state of the water ripple simulation: a fixed
// ring of ripple centers and the vertex grid whose heights are recomputed on
// every frame.
package ripple

import (
	"fmt"

	"github.com/haormj/gpubench/accelerated"
)

// DefaultMaxRipples is the number of ripples kept alive at once.
const DefaultMaxRipples = 16

// IdleStart is the start time of an unused slot. It lies far in the future so
// the slot never contributes to the surface.
const IdleStart float32 = 10_000

// Ripple is a wave spreading from (CenterX, CenterY) since Start. Coordinates
// are normalized to [0,1) over the grid.
type Ripple struct {
	CenterX float32
	CenterY float32
	Start   float32
}

type Simulation struct {
	grid    accelerated.Grid
	ripples []Ripple
	next    int

	heights []float32
}

// New returns a simulation over grid keeping at most maxRipples ripples.
func New(maxRipples int, grid accelerated.Grid) (*Simulation, error) {
	if maxRipples <= 0 {
		return nil, fmt.Errorf("ripple: max ripples must be positive, got %d", maxRipples)
	}

	if grid.Width <= 0 || grid.Height <= 0 {
		return nil, fmt.Errorf("ripple: invalid grid %dx%d", grid.Width, grid.Height)
	}

	s := &Simulation{
		grid:    grid,
		ripples: make([]Ripple, maxRipples),
		heights: make([]float32, grid.Len()),
	}

	for i := range s.ripples {
		s.ripples[i].Start = IdleStart
	}

	return s, nil
}

func (s *Simulation) Grid() accelerated.Grid { return s.grid }

// Ripples returns the ring slots in storage order.
func (s *Simulation) Ripples() []Ripple { return s.ripples }

// Heights returns the surface computed by the last Step, one value per
// vertex, row by row.
func (s *Simulation) Heights() []float32 { return s.heights }

// AddRipple starts a ripple at (x, y) at time t, overwriting the oldest slot
// once the ring is full.
func (s *Simulation) AddRipple(x, y, t float32) {
	s.ripples[s.next] = Ripple{CenterX: x, CenterY: y, Start: t}
	s.next = (s.next + 1) % len(s.ripples)
}

// Uniforms packs one {centerX, centerY, now, start} record per slot.
func (s *Simulation) Uniforms(now float32) []float32 {
	out := make([]float32, 0, 4*len(s.ripples))

	for _, r := range s.ripples {
		out = append(out, r.CenterX, r.CenterY, now, r.Start)
	}

	return out
}

// Step recomputes the surface at time now on b. It blocks until b is done.
func (s *Simulation) Step(b accelerated.Backend, now float32) error {
	if err := b.Ripple(s.heights, s.grid, s.Uniforms(now)); err != nil {
		return fmt.Errorf("ripple: step at %.3fs: %w", now, err)
	}

	return nil
}

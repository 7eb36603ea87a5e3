package bench

import (
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/haormj/gpubench/accelerated"
	"github.com/haormj/gpubench/accelerated/cpu"
	"github.com/haormj/gpubench/matrix"
	"github.com/haormj/gpubench/ripple"
)

// reference computes the host surface that device frames are checked against.
var reference accelerated.Backend = &cpu.CPU{}

// Ripple runs cfg.Frames frames of the ripple simulation on the host and on b,
// dropping a new ripple every few frames, and compares the surfaces after each
// frame.
func Ripple(b accelerated.Backend, cfg RippleConfig, w io.Writer) (Timing, error) {
	var t Timing

	if err := cfg.Validate(); err != nil {
		return t, err
	}

	grid := accelerated.Grid{Width: cfg.GridWidth, Height: cfg.GridHeight}

	host, err := ripple.New(cfg.MaxRipples, grid)
	if err != nil {
		return t, err
	}

	dev, err := ripple.New(cfg.MaxRipples, grid)
	if err != nil {
		return t, err
	}

	rippleEvery := max(cfg.Frames/cfg.MaxRipples, 1)

	for frame := 0; frame < cfg.Frames; frame++ {
		now := float32(frame) * cfg.FrameTime

		if frame%rippleEvery == 0 {
			x, y := rand.Float32(), rand.Float32()
			host.AddRipple(x, y, now)
			dev.AddRipple(x, y, now)
		}

		d, err := timed(func() error { return host.Step(reference, now) })
		if err != nil {
			return t, err
		}
		t.CPU += d

		d, err = timed(func() error { return dev.Step(b, now) })
		if err != nil {
			return t, err
		}
		t.GPU += d

		if res := matrix.VerifySlices(host.Heights(), dev.Heights(), cfg.Tolerance); !res.Match {
			return t, mismatch(fmt.Sprintf("frame %d surfaces", frame), res)
		}
	}

	printTime(w, "CPU", t.CPU)
	printTime(w, "GPU", t.GPU)
	fmt.Fprintf(w, "Average GPU frame time: %0.2fms\n", float64(t.GPU)/float64(cfg.Frames)/float64(time.Millisecond))
	fmt.Fprintln(w, verifiedMessage)

	return t, nil
}

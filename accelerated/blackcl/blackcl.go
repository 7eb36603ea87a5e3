package blackcl

import (
	"fmt"
	"log/slog"

	"github.com/haormj/gpubench/accelerated"
	"github.com/haormj/gpubench/accelerated/kernels"
	"github.com/haormj/gpubench/matrix"
	"gitlab.com/microo8/blackcl"
)

const Name = "blackcl"

const arrayGroupSize = 64

func init() {
	accelerated.Register(Name, func(src string) accelerated.Backend { return New(src) })
}

type OpenCL struct {
	source string

	device  *blackcl.Device
	matmul  *blackcl.Kernel
	mulArrs *blackcl.Kernel
	ripple  *blackcl.Kernel

	bufferCache map[string]map[int]*blackcl.Vector
}

// New returns an OpenCL backend that builds source, or the embedded program
// when source is empty.
func New(source string) *OpenCL {
	return &OpenCL{
		source:      kernels.Source(source),
		bufferCache: make(map[string]map[int]*blackcl.Vector),
	}
}

// Name implements accelerated.Backend.
func (o *OpenCL) Name() string { return Name }

// Release implements accelerated.Backend.
func (o *OpenCL) Release() error {
	if o.device == nil {
		return nil
	}

	for _, bufferMap := range o.bufferCache {
		for _, buffer := range bufferMap {
			buffer.Release()
		}
	}

	o.bufferCache = make(map[string]map[int]*blackcl.Vector)

	if err := o.device.Release(); err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to release device: %w", err)
	}

	o.device = nil

	return nil
}

// AllocBuffer returns a device vector of size floats for bufferTag, reusing
// one from an earlier dispatch when the size matches.
func (o *OpenCL) AllocBuffer(bufferTag string, size int) (*blackcl.Vector, error) {
	if _, ok := o.bufferCache[bufferTag]; !ok {
		o.bufferCache[bufferTag] = make(map[int]*blackcl.Vector)
	}

	buffer, ok := o.bufferCache[bufferTag][size]
	if !ok {
		buffer, err := o.device.NewVector(size)
		if err != nil {
			return nil, fmt.Errorf("accelerated/blackcl: failed to create buffer: %w", err)
		}

		slog.Debug("allocated device buffer", "backend", Name, "tag", bufferTag, "floats", size)
		o.bufferCache[bufferTag][size] = buffer

		return buffer, nil
	}

	return buffer, nil
}

// Buffer asynchronously copies vals into the device buffer for bufferTag.
// The returned channel reports when the copy is done, or any error.
func (o *OpenCL) Buffer(bufferTag string, vals []float32) (*blackcl.Vector, <-chan error) {
	errChan := make(chan error, 1)

	buffer, err := o.AllocBuffer(bufferTag, len(vals))
	if err != nil {
		errChan <- err
		close(errChan)
		return nil, errChan
	}

	go func() {
		if err := <-buffer.Copy(vals); err != nil {
			errChan <- fmt.Errorf("accelerated/blackcl: failed to copy %s to device: %w", bufferTag, err)
		} else {
			errChan <- nil
		}

		close(errChan)
	}()

	return buffer, errChan
}

// stage copies every input to the device and waits for all copies.
func (o *OpenCL) stage(tags []string, inputs ...[]float32) ([]*blackcl.Vector, error) {
	vectors := make([]*blackcl.Vector, len(inputs))
	pending := make([]<-chan error, len(inputs))

	for i, in := range inputs {
		vectors[i], pending[i] = o.Buffer(tags[i], in)
	}

	var firstErr error
	for _, done := range pending {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return vectors, firstErr
}

// readBack copies a device vector into out.
func readBack(out []float32, v *blackcl.Vector) error {
	host, err := v.Data()
	if err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to read result: %w", err)
	}

	copy(out, host)

	return nil
}

// MatMul implements accelerated.Backend.
func (o *OpenCL) MatMul(dst, a, b *matrix.Dense) error {
	if o.device == nil {
		return accelerated.ErrNotSetup
	}

	if err := accelerated.CheckMatMul(dst, a, b); err != nil {
		return err
	}

	in, err := o.stage([]string{"a", "b"}, a.Elements(), b.Elements())
	if err != nil {
		return err
	}

	out, err := o.AllocBuffer("out", dst.Len())
	if err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to create output vector: %w", err)
	}

	dims := accelerated.MatMulDims(dst, a)
	global := accelerated.Grid{Width: dst.Columns(), Height: dst.Rows()}.Rounded(accelerated.TileSize)

	err = <-o.matmul.
		Global(global.Width, global.Height).
		Local(accelerated.TileSize, accelerated.TileSize).
		Run(in[0], in[1], out, dims.Inner, dims.OutColumns, dims.OutRows)
	if err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to run %s: %w", kernels.MultiplyMatrices, err)
	}

	return readBack(dst.Elements(), out)
}

// MulArrays implements accelerated.Backend.
func (o *OpenCL) MulArrays(out, a, b []float32) error {
	if o.device == nil {
		return accelerated.ErrNotSetup
	}

	if err := accelerated.CheckArrays(out, a, b); err != nil {
		return err
	}

	in, err := o.stage([]string{"x", "y"}, a, b)
	if err != nil {
		return err
	}

	outDev, err := o.AllocBuffer("xout", len(out))
	if err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to create output vector: %w", err)
	}

	global := (len(out) + arrayGroupSize - 1) / arrayGroupSize * arrayGroupSize

	err = <-o.mulArrs.Global(global).Local(arrayGroupSize).Run(in[0], in[1], outDev, uint32(len(out)))
	if err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to run %s: %w", kernels.MultiplyArrays, err)
	}

	return readBack(out, outDev)
}

// Ripple implements accelerated.Backend.
func (o *OpenCL) Ripple(heights []float32, grid accelerated.Grid, ripples []float32) error {
	if o.device == nil {
		return accelerated.ErrNotSetup
	}

	if err := accelerated.CheckRipple(heights, grid, ripples); err != nil {
		return err
	}

	// A zero-length vector cannot be created; an idle slot keeps the kernel
	// argument valid when there are no ripples at all.
	uniforms := ripples
	if len(uniforms) == 0 {
		uniforms = []float32{0, 0, 0, 1}
	}

	in, err := o.stage([]string{"ripples"}, uniforms)
	if err != nil {
		return err
	}

	heightsDev, err := o.AllocBuffer("heights", len(heights))
	if err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to create heights vector: %w", err)
	}

	global := grid.Rounded(accelerated.TileSize)

	err = <-o.ripple.
		Global(global.Width, global.Height).
		Local(accelerated.TileSize, accelerated.TileSize).
		Run(heightsDev, in[0], uint32(grid.Width), uint32(grid.Height), uint32(len(ripples)/4))
	if err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to run %s: %w", kernels.Ripple, err)
	}

	return readBack(heights, heightsDev)
}

// SetupContext implements accelerated.Backend.
func (o *OpenCL) SetupContext() (err error) {
	o.device, err = blackcl.GetDefaultDevice()
	if err != nil {
		return fmt.Errorf("accelerated/blackcl: failed to get default device: %w", err)
	}

	slog.Info("got OpenCL device", "backend", Name, "device", o.device.Name())

	// blackcl panics when the program does not build or an entry point is
	// missing.
	defer func() {
		if r := recover(); r != nil {
			o.device.Release()
			o.device = nil
			err = fmt.Errorf("accelerated/blackcl: failed to build kernels: %v", r)
		}
	}()

	o.device.AddProgram(o.source)
	o.matmul = o.device.Kernel(kernels.MultiplyMatrices)
	o.mulArrs = o.device.Kernel(kernels.MultiplyArrays)
	o.ripple = o.device.Kernel(kernels.Ripple)

	return nil
}

var _ accelerated.Backend = &OpenCL{}

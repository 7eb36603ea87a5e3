package goopencl

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/haormj/gpubench/accelerated"
	"github.com/haormj/gpubench/accelerated/kernels"
	"github.com/haormj/gpubench/matrix"
	"github.com/passkeyra/go-opencl/opencl"
)

const Name = "goopencl"

const (
	floatSize = 4
	ptrSize   = 8
)

var errNoDevice = errors.New("goopencl: no available GPU device")

func init() {
	accelerated.Register(Name, func(src string) accelerated.Backend { return New(src) })
}

// OpenCL dispatches through go-opencl. Its EnqueueNDRangeKernel takes no
// local work size, so unlike the blackcl backend the 16x16 thread group is
// not enforced here; the driver chooses the group shape.
type OpenCL struct {
	source string

	device       opencl.Device
	context      opencl.Context
	commandQueue opencl.CommandQueue
	program      opencl.Program
	kernels      map[string]opencl.Kernel

	buffers map[string]cachedBuffer
	ready   bool
}

type cachedBuffer struct {
	buffer opencl.Buffer
	size   uint64
}

func New(source string) *OpenCL {
	return &OpenCL{
		source:  kernels.Source(source),
		kernels: make(map[string]opencl.Kernel),
		buffers: make(map[string]cachedBuffer),
	}
}

// Name implements accelerated.Backend.
func (o *OpenCL) Name() string { return Name }

// Release implements accelerated.Backend.
func (o *OpenCL) Release() error {
	if !o.ready {
		return nil
	}

	for _, b := range o.buffers {
		b.buffer.Release()
	}

	for _, k := range o.kernels {
		k.Release()
	}

	o.program.Release()
	o.commandQueue.Release()
	o.context.Release()

	o.buffers = make(map[string]cachedBuffer)
	o.kernels = make(map[string]opencl.Kernel)
	o.ready = false

	return nil
}

var _ accelerated.Backend = &OpenCL{}

// getFirstDevice returns the first available OpenCL device of type deviceType.
func getFirstDevice(deviceType opencl.DeviceType) (found opencl.Device, err error) {
	platforms, err := opencl.GetPlatforms()
	if err != nil {
		return found, fmt.Errorf("goopencl: failed to list platforms: %w", err)
	}

	for _, platform := range platforms {
		var devices []opencl.Device
		devices, err = platform.GetDevices(deviceType)
		if err != nil {
			// A platform without devices of this type is not fatal.
			continue
		}

		for _, device := range devices {
			var available bool
			err = device.GetInfo(opencl.DeviceAvailable, &available)
			if err == nil && available {
				return device, nil
			}
		}
	}

	return found, errNoDevice
}

// SetupContext implements accelerated.Backend.
func (o *OpenCL) SetupContext() error {
	var err error

	o.device, err = getFirstDevice(opencl.DeviceTypeGPU)
	if err != nil {
		return fmt.Errorf("accelerated/goopencl: %w", err)
	}

	o.context, err = o.device.CreateContext()
	if err != nil {
		return fmt.Errorf("accelerated/goopencl: failed to create context: %w", err)
	}

	o.commandQueue, err = o.context.CreateCommandQueue(o.device)
	if err != nil {
		o.context.Release()
		return fmt.Errorf("accelerated/goopencl: failed to create command queue: %w", err)
	}

	o.program, err = o.context.CreateProgramWithSource(o.source)
	if err != nil {
		o.commandQueue.Release()
		o.context.Release()
		return fmt.Errorf("accelerated/goopencl: failed to create program: %w", err)
	}

	if err = o.program.Build(o.device, nil); err != nil {
		o.program.Release()
		o.commandQueue.Release()
		o.context.Release()
		return fmt.Errorf("accelerated/goopencl: failed to build program: %w", err)
	}

	o.ready = true

	for _, name := range []string{kernels.MultiplyMatricesHeader, kernels.MultiplyArraysHeader, kernels.RippleHeader} {
		k, err := o.program.CreateKernel(name)
		if err != nil {
			o.Release()
			return fmt.Errorf("accelerated/goopencl: failed to find kernel %s: %w", name, err)
		}

		o.kernels[name] = k
	}

	slog.Info("got OpenCL device", "backend", Name, "device", deviceName(func(name *string) error {
		return o.device.GetInfo(opencl.DeviceName, name)
	}))

	return nil
}

func deviceName(query func(*string) error) string {
	var name string
	if err := query(&name); err != nil || name == "" {
		return "unknown"
	}

	return name
}

// buffer returns the cached device buffer for tag, reallocating it when the
// byte size changes.
func (o *OpenCL) buffer(tag string, flag opencl.MemFlags, size uint64) (buf opencl.Buffer, err error) {
	if b, ok := o.buffers[tag]; ok {
		if b.size == size {
			return b.buffer, nil
		}

		b.buffer.Release()
		delete(o.buffers, tag)
	}

	buf, err = o.context.CreateBuffer([]opencl.MemFlags{flag}, size)
	if err != nil {
		return buf, fmt.Errorf("accelerated/goopencl: failed to create %s buffer: %w", tag, err)
	}

	slog.Debug("allocated device buffer", "backend", Name, "tag", tag, "bytes", size)
	o.buffers[tag] = cachedBuffer{buffer: buf, size: size}

	return buf, nil
}

// upload copies data into a read-only device buffer, blocking until done.
func (o *OpenCL) upload(tag string, data []float32) (buf opencl.Buffer, err error) {
	buf, err = o.buffer(tag, opencl.MemReadOnly, uint64(len(data)*floatSize))
	if err != nil {
		return buf, err
	}

	if err = o.commandQueue.EnqueueWriteBuffer(buf, true, data); err != nil {
		return buf, fmt.Errorf("accelerated/goopencl: failed to copy %s to device: %w", tag, err)
	}

	return buf, nil
}

// argSetter is the part of opencl.Kernel used to bind arguments.
type argSetter interface {
	SetArg(argIndex uint32, argSize uint64, argValue interface{}) error
}

var _ argSetter = (*opencl.Kernel)(nil)

// bindArgs binds bufs to consecutive kernel arguments. go-opencl only accepts
// *opencl.Buffer argument values, so sizes travel in a header buffer.
func bindArgs(k argSetter, name string, bufs ...*opencl.Buffer) error {
	for i, b := range bufs {
		if err := k.SetArg(uint32(i), ptrSize, b); err != nil {
			return fmt.Errorf("accelerated/goopencl: failed to set %s argument %d: %w", name, i, err)
		}
	}

	return nil
}

// packHeader stores uint32 words bit for bit in a float32 slice so they can
// share the float upload path. Kernels read the buffer as __global uint*.
func packHeader(words ...uint32) []float32 {
	out := make([]float32, len(words))
	for i, w := range words {
		out[i] = math.Float32frombits(w)
	}

	return out
}

// dispatch uploads header, binds args, runs kernel over global and blocks
// until the result is copied into out. The binding passes no local size, so
// the driver picks the work-group shape.
func (o *OpenCL) dispatch(name string, global []uint64, header []uint32, out []float32, outBuf opencl.Buffer, args ...opencl.Buffer) error {
	hBuf, err := o.upload(name+".header", packHeader(header...))
	if err != nil {
		return err
	}

	bufs := make([]*opencl.Buffer, 0, len(args)+1)
	for i := range args {
		bufs = append(bufs, &args[i])
	}
	bufs = append(bufs, &hBuf)

	k := o.kernels[name]
	if err := bindArgs(&k, name, bufs...); err != nil {
		return err
	}

	if err := o.commandQueue.EnqueueNDRangeKernel(k, uint32(len(global)), global); err != nil {
		return fmt.Errorf("accelerated/goopencl: failed to run %s: %w", name, err)
	}

	o.commandQueue.Finish()

	if err := o.commandQueue.EnqueueReadBuffer(outBuf, true, out); err != nil {
		return fmt.Errorf("accelerated/goopencl: failed to read %s result: %w", name, err)
	}

	return nil
}

// globalSize rounds grid up to whole tiles. Kernels bounds-check, so the
// extra threads are idle whatever group shape the driver chooses.
func globalSize(grid accelerated.Grid) []uint64 {
	g := grid.Rounded(accelerated.TileSize)

	return []uint64{uint64(g.Width), uint64(g.Height)}
}

// MatMul implements accelerated.Backend.
func (o *OpenCL) MatMul(dst, a, b *matrix.Dense) error {
	if !o.ready {
		return accelerated.ErrNotSetup
	}

	if err := accelerated.CheckMatMul(dst, a, b); err != nil {
		return err
	}

	aBuf, err := o.upload("a", a.Elements())
	if err != nil {
		return err
	}

	bBuf, err := o.upload("b", b.Elements())
	if err != nil {
		return err
	}

	outBuf, err := o.buffer("out", opencl.MemWriteOnly, uint64(dst.Len()*floatSize))
	if err != nil {
		return err
	}

	dims := accelerated.MatMulDims(dst, a)

	return o.dispatch(kernels.MultiplyMatricesHeader,
		globalSize(accelerated.Grid{Width: dst.Columns(), Height: dst.Rows()}),
		[]uint32{dims.Inner, dims.OutColumns, dims.OutRows},
		dst.Elements(), outBuf,
		aBuf, bBuf, outBuf)
}

// MulArrays implements accelerated.Backend.
func (o *OpenCL) MulArrays(out, a, b []float32) error {
	if !o.ready {
		return accelerated.ErrNotSetup
	}

	if err := accelerated.CheckArrays(out, a, b); err != nil {
		return err
	}

	aBuf, err := o.upload("x", a)
	if err != nil {
		return err
	}

	bBuf, err := o.upload("y", b)
	if err != nil {
		return err
	}

	outBuf, err := o.buffer("xout", opencl.MemWriteOnly, uint64(len(out)*floatSize))
	if err != nil {
		return err
	}

	return o.dispatch(kernels.MultiplyArraysHeader,
		[]uint64{uint64(len(out))},
		[]uint32{uint32(len(out))},
		out, outBuf,
		aBuf, bBuf, outBuf)
}

// Ripple implements accelerated.Backend.
func (o *OpenCL) Ripple(heights []float32, grid accelerated.Grid, ripples []float32) error {
	if !o.ready {
		return accelerated.ErrNotSetup
	}

	if err := accelerated.CheckRipple(heights, grid, ripples); err != nil {
		return err
	}

	uniforms := ripples
	if len(uniforms) == 0 {
		uniforms = []float32{0, 0, 0, 1}
	}

	rBuf, err := o.upload("ripples", uniforms)
	if err != nil {
		return err
	}

	hBuf, err := o.buffer("heights", opencl.MemWriteOnly, uint64(len(heights)*floatSize))
	if err != nil {
		return err
	}

	return o.dispatch(kernels.RippleHeader,
		globalSize(grid),
		[]uint32{uint32(grid.Width), uint32(grid.Height), uint32(len(ripples) / 4)},
		heights, hBuf,
		hBuf, rBuf)
}

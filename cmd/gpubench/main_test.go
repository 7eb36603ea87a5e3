package main

import (
	"bytes"
	"testing"

	"github.com/haormj/gpubench/accelerated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOutput(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestMatMulCommandOnCPU(t *testing.T) {
	out, err := run(t, "matmul", "--backend", "cpu", "--outer", "32", "--inner", "16")
	require.NoError(t, err)

	assert.Contains(t, out, "CPU execution time: ")
	assert.Contains(t, out, "GPU execution time: ")
	assert.Contains(t, out, "Verified CPU and GPU produced same result")
}

func TestMultiplyArraysCommandOnCPU(t *testing.T) {
	out, err := run(t, "multiply-arrays", "--backend", "cpu", "--size", "1024")
	require.NoError(t, err)
	assert.Contains(t, out, "Verified CPU and GPU produced same result")
}

func TestRippleCommandOnCPU(t *testing.T) {
	out, err := run(t, "ripple", "--backend", "cpu", "--width", "16", "--height", "16", "--frames", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Average GPU frame time: ")
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, "matmul", "--backend", "metal")
	assert.ErrorIs(t, err, accelerated.ErrUnknownBackend)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "matmul", "--backend", "cpu", "--log-level", "loud")
	assert.Error(t, err)
}

func TestMissingKernelSource(t *testing.T) {
	_, err := run(t, "matmul", "--backend", "cpu", "--kernel-source", "/nonexistent/kernels.cl")
	assert.Error(t, err)
}

package kernels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedProgramNamesEntryPoints(t *testing.T) {
	src := Source("")

	for _, name := range []string{
		MultiplyMatrices, MultiplyArrays, Ripple,
		MultiplyMatricesHeader, MultiplyArraysHeader, RippleHeader,
	} {
		assert.Contains(t, src, "__kernel void "+name+"(")
	}
}

func TestSourceOverride(t *testing.T) {
	assert.Equal(t, "custom", Source("custom"))
}

func TestLoad(t *testing.T) {
	src, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, source, src)

	path := filepath.Join(t.TempDir(), "k.cl")
	require.NoError(t, os.WriteFile(path, []byte("__kernel void x() {}"), 0o644))

	src, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "__kernel void x() {}", src)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cl"))
	assert.Error(t, err)
}

func TestHeaderEntryPointsTakeOnlyBuffers(t *testing.T) {
	src := Source("")

	for _, name := range []string{MultiplyMatricesHeader, MultiplyArraysHeader, RippleHeader} {
		start := strings.Index(src, "__kernel void "+name+"(")
		require.GreaterOrEqual(t, start, 0, name)

		sig := src[start : start+strings.Index(src[start:], ")")]
		for _, param := range strings.Split(sig, ",") {
			assert.Contains(t, param, "__global", "%s: %s", name, param)
		}
		assert.True(t, strings.HasSuffix(sig, "__global const uint *header"), name)
	}
}

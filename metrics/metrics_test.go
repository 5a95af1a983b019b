package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/gcodesolid/kernel"
	"github.com/ByLCY/gcodesolid/outline"
	"github.com/ByLCY/gcodesolid/toolpath"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "parse_ambiguity", Kind(toolpath.Diagnostic{Layer: 1, Err: toolpath.ErrParseAmbiguity}))
	assert.Equal(t, "layer_height_missing", Kind(fmt.Errorf("x: %w", toolpath.ErrLayerHeightMissing)))
	assert.Equal(t, "geometry_infeasible", Kind(outline.ErrGeometryInfeasible))
	assert.Equal(t, "kernel_failure", Kind(kernel.ErrKernelFailure))
	assert.Equal(t, "other", Kind(os.ErrNotExist))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Layer("exported")
	m.Segments("built", 12)
	m.Diagnostic(toolpath.ErrArcUnsupported)
	m.ObserveLayer(5 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "gcodesolid.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `gcodesolid_layers_total{outcome="exported"} 1`)
	assert.Contains(t, text, `gcodesolid_segments_total{outcome="built"} 12`)
	assert.Contains(t, text, `gcodesolid_diagnostics_total{kind="arc_unsupported"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Layer("exported")
	m.Segments("built", 3)
	m.Diagnostic(toolpath.ErrParseAmbiguity)
	m.ObserveLayer(time.Second)
}

package toolpath

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/gcodesolid/gcode"
)

func chunksOf(t *testing.T, program string) []gcode.Chunk {
	t.Helper()
	lines, err := gcode.ReadLines(strings.NewReader(program))
	require.NoError(t, err)
	return gcode.SplitLayers(lines)
}

const twoLayers = `; CHANGE_LAYER
; Z_HEIGHT: 0.2
; LAYER_HEIGHT: 0.2
; FEATURE: Outer wall
; LINE_WIDTH: 0.42
G1 X0 Y0 F12000
G1 X10.000 Y0.000 E0.05000
G1 X10 Y10 E0.05
G1 E.8 F1800
; CHANGE_LAYER
; Z_HEIGHT: 0.5
; LAYER_HEIGHT: 0.3
G1 X10 Y20 E0.1
`

func TestBuildAccumulatesHeightAndCarriesPosition(t *testing.T) {
	layers, failed := Build(chunksOf(t, twoLayers), Options{DefaultWidth: 0.4})
	require.Empty(t, failed)
	require.Len(t, layers, 2)

	first := layers[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, 0.0, first.Z)
	assert.Equal(t, 0.2, first.Height)

	placed := first.Placements(0.4)
	require.Len(t, placed, 3)
	assert.Equal(t, Segment{Start: mgl64.Vec3{0, 0, 0}, End: mgl64.Vec3{10, 0, 0}}, placed[0].Segment)
	assert.Equal(t, Segment{Start: mgl64.Vec3{10, 0, 0}, End: mgl64.Vec3{10, 10, 0}}, placed[1].Segment)
	assert.Equal(t, placed[2].Segment.Start, placed[2].Segment.End, "in-place extrusion is zero length")
	assert.Equal(t, mgl64.Vec3{10, 10, 0}, placed[2].Segment.Start)
	assert.Equal(t, 0.42, placed[0].Width)
	assert.Equal(t, 7, placed[0].Line)

	second := layers[1]
	assert.Equal(t, 0.2, second.Z)
	assert.Equal(t, 0.3, second.Height)
	segs := second.Placements(0.4)
	require.Len(t, segs, 1)
	// 位置跨层保留，z 更新为当前层高度
	assert.Equal(t, mgl64.Vec3{10, 10, 0.2}, segs[0].Segment.Start)
	assert.Equal(t, mgl64.Vec3{10, 20, 0.2}, segs[0].Segment.End)
	assert.Equal(t, 0.4, segs[0].Width, "width falls back to the default in a layer without directives")
}

func TestBridgeFlowScalesLineWidth(t *testing.T) {
	program := `; CHANGE_LAYER
; Z_HEIGHT: 0.2
; LAYER_HEIGHT: 0.2
; FEATURE: Internal Bridge
; LINE_WIDTH: 0.45
G1 X1 Y0 E0.1
; FEATURE: Sparse infill
; LINE_WIDTH: 0.45
G1 X2 Y0 E0.1
`
	layers, failed := Build(chunksOf(t, program), Options{DefaultWidth: 0.4})
	require.Empty(t, failed)
	require.Len(t, layers, 1)

	var widths []float64
	for _, e := range layers[0].Entries {
		if e.Kind == WidthEntry {
			widths = append(widths, e.Width)
		}
	}
	require.Len(t, widths, 2)
	assert.InDelta(t, 0.5175, widths[0], 1e-12)
	assert.InDelta(t, 0.45, widths[1], 1e-12)

	placed := layers[0].Placements(0.4)
	assert.InDelta(t, 0.5175, placed[0].Width, 1e-12)
	assert.InDelta(t, 0.45, placed[1].Width, 1e-12)
}

func TestWidthDirectiveAppliesForwardOnly(t *testing.T) {
	program := `; CHANGE_LAYER
; Z_HEIGHT: 0.2
; LAYER_HEIGHT: 0.2
G1 X1 Y0 E0.1
; LINE_WIDTH: 0.6
G1 X2 Y0 E0.1
`
	layers, _ := Build(chunksOf(t, program), Options{DefaultWidth: 0.4})
	placed := layers[0].Placements(0.4)
	require.Len(t, placed, 2)
	assert.Equal(t, 0.4, placed[0].Width)
	assert.Equal(t, 0.6, placed[1].Width)
}

func TestMissingHeightSkipsOnlyThatLayer(t *testing.T) {
	program := `; CHANGE_LAYER
; Z_HEIGHT: 0.2
; LAYER_HEIGHT: 0.2
G1 X1 Y0 E0.1
; CHANGE_LAYER
; Z_HEIGHT: 0.4
; LAYER_HEIGHT: unknown
G1 X2 Y0 E0.1
; CHANGE_LAYER
; Z_HEIGHT: 0.4
; LAYER_HEIGHT: 0.2
G1 X3 Y0 E0.1
; CHANGE_LAYER
`
	layers, failed := Build(chunksOf(t, program), Options{DefaultWidth: 0.4})
	require.Len(t, layers, 2)
	require.Len(t, failed, 2)

	assert.Equal(t, 2, failed[0].Layer)
	assert.Equal(t, 7, failed[0].Line)
	assert.True(t, errors.Is(failed[0], ErrLayerHeightMissing))
	assert.Equal(t, 4, failed[1].Layer)
	assert.ErrorIs(t, failed[1], ErrLayerHeightMissing)

	assert.Equal(t, 1, layers[0].Index)
	assert.Equal(t, 3, layers[1].Index)
	assert.Equal(t, 0.2, layers[1].Z)

	// 被跳过的第 2 层仍然移动了喷头
	placed := layers[1].Placements(0.4)
	require.Len(t, placed, 1)
	assert.Equal(t, mgl64.Vec3{2, 0, 0.2}, placed[0].Segment.Start)
	assert.Equal(t, mgl64.Vec3{3, 0, 0.2}, placed[0].Segment.End)
}

func TestSkippedLayerTravelCarriesIntoNextLayer(t *testing.T) {
	program := `; CHANGE_LAYER
; Z_HEIGHT: 0.2
; LAYER_HEIGHT: 0.2
G1 X1 Y0 E0.1
; CHANGE_LAYER
; Z_HEIGHT: 0.4
; LAYER_HEIGHT: ?
G1 X50 Y50 F12000
; CHANGE_LAYER
; Z_HEIGHT: 0.4
; LAYER_HEIGHT: 0.2
G1 X51 Y50 E0.1
`
	layers, failed := Build(chunksOf(t, program), Options{DefaultWidth: 0.4})
	require.Len(t, failed, 1)
	require.Len(t, layers, 2)

	placed := layers[1].Placements(0.4)
	require.Len(t, placed, 1)
	assert.Equal(t, mgl64.Vec3{50, 50, 0.2}, placed[0].Segment.Start)
	assert.InDelta(t, 1.0, placed[0].Segment.Length(), 1e-12)

	chunks := chunksOf(t, program)
	_, state, err := BuildLayer(chunks[1], 2, 0.2, NewToolState(0.4), Options{DefaultWidth: 0.4})
	assert.ErrorIs(t, err, ErrLayerHeightMissing)
	assert.Equal(t, mgl64.Vec3{50, 50, 0.2}, state.Position)
}

func TestUnrecognizedAndArcAreReported(t *testing.T) {
	program := `; CHANGE_LAYER
; Z_HEIGHT: 0.2
; LAYER_HEIGHT: 0.2
G1 X1 Y1
G2 X3 Y4 I-1.5 J0.5 E0.2
M106 S255
 indented continuation
G1 F3000
; LINE_WIDTH: ???
`
	layers, failed := Build(chunksOf(t, program), Options{DefaultWidth: 0.4})
	require.Empty(t, failed)
	diags := layers[0].Diagnostics
	require.Len(t, diags, 3)

	assert.ErrorIs(t, diags[0], ErrParseAmbiguity)
	assert.Equal(t, 4, diags[0].Line)
	assert.Equal(t, "G1 X1 Y1", diags[0].Text)
	assert.ErrorIs(t, diags[1], ErrArcUnsupported)
	assert.ErrorIs(t, diags[2], ErrParseAmbiguity)
	assert.Zero(t, layers[0].SegmentCount())
}

func TestTravelMovesWithoutEmitting(t *testing.T) {
	program := `; CHANGE_LAYER
; Z_HEIGHT: 0.2
; LAYER_HEIGHT: 0.2
G1 X5 Y5 F12000
G1 X6 Y7 E-.8
G1 X8 Y9 Z.6 F3000
`
	chunks := chunksOf(t, program)
	layer, state, err := BuildLayer(chunks[0], 1, 0.4, NewToolState(0.4), Options{DefaultWidth: 0.4})
	require.NoError(t, err)
	assert.Empty(t, layer.Entries)
	assert.Equal(t, mgl64.Vec3{8, 9, 0.4}, state.Position)
}

func TestSegmentLength(t *testing.T) {
	s := Segment{Start: mgl64.Vec3{0, 0, 1}, End: mgl64.Vec3{3, 4, 1}}
	assert.True(t, math.Abs(s.Length()-5) < 1e-12)
}

func TestWriteDebugJSON(t *testing.T) {
	layers, failed := Build(chunksOf(t, twoLayers), Options{DefaultWidth: 0.4})
	path := filepath.Join(t.TempDir(), "debug.json")
	require.NoError(t, WriteDebugJSON(layers, failed, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind": "segment"`)
	assert.Contains(t, string(data), `"kind": "width"`)
}

func TestFallbackHeightKeepsLayer(t *testing.T) {
	program := `; CHANGE_LAYER
; Z_HEIGHT: 0.2
G1 X1 Y0 E0.1
`
	layers, failed := Build(chunksOf(t, program), Options{DefaultWidth: 0.4})
	assert.Empty(t, layers)
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].Line)

	layers, failed = Build(chunksOf(t, program), Options{DefaultWidth: 0.4, FallbackHeight: 0.2})
	assert.Empty(t, failed)
	require.Len(t, layers, 1)
	assert.Equal(t, 0.2, layers[0].Height)
	require.Len(t, layers[0].Diagnostics, 1)
	assert.ErrorIs(t, layers[0].Diagnostics[0], ErrLayerHeightMissing)
	assert.Equal(t, 1, layers[0].SegmentCount())
}

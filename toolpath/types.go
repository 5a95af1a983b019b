package toolpath

import "github.com/go-gl/mathgl/mgl64"

// 该文件定义逐层挤出结果，供轮廓生成、几何内核与调试 JSON 共用。

// DefaultFlow is the flow multiplier outside of bridge features.
const DefaultFlow = 1.0

// BridgeFlow is applied while printing an internal bridge.
const BridgeFlow = 1.15

// BridgeFeature names the feature that switches to BridgeFlow.
const BridgeFeature = "Internal Bridge"

// Segment is a straight extrusion at constant z. Start == End for an
// in-place extrusion.
type Segment struct {
	Start mgl64.Vec3 `json:"start"`
	End   mgl64.Vec3 `json:"end"`
}

// Length returns the planar length of the segment.
func (s Segment) Length() float64 { return s.End.Sub(s.Start).Len() }

// EntryKind distinguishes the two entry variants of a layer.
type EntryKind int

const (
	WidthEntry EntryKind = iota
	SegmentEntry
)

func (k EntryKind) MarshalText() ([]byte, error) {
	if k == WidthEntry {
		return []byte("width"), nil
	}
	return []byte("segment"), nil
}

// Entry is either a width directive or a segment. Order matters: a width
// directive applies only to segments after it.
type Entry struct {
	Kind    EntryKind `json:"kind"`
	Width   float64   `json:"width,omitempty"`
	Segment Segment   `json:"segment"`
	Line    int       `json:"line"` // 源文件行号（1 起）
}

// Layer 记录单层的高度、挤出序列与诊断信息。
type Layer struct {
	Index       int          `json:"index"` // 1 起
	Z           float64      `json:"z"`
	Height      float64      `json:"height"`
	Entries     []Entry      `json:"entries"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Placed is a segment with the width that was active when it was emitted.
type Placed struct {
	Segment Segment
	Width   float64
	Line    int
}

// Placements resolves width directives forward and returns the layer's
// segments in tool-path order. Segments before the first directive use
// defaultWidth.
func (l Layer) Placements(defaultWidth float64) []Placed {
	width := defaultWidth
	out := make([]Placed, 0, len(l.Entries))
	for _, e := range l.Entries {
		switch e.Kind {
		case WidthEntry:
			width = e.Width
		case SegmentEntry:
			out = append(out, Placed{Segment: e.Segment, Width: width, Line: e.Line})
		}
	}
	return out
}

// SegmentCount returns the number of segment entries.
func (l Layer) SegmentCount() int {
	n := 0
	for _, e := range l.Entries {
		if e.Kind == SegmentEntry {
			n++
		}
	}
	return n
}

// ToolState is the pen state threaded through the layers. Position carries
// over from one layer to the next; width and flow start from defaults.
type ToolState struct {
	Position mgl64.Vec3
	Width    float64
	Flow     float64
}

// NewToolState returns the state at program start.
func NewToolState(defaultWidth float64) ToolState {
	return ToolState{Width: defaultWidth, Flow: DefaultFlow}
}

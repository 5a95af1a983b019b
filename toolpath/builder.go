package toolpath

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ByLCY/gcodesolid/gcode"
	"github.com/ByLCY/gcodesolid/logging"
)

// Options configures layer building.
type Options struct {
	DefaultWidth float64
	// FallbackHeight, when positive, replaces a missing declared height. The
	// layer is still built and carries the ErrLayerHeightMissing diagnostic.
	FallbackHeight float64
	Logger         *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

// Build 按层顺序折叠所有分块：累计层高，并在层之间传递笔位置。
// 缺少层高的层会被记录为诊断并跳过，z 不随之增加，其余层照常处理。
func Build(chunks []gcode.Chunk, opts Options) ([]Layer, []Diagnostic) {
	var (
		layers []Layer
		failed []Diagnostic
		z      float64
	)
	state := NewToolState(opts.DefaultWidth)
	log := opts.logger()

	for i, chunk := range chunks {
		index := i + 1
		layer, next, err := BuildLayer(chunk, index, z, state, opts)
		state = next
		if err != nil {
			var diag Diagnostic
			if !errors.As(err, &diag) {
				diag = Diagnostic{Layer: index, Err: err}
			}
			log.Warn("skipping layer", "layer", index, "err", diag)
			failed = append(failed, diag)
			continue
		}
		layers = append(layers, layer)
		z += layer.Height
		log.Debug("layer built", "layer", index, "z", layer.Z, "height", layer.Height,
			"segments", layer.SegmentCount(), "diagnostics", len(layer.Diagnostics))
	}
	return layers, failed
}

// BuildLayer walks one chunk at height z starting from state, and returns the
// layer together with the state after its last line. The returned error is a
// Diagnostic wrapping ErrLayerHeightMissing when the chunk declares no height;
// the state is advanced through the chunk's moves in that case too.
func BuildLayer(chunk gcode.Chunk, index int, z float64, state ToolState, opts Options) (Layer, ToolState, error) {
	height, err := declaredHeight(chunk, index)
	var missing []Diagnostic
	if err != nil {
		var diag Diagnostic
		if opts.FallbackHeight <= 0 || !errors.As(err, &diag) {
			// 层被丢弃，但喷头仍按该层的移动前进，下一层从正确位置开始。
			_, state = walkLayer(chunk, Layer{Index: index, Z: z}, state, z, opts)
			return Layer{}, state, err
		}
		height = opts.FallbackHeight
		missing = append(missing, diag)
	}

	layer, state := walkLayer(chunk, Layer{Index: index, Z: z, Height: height, Diagnostics: missing}, state, z, opts)
	return layer, state, nil
}

func walkLayer(chunk gcode.Chunk, layer Layer, state ToolState, z float64, opts Options) (Layer, ToolState) {
	index := layer.Index
	state.Width = opts.DefaultWidth
	state.Flow = DefaultFlow
	state.Position = mgl64.Vec3{state.Position.X(), state.Position.Y(), z}

	for _, line := range chunk.Lines {
		text := line.Text
		if gcode.IsComment(text) {
			layer, state = applyComment(layer, state, line)
			continue
		}
		if gcode.IsIgnored(text) {
			continue
		}

		mv := gcode.Classify(text)
		switch mv.Kind {
		case gcode.Travel, gcode.RetractionTravel:
			state.Position = mgl64.Vec3{mv.X, mv.Y, z}
		case gcode.Extrusion:
			end := mgl64.Vec3{mv.X, mv.Y, z}
			layer.Entries = append(layer.Entries, Entry{
				Kind:    SegmentEntry,
				Segment: Segment{Start: state.Position, End: end},
				Line:    line.Number,
			})
			state.Position = end
		case gcode.CircleExtrusion:
			layer.Entries = append(layer.Entries, Entry{
				Kind:    SegmentEntry,
				Segment: Segment{Start: state.Position, End: state.Position},
				Line:    line.Number,
			})
		case gcode.Arc:
			layer.Diagnostics = append(layer.Diagnostics, Diagnostic{
				Layer: index, Line: line.Number, Text: text, Err: ErrArcUnsupported,
			})
		case gcode.Unrecognized:
			layer.Diagnostics = append(layer.Diagnostics, Diagnostic{
				Layer: index, Line: line.Number, Text: text, Err: ErrParseAmbiguity,
			})
		}
	}
	return layer, state
}

func applyComment(layer Layer, state ToolState, line gcode.Line) (Layer, ToolState) {
	if name, ok := gcode.Feature(line.Text); ok {
		if name == BridgeFeature {
			state.Flow = BridgeFlow
		} else {
			state.Flow = DefaultFlow
		}
	}
	width, ok, err := gcode.LineWidth(line.Text)
	if !ok {
		return layer, state
	}
	if err != nil {
		layer.Diagnostics = append(layer.Diagnostics, Diagnostic{
			Layer: layer.Index, Line: line.Number, Text: line.Text,
			Err: fmt.Errorf("%w: %v", ErrParseAmbiguity, err),
		})
		return layer, state
	}
	state.Width = width * state.Flow
	layer.Entries = append(layer.Entries, Entry{Kind: WidthEntry, Width: state.Width, Line: line.Number})
	return layer, state
}

func declaredHeight(chunk gcode.Chunk, index int) (float64, error) {
	line, ok := chunk.HeightLine()
	if !ok {
		return 0, Diagnostic{Layer: index, Err: fmt.Errorf("%w: 分块只有 %d 行", ErrLayerHeightMissing, len(chunk.Lines))}
	}
	h, err := gcode.DeclaredHeight(line.Text)
	if err != nil {
		return 0, Diagnostic{Layer: index, Line: line.Number, Text: line.Text, Err: fmt.Errorf("%w: %v", ErrLayerHeightMissing, err)}
	}
	if h <= 0 {
		return 0, Diagnostic{Layer: index, Line: line.Number, Text: line.Text, Err: fmt.Errorf("%w: 层高 %g 不是正数", ErrLayerHeightMissing, h)}
	}
	return h, nil
}

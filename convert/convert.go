package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/gcodesolid/gcode"
	"github.com/ByLCY/gcodesolid/kernel"
	"github.com/ByLCY/gcodesolid/logging"
	"github.com/ByLCY/gcodesolid/metrics"
	"github.com/ByLCY/gcodesolid/naming"
	"github.com/ByLCY/gcodesolid/outline"
	"github.com/ByLCY/gcodesolid/toolpath"
)

// Policy decides what happens to a layer when one of its outlines is
// geometrically infeasible.
type Policy string

const (
	// SkipSegment drops the segment and records a diagnostic.
	SkipSegment Policy = "skip"
	// AbortLayer fails the whole layer; other layers continue.
	AbortLayer Policy = "abort"
)

// Options 配置一次转换。
type Options struct {
	DefaultWidth   float64
	FallbackHeight float64 // >0 时，缺少层高的层按此高度处理
	Eps            float64
	Mode           outline.Mode
	OnInfeasible   Policy
	Workers        int

	OutputDir    string // 为空时输出到输入文件所在目录
	NameTemplate string
	DebugPath    string // 非空时输出逐层挤出结果 JSON

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

// LayerReport is the outcome of one layer.
type LayerReport struct {
	Index    int
	Z        float64
	Height   float64
	Segments int
	Built    int
	Skipped  int
	Path     string // 导出文件；为空表示未导出
	Err      error  // 该层失败的原因
	// Diagnostics holds non-fatal findings: unrecognized lines, arcs,
	// skipped infeasible segments.
	Diagnostics []toolpath.Diagnostic
}

// Report summarizes a conversion.
type Report struct {
	Input  string
	Layers []LayerReport
	// Missing lists layers dropped because their height could not be read.
	Missing []toolpath.Diagnostic
}

// Exported returns the number of layers written to disk.
func (r *Report) Exported() int {
	n := 0
	for _, l := range r.Layers {
		if l.Path != "" {
			n++
		}
	}
	return n
}

// Errors returns every layer failure, including layers with a missing height.
func (r *Report) Errors() []error {
	var errs []error
	for _, d := range r.Missing {
		errs = append(errs, d)
	}
	for _, l := range r.Layers {
		if l.Err != nil {
			errs = append(errs, l.Err)
		}
	}
	return errs
}

// Diagnostics returns all non-fatal diagnostics in layer order.
func (r *Report) Diagnostics() []toolpath.Diagnostic {
	var out []toolpath.Diagnostic
	for _, l := range r.Layers {
		out = append(out, l.Diagnostics...)
	}
	return out
}

// shape is the outline of one placed segment, or the reason it has none.
type shape struct {
	outline outline.Outline
	err     error
	line    int
}

// Run 串联分层、挤出解析、轮廓生成与几何内核导出。
// 输入无法读取、输出无法写入属于致命错误，直接返回；
// 单层或单段的失败记录在 Report 中，不影响其它层。
func Run(ctx context.Context, input string, k kernel.Kernel, opts Options) (*Report, error) {
	log := opts.logger()
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.OnInfeasible == "" {
		opts.OnInfeasible = SkipSegment
	}

	lines, err := readProgram(input)
	if err != nil {
		return nil, err
	}
	chunks := gcode.SplitLayers(lines)
	log.Info("program split", "input", input, "lines", len(lines), "layers", len(chunks))

	layers, missing := toolpath.Build(chunks, toolpath.Options{
		DefaultWidth:   opts.DefaultWidth,
		FallbackHeight: opts.FallbackHeight,
		Logger:         log,
	})
	report := &Report{Input: input, Missing: missing}
	for _, d := range missing {
		opts.Metrics.Layer("missing_height")
		opts.Metrics.Diagnostic(d)
	}

	if opts.DebugPath != "" {
		if err := toolpath.WriteDebugJSON(layers, missing, opts.DebugPath); err != nil {
			return report, fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}

	// 模板错误在任何导出之前暴露。
	if _, err := naming.LayerFile(opts.NameTemplate, input, opts.OutputDir, 1, k.Ext()); err != nil {
		return report, err
	}
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return report, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	shapes, err := generateOutlines(ctx, layers, opts)
	if err != nil {
		return report, err
	}

	guard := kernel.NewGuard(k)
	for i, layer := range layers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		lr, err := exportLayer(guard, input, layer, shapes[i], opts)
		report.Layers = append(report.Layers, lr)
		for _, d := range lr.Diagnostics {
			opts.Metrics.Diagnostic(d)
		}
		if err != nil {
			return report, err
		}
		switch {
		case lr.Err != nil:
			opts.Metrics.Layer("failed")
			opts.Metrics.Diagnostic(lr.Err)
			log.Error("layer failed", "layer", lr.Index, "err", lr.Err)
		case lr.Path == "":
			opts.Metrics.Layer("empty")
			log.Warn("layer has no solids, nothing exported", "layer", lr.Index)
		default:
			opts.Metrics.Layer("exported")
			log.Info("layer exported", "layer", lr.Index, "z", lr.Z, "segments", lr.Built,
				"skipped", lr.Skipped, "diagnostics", len(lr.Diagnostics), "path", lr.Path)
		}
	}
	return report, nil
}

func readProgram(input string) ([]gcode.Line, error) {
	file, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("无法打开 G-code 文件 %s: %w", input, err)
	}
	defer file.Close()

	lines, err := gcode.ReadLines(file)
	if err != nil {
		return nil, fmt.Errorf("读取 G-code 文件 %s 失败: %w", input, err)
	}
	return lines, nil
}

// generateOutlines computes every segment's outline. Outlines are pure, so
// layers are processed concurrently; each task writes only its own slot.
func generateOutlines(ctx context.Context, layers []toolpath.Layer, opts Options) ([][]shape, error) {
	out := make([][]shape, len(layers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, layer := range layers {
		g.Go(func() error {
			placed := layer.Placements(opts.DefaultWidth)
			shapes := make([]shape, len(placed))
			for j, p := range placed {
				if j%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				o, err := outline.Generate(p.Segment, p.Width, layer.Height, opts.Mode, opts.Eps)
				shapes[j] = shape{outline: o, err: err, line: p.Line}
			}
			out[i] = shapes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// exportLayer unions one layer inside a kernel session and writes it out.
// The returned error is fatal for the whole run; layer-scoped failures are
// reported through LayerReport.Err.
func exportLayer(guard *kernel.Guard, input string, layer toolpath.Layer, shapes []shape, opts Options) (LayerReport, error) {
	lr := LayerReport{
		Index:       layer.Index,
		Z:           layer.Z,
		Height:      layer.Height,
		Segments:    len(shapes),
		Diagnostics: append([]toolpath.Diagnostic(nil), layer.Diagnostics...),
	}

	session := guard.Acquire(layer.Index)
	defer session.Release()
	start := time.Now()
	defer func() { opts.Metrics.ObserveLayer(time.Since(start)) }()

	for j, s := range shapes {
		if s.err != nil {
			diag := toolpath.Diagnostic{Layer: layer.Index, Line: s.line, Err: s.err}
			if opts.OnInfeasible == AbortLayer {
				lr.Err = diag
				opts.Metrics.Segments("built", lr.Built)
				return lr, nil
			}
			lr.Diagnostics = append(lr.Diagnostics, diag)
			lr.Skipped++
			continue
		}
		if err := session.Add(j, s.outline); err != nil {
			lr.Err = toolpath.Diagnostic{Layer: layer.Index, Line: s.line, Err: err}
			opts.Metrics.Segments("built", lr.Built)
			return lr, nil
		}
		lr.Built++
	}
	opts.Metrics.Segments("built", lr.Built)
	opts.Metrics.Segments("skipped", lr.Skipped)

	if session.Empty() {
		return lr, nil
	}

	path, err := naming.LayerFile(opts.NameTemplate, input, opts.OutputDir, layer.Index, guard.Ext())
	if err != nil {
		return lr, err
	}
	file, err := os.Create(path)
	if err != nil {
		return lr, fmt.Errorf("创建输出文件 %s 失败: %w", path, err)
	}
	if err := session.Export(file); err != nil {
		file.Close()
		os.Remove(path)
		lr.Err = err
		return lr, nil
	}
	if err := file.Close(); err != nil {
		return lr, fmt.Errorf("写入输出文件 %s 失败: %w", path, err)
	}
	lr.Path = path
	return lr, nil
}

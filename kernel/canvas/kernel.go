package canvaskernel

import (
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/gcodesolid/kernel"
	"github.com/ByLCY/gcodesolid/outline"
)

// exportMargin 导出时在实体包围盒四周留出的空白（mm）。
const exportMargin = 1.0

// Format is the exchange format written by Export.
type Format string

const (
	SVG Format = "svg"
	PDF Format = "pdf"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case SVG, PDF:
		return f, nil
	default:
		return "", fmt.Errorf("不支持的导出格式 %q（可选 svg、pdf）", s)
	}
}

// Kernel builds layer regions via github.com/tdewolff/canvas. A solid is a
// planar region plus its z range; units are millimetres.
type Kernel struct {
	format  Format
	title   string
	creator string
}

var _ kernel.Kernel = (*Kernel)(nil)

// Options configures the canvas kernel.
type Options struct {
	Format  Format
	Title   string // PDF 元信息中的标题，通常为输入文件名
	Creator string
}

// NewKernel creates a canvas-backed kernel. An empty format means SVG.
func NewKernel(opts Options) *Kernel {
	format := opts.Format
	if format == "" {
		format = SVG
	}
	return &Kernel{format: format, title: opts.Title, creator: opts.Creator}
}

// Solid is a layer region between Z and Z+Height. Min/Max track the planar
// bounding box so export does not depend on path internals.
type Solid struct {
	Region *canvas.Path
	Z      float64
	Height float64
	Min    mgl64.Vec2
	Max    mgl64.Vec2
}

// Empty implements kernel.Solid.
func (s *Solid) Empty() bool { return s == nil || s.Region == nil || s.Region.Empty() }

// Ext implements kernel.Kernel.
func (k *Kernel) Ext() string { return string(k.format) }

// Build turns one outline into a solid.
func (k *Kernel) Build(o outline.Outline) (kernel.Solid, error) {
	if !(o.Height > 0) {
		return nil, fmt.Errorf("拉伸高度必须为正数: %g", o.Height)
	}
	path, err := outlinePath(o)
	if err != nil {
		return nil, err
	}
	if path.Empty() {
		return nil, fmt.Errorf("轮廓为空")
	}
	lo, hi := outlineBounds(o)
	return &Solid{Region: path, Z: o.Z, Height: o.Height, Min: lo, Max: hi}, nil
}

// Union merges b into a. Both solids must share the same z range.
func (k *Kernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, ok := a.(*Solid)
	if !ok {
		return nil, fmt.Errorf("不支持的实体类型 %T", a)
	}
	sb, ok := b.(*Solid)
	if !ok {
		return nil, fmt.Errorf("不支持的实体类型 %T", b)
	}
	if sa.Empty() {
		return sb, nil
	}
	if sb.Empty() {
		return sa, nil
	}
	if sa.Z != sb.Z || sa.Height != sb.Height {
		return nil, fmt.Errorf("实体高度区间不一致: [%g,+%g] 与 [%g,+%g]", sa.Z, sa.Height, sb.Z, sb.Height)
	}
	return &Solid{
		Region: sa.Region.Or(sb.Region),
		Z:      sa.Z,
		Height: sa.Height,
		Min:    mgl64.Vec2{math.Min(sa.Min.X(), sb.Min.X()), math.Min(sa.Min.Y(), sb.Min.Y())},
		Max:    mgl64.Vec2{math.Max(sa.Max.X(), sb.Max.X()), math.Max(sa.Max.Y(), sb.Max.Y())},
	}, nil
}

// Export writes the region as a single page. The page covers the solid's
// bounding box plus a margin; y grows upwards like printer coordinates.
func (k *Kernel) Export(s kernel.Solid, w io.Writer) error {
	solid, ok := s.(*Solid)
	if !ok {
		return fmt.Errorf("不支持的实体类型 %T", s)
	}
	if solid.Empty() {
		return fmt.Errorf("实体为空，无法导出")
	}

	width := solid.Max.X() - solid.Min.X() + 2*exportMargin
	height := solid.Max.Y() - solid.Min.Y() + 2*exportMargin
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetFillColor(canvas.Black)
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(exportMargin-solid.Min.X(), exportMargin-solid.Min.Y(), solid.Region)

	switch k.format {
	case PDF:
		writer := pdf.New(w, width, height, nil)
		subject := fmt.Sprintf("z=%g height=%g origin=(%g,%g)", solid.Z, solid.Height,
			solid.Min.X()-exportMargin, solid.Min.Y()-exportMargin)
		writer.SetInfo(k.title, subject, "gcode, layer", "", k.creator)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return fmt.Errorf("写入 PDF 失败: %w", err)
		}
	case SVG:
		writer := svg.New(w, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return fmt.Errorf("写入 SVG 失败: %w", err)
		}
	default:
		return fmt.Errorf("不支持的导出格式 %q", k.format)
	}
	return nil
}

// outlinePath 将轮廓描述转换为 canvas 路径（逆时针，mm）。
func outlinePath(o outline.Outline) (*canvas.Path, error) {
	switch o.Shape {
	case outline.Circle:
		if !(o.Radius > 0) {
			return nil, fmt.Errorf("圆半径必须为正数: %g", o.Radius)
		}
		return canvas.Circle(o.Radius).Translate(o.Center.X(), o.Center.Y()), nil
	case outline.Polygon:
		switch o.Mode {
		case outline.Simple:
			p := &canvas.Path{}
			p.MoveTo(o.Corners[0].X(), o.Corners[0].Y())
			for _, c := range o.Corners[1:] {
				p.LineTo(c.X(), c.Y())
			}
			p.Close()
			return p, nil
		case outline.Fillet:
			if !(o.Radius > 0) || 2*o.Radius >= o.Width {
				return nil, fmt.Errorf("圆角半径 %g 不适用于线宽 %g", o.Radius, o.Width)
			}
			return place(canvas.RoundedRectangle(o.Length, o.Width, o.Radius), o), nil
		case outline.Chamfer:
			if !(o.Chamfer > 0) || 2*o.Chamfer >= o.Width {
				return nil, fmt.Errorf("倒角 %g 不适用于线宽 %g", o.Chamfer, o.Width)
			}
			return place(canvas.BeveledRectangle(o.Length, o.Width, o.Chamfer), o), nil
		default:
			return nil, fmt.Errorf("未知的端部处理方式 %q", o.Mode)
		}
	default:
		return nil, fmt.Errorf("未知的轮廓类型 %d", o.Shape)
	}
}

// place moves a rectangle built at the origin (lower-left corner at 0,0,
// long side along x) onto the outline's centre and direction.
func place(p *canvas.Path, o outline.Outline) *canvas.Path {
	p = p.Translate(-o.Length/2, -o.Width/2)
	m := canvas.Identity.Translate(o.Center.X(), o.Center.Y()).Rotate(o.Angle * 180 / math.Pi)
	return p.Transform(m)
}

func outlineBounds(o outline.Outline) (mgl64.Vec2, mgl64.Vec2) {
	if o.Shape == outline.Circle {
		r := mgl64.Vec2{o.Radius, o.Radius}
		return o.Center.Sub(r), o.Center.Add(r)
	}
	lo, hi := o.Corners[0], o.Corners[0]
	for _, c := range o.Corners[1:] {
		lo = mgl64.Vec2{math.Min(lo.X(), c.X()), math.Min(lo.Y(), c.Y())}
		hi = mgl64.Vec2{math.Max(hi.X(), c.X()), math.Max(hi.Y(), c.Y())}
	}
	return lo, hi
}

// Package outline derives the 2D footprint of a printed bead: a rectangle
// covering the segment extended by half the bead width at each end, with
// optional rounding or bevelling of its corners.
package outline

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ByLCY/gcodesolid/toolpath"
)

// ErrGeometryInfeasible marks a width/tolerance combination that cannot
// produce a valid outline.
var ErrGeometryInfeasible = errors.New("几何不可行")

// Mode selects the end treatment of the rectangle.
type Mode string

const (
	Simple  Mode = "simple"
	Fillet  Mode = "fillet"
	Chamfer Mode = "chamfer"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Simple, Fillet, Chamfer:
		return m, nil
	default:
		return "", fmt.Errorf("未知的精度模式 %q（可选 simple、fillet、chamfer）", s)
	}
}

// Shape tags the outline variant.
type Shape int

const (
	Polygon Shape = iota
	Circle
)

// Outline is what crosses the geometry-kernel boundary. For Polygon the
// corners trace A→B→C→D around the extended centerline; Radius is the fillet
// radius (fillet mode) and Chamfer the bevel length (chamfer mode). For Circle
// only Center and Radius are meaningful.
type Outline struct {
	Shape   Shape
	Mode    Mode
	Corners [4]mgl64.Vec2
	Center  mgl64.Vec2
	Radius  float64
	Chamfer float64

	// Length and Width of the rectangle, Angle of its long axis in radians.
	Length float64
	Width  float64
	Angle  float64

	// Z is the bottom of the prism and Height its extrusion.
	Z      float64
	Height float64
}

// Generate computes the outline for one segment.
func Generate(seg toolpath.Segment, width, height float64, mode Mode, eps float64) (Outline, error) {
	if !(width > 0) || math.IsInf(width, 0) {
		return Outline{}, fmt.Errorf("%w: 线宽 %g", ErrGeometryInfeasible, width)
	}
	if !(height > 0) || math.IsInf(height, 0) {
		return Outline{}, fmt.Errorf("%w: 层高 %g", ErrGeometryInfeasible, height)
	}

	s, e := seg.Start, seg.End
	length := seg.Length()
	if length <= eps {
		return Outline{
			Shape:  Circle,
			Mode:   mode,
			Center: s.Vec2(),
			Radius: width / 2,
			Width:  width,
			Z:      s.Z(),
			Height: height,
		}, nil
	}

	ns, ne := Extend(s, e, width/2)
	o := Outline{
		Shape:   Polygon,
		Mode:    mode,
		Corners: RectanglePoints(ns.Vec2(), ne.Vec2(), width),
		Center:  ns.Vec2().Add(ne.Vec2()).Mul(0.5),
		Length:  length + width,
		Width:   width,
		Angle:   math.Atan2(e.Y()-s.Y(), e.X()-s.X()),
		Z:       ne.Z(),
		Height:  height,
	}

	switch mode {
	case Simple:
	case Fillet:
		r := FilletRadius(width, eps)
		if r <= 0 {
			return Outline{}, fmt.Errorf("%w: 圆角半径 %g 不适用于线宽 %g", ErrGeometryInfeasible, r, width)
		}
		o.Radius = r
	case Chamfer:
		c := ChamferLength(width)
		if c <= 0 || c >= width/2 {
			return Outline{}, fmt.Errorf("%w: 倒角 %g 不适用于线宽 %g", ErrGeometryInfeasible, c, width)
		}
		o.Chamfer = c
	default:
		return Outline{}, fmt.Errorf("未知的精度模式 %q", mode)
	}
	return o, nil
}

// Extend moves start and end outward along the segment by ext each.
func Extend(start, end mgl64.Vec3, ext float64) (mgl64.Vec3, mgl64.Vec3) {
	d := end.Sub(start)
	f := ext / d.Len()
	return start.Sub(d.Mul(f)), end.Add(d.Mul(f))
}

// RectanglePoints returns the corners A, B, C, D of the rectangle of the
// given width around the centerline s→e. A and D lie on the left of the
// direction of travel, B and C on the right.
func RectanglePoints(s, e mgl64.Vec2, width float64) [4]mgl64.Vec2 {
	u := e.Sub(s).Normalize()
	r := mgl64.Vec2{-u.Y(), u.X()}.Mul(width / 2)
	return [4]mgl64.Vec2{
		s.Add(r),
		s.Sub(r),
		e.Sub(r),
		e.Add(r),
	}
}

// FilletRadius is half the width less eps, so the rounding never consumes
// the whole short edge.
func FilletRadius(width, eps float64) float64 { return width/2 - eps }

// ChamferLength is the bevel that approximates a quarter circle of radius
// width/2 by a straight cut.
func ChamferLength(width float64) float64 {
	return math.Sqrt2 * ((math.Sqrt2 - 1) * width / 2)
}

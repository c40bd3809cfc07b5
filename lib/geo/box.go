package geo

import (
	"fmt"

	"seqanim/lib/go2"
)

type Box struct {
	TopLeft *Point
	Width   float64
	Height  float64
}

func NewBox(tl *Point, width, height float64) *Box {
	return &Box{
		TopLeft: tl,
		Width:   width,
		Height:  height,
	}
}

func (b *Box) Copy() *Box {
	if b == nil {
		return nil
	}
	return NewBox(b.TopLeft.Copy(), b.Width, b.Height)
}

func (b *Box) Center() *Point {
	return NewPoint(b.TopLeft.X+b.Width/2, b.TopLeft.Y+b.Height/2)
}

func (b *Box) Bottom() float64 {
	return b.TopLeft.Y + b.Height
}

func (b *Box) Right() float64 {
	return b.TopLeft.X + b.Width
}

// Expand returns a copy of b grown by pad on every side.
func (b *Box) Expand(pad float64) *Box {
	return NewBox(NewPoint(b.TopLeft.X-pad, b.TopLeft.Y-pad), b.Width+2*pad, b.Height+2*pad)
}

// Contains reports whether p lies inside b, borders included.
func (b *Box) Contains(p *Point) bool {
	return b.TopLeft.X <= p.X && p.X <= b.Right() &&
		b.TopLeft.Y <= p.Y && p.Y <= b.Bottom()
}

// DistanceToPoint is the distance from p to the closest point of b.
// It is 0 when p is inside b.
func (b *Box) DistanceToPoint(p *Point) float64 {
	cx := go2.Max(b.TopLeft.X, go2.Min(p.X, b.Right()))
	cy := go2.Max(b.TopLeft.Y, go2.Min(p.Y, b.Bottom()))
	return EuclideanDistance(p.X, p.Y, cx, cy)
}

// VerticalSpan is the [top, bottom] interval covered by b.
func (b *Box) VerticalSpan() Span {
	return Span{Top: b.TopLeft.Y, Bottom: b.Bottom()}
}

// RelativePoint maps fractions of the width and height, as in draw.io exit and entry
// constraints, to an absolute point.
func (b *Box) RelativePoint(fx, fy float64) *Point {
	return NewPoint(b.TopLeft.X+fx*b.Width, b.TopLeft.Y+fy*b.Height)
}

func (b *Box) ToString() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("{TopLeft: %s, Width: %.0f, Height: %.0f}", b.TopLeft.ToString(), b.Width, b.Height)
}

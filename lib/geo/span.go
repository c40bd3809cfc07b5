package geo

import "fmt"

// Span is a closed vertical interval.
type Span struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func NewSpan(top, bottom float64) Span {
	return Span{Top: top, Bottom: bottom}
}

func (s Span) Height() float64 {
	return s.Bottom - s.Top
}

func (s Span) Contains(y float64) bool {
	return s.Top <= y && y <= s.Bottom
}

// ContainsSpan reports whether o lies entirely within s.
func (s Span) ContainsSpan(o Span) bool {
	return s.Top <= o.Top && o.Bottom <= s.Bottom
}

// Overlaps reports whether s and o share more than a border.
func (s Span) Overlaps(o Span) bool {
	return s.Top < o.Bottom && o.Top < s.Bottom
}

func (s Span) String() string {
	return fmt.Sprintf("[%v, %v]", s.Top, s.Bottom)
}

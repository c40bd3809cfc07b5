package seqgraph

import (
	"seqanim/lib/geo"
)

type Endpoint int

const (
	SourceEnd Endpoint = iota
	TargetEnd
)

func (e Endpoint) String() string {
	if e == SourceEnd {
		return "source"
	}
	return "target"
}

// AbsolutePosition sums the local (x, y) of c and of every ancestor below the root.
func (g *Graph) AbsolutePosition(c *Cell) *geo.Point {
	p := geo.NewPoint(0, 0)
	addLocal(p, c)
	for _, a := range g.Ancestors(c) {
		if a.ID == RootID {
			break
		}
		addLocal(p, a)
	}
	return p
}

func addLocal(p *geo.Point, c *Cell) {
	if c.Geometry == nil || c.Edge {
		return
	}
	p.X += c.Geometry.X
	p.Y += c.Geometry.Y
}

// AbsoluteBox returns the absolute bounding box of a vertex, or nil if it has no geometry.
func (g *Graph) AbsoluteBox(c *Cell) *geo.Box {
	if c.Geometry == nil {
		return nil
	}
	return geo.NewBox(g.AbsolutePosition(c), c.Geometry.Width, c.Geometry.Height)
}

// Offset is the absolute position of the container c's local coordinates are relative to.
func (g *Graph) Offset(c *Cell) *geo.Point {
	p, ok := g.ParentOf(c)
	if !ok {
		return geo.NewPoint(0, 0)
	}
	return g.AbsolutePosition(p)
}

// AbsoluteEndpoint resolves one end of an edge to absolute coordinates.
//
// The explicit sourcePoint/targetPoint is used when present, otherwise the edge's own local
// x/y. Either is translated by the edge's container offset. ok is false when the edge has
// neither.
func (g *Graph) AbsoluteEndpoint(edge *Cell, which Endpoint) (_ *geo.Point, ok bool) {
	geom := edge.Geometry
	if geom == nil {
		return nil, false
	}
	var local *geo.Point
	switch which {
	case SourceEnd:
		local = geom.SourcePoint
	case TargetEnd:
		local = geom.TargetPoint
	}
	if local == nil {
		if !geom.HasXY {
			return nil, false
		}
		local = geo.NewPoint(geom.X, geom.Y)
	}
	return local.Translate(g.Offset(edge)), true
}

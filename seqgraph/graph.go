// Package seqgraph indexes the cells of one draw.io page.
//
// Cells are stored in an arena in document order and addressed by id. Parent chains and
// layer closures are walked iteratively so malformed (cyclic) parent references terminate.
package seqgraph

import (
	"strings"

	"seqanim/lib/geo"
	"seqanim/lib/label"
)

// RootID is the id draw.io gives the invisible root cell that every layer hangs off.
const RootID = "0"

type Cell struct {
	ID     string `json:"id"`
	Value  string `json:"value,omitempty"`
	Style  string `json:"style,omitempty"`
	Parent string `json:"parent,omitempty"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`

	Vertex  bool `json:"vertex,omitempty"`
	Edge    bool `json:"edge,omitempty"`
	Visible bool `json:"visible"`

	Geometry *Geometry `json:"geometry,omitempty"`

	// Label is Value flattened to visible text.
	Label string `json:"label,omitempty"`
}

type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// HasXY is set when the document gave the geometry an explicit x or y.
	HasXY    bool `json:"hasXY,omitempty"`
	Relative bool `json:"relative,omitempty"`

	SourcePoint *geo.Point `json:"sourcePoint,omitempty"`
	TargetPoint *geo.Point `json:"targetPoint,omitempty"`
}

// HasStyle reports whether the cell's style string contains marker.
func (c *Cell) HasStyle(marker string) bool {
	return marker != "" && strings.Contains(c.Style, marker)
}

// StyleValue returns the value of key in a "k1=v1;k2=v2" style string.
func (c *Cell) StyleValue(key string) (string, bool) {
	for _, kv := range strings.Split(c.Style, ";") {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// HasSize reports whether the cell has a geometry with a positive area.
func (c *Cell) HasSize() bool {
	return c.Geometry != nil && c.Geometry.Width > 0 && c.Geometry.Height > 0
}

type Graph struct {
	Cells []*Cell

	byID     map[string]int
	children map[string][]int
}

// New indexes cells. When ids repeat, the first cell wins lookups.
func New(cells []*Cell) *Graph {
	g := &Graph{
		Cells:    cells,
		byID:     make(map[string]int, len(cells)),
		children: make(map[string][]int),
	}
	for i, c := range cells {
		if c.Label == "" && c.Value != "" {
			c.Label = label.Text(c.Value)
		}
		if _, ok := g.byID[c.ID]; !ok {
			g.byID[c.ID] = i
		}
		if c.Parent != "" && c.Parent != c.ID {
			g.children[c.Parent] = append(g.children[c.Parent], i)
		}
	}
	return g
}

func (g *Graph) Get(id string) (*Cell, bool) {
	i, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return g.Cells[i], true
}

// Children returns the direct children of id in document order.
func (g *Graph) Children(id string) []*Cell {
	idx := g.children[id]
	out := make([]*Cell, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.Cells[i])
	}
	return out
}

// ParentOf returns the parent cell of c, if it exists.
func (g *Graph) ParentOf(c *Cell) (*Cell, bool) {
	if c.Parent == "" || c.Parent == c.ID {
		return nil, false
	}
	return g.Get(c.Parent)
}

// Ancestors returns the parent chain of c from its parent up to the root. Cycles are cut at
// the first repeated cell.
func (g *Graph) Ancestors(c *Cell) []*Cell {
	var out []*Cell
	seen := map[string]struct{}{c.ID: {}}
	for {
		p, ok := g.ParentOf(c)
		if !ok {
			return out
		}
		if _, ok := seen[p.ID]; ok {
			return out
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
		c = p
	}
}

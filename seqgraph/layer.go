package seqgraph

import (
	"context"

	"cdr.dev/slog"

	"seqanim/lib/log"
)

// Layer is the subset of cells under one named draw.io layer, in document order.
type Layer struct {
	Name string
	// ID is empty when no layer with Name exists.
	ID    string
	Cells []*Cell

	members map[string]struct{}
}

func (l *Layer) Has(id string) bool {
	_, ok := l.members[id]
	return ok
}

// Vertices returns the vertex cells of the layer.
func (l *Layer) Vertices() []*Cell {
	var out []*Cell
	for _, c := range l.Cells {
		if c.Vertex {
			out = append(out, c)
		}
	}
	return out
}

// Edges returns the edge cells of the layer.
func (l *Layer) Edges() []*Cell {
	var out []*Cell
	for _, c := range l.Cells {
		if c.Edge {
			out = append(out, c)
		}
	}
	return out
}

// FindLayer returns the layer cell labeled name. Direct children of the root are preferred;
// any cell with that label is accepted otherwise.
func (g *Graph) FindLayer(name string) (*Cell, bool) {
	var fallback *Cell
	for _, c := range g.Cells {
		if c.Label != name {
			continue
		}
		if c.Parent == RootID || c.Parent == "" {
			return c, true
		}
		if fallback == nil {
			fallback = c
		}
	}
	return fallback, fallback != nil
}

// Layer returns the layer cell labeled name and the transitive closure of its descendants.
//
// Hidden cells are dropped together with their subtree. Vertices without a positive size are
// dropped but their children are still visited. A missing layer is logged and yields an empty
// layer.
func (g *Graph) Layer(ctx context.Context, name string) *Layer {
	l := &Layer{
		Name:    name,
		members: make(map[string]struct{}),
	}
	root, ok := g.FindLayer(name)
	if !ok {
		log.Warn(ctx, "diagram layer not found", slog.F("layer", name))
		return l
	}
	l.ID = root.ID

	keep := map[string]struct{}{root.ID: {}}
	visited := map[string]struct{}{root.ID: {}}
	queue := []string{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, i := range g.children[id] {
			c := g.Cells[i]
			if _, ok := visited[c.ID]; ok {
				continue
			}
			visited[c.ID] = struct{}{}
			if !c.Visible {
				continue
			}
			if !c.Vertex || c.Geometry == nil || c.HasSize() {
				keep[c.ID] = struct{}{}
			}
			queue = append(queue, c.ID)
		}
	}

	for i, c := range g.Cells {
		if _, ok := keep[c.ID]; !ok {
			continue
		}
		if g.byID[c.ID] != i {
			continue
		}
		l.Cells = append(l.Cells, c)
		l.members[c.ID] = struct{}{}
	}
	log.Debug(ctx, "selected diagram layer", slog.F("layer", name), slog.F("id", l.ID), slog.F("cells", len(l.Cells)))
	return l
}

package seqfrag

import (
	"context"

	"cdr.dev/slog"

	"seqanim/lib/log"
	"seqanim/seqgraph"
	"seqanim/seqmodel"
)

// KindOf returns the fragment kind a shape label names. The whole trimmed label must be the
// keyword, so a lifeline called "Loop Manager" is not a fragment.
func KindOf(label string) (Kind, bool) {
	return ParseKind(label)
}

// Build derives the fragment hierarchy from the shapes of the sequence layer.
//
// A fragment's operands are its direct vertex children that are not fragments themselves. A
// fragment without any gets one implicit operand sharing its id and span. Lifelines and activation
// bars, classified by markers, are never fragments whatever their label.
func Build(ctx context.Context, g *seqgraph.Graph, sqd *seqgraph.Layer, markers seqmodel.Markers) *Hierarchy {
	ctx = log.Named(ctx, "seqfrag")

	var shapes []*seqgraph.Cell
	isFragment := make(map[string]struct{})
	for _, c := range sqd.Vertices() {
		if c.HasStyle(markers.Lifeline) || c.HasStyle(markers.Activation) {
			continue
		}
		if _, ok := KindOf(c.Label); ok && c.HasSize() {
			shapes = append(shapes, c)
			isFragment[c.ID] = struct{}{}
		}
	}

	var fragments []*Fragment
	parentCell := make(map[string]string)
	for _, c := range shapes {
		kind, _ := KindOf(c.Label)
		f := &Fragment{
			ID:   c.ID,
			Kind: kind,
			Span: g.AbsoluteBox(c).VerticalSpan(),
		}
		for _, child := range g.Children(c.ID) {
			if _, ok := isFragment[child.ID]; ok || !child.Vertex || !sqd.Has(child.ID) || !child.HasSize() {
				continue
			}
			f.Operands = append(f.Operands, &ChildArea{
				ID:       child.ID,
				Span:     g.AbsoluteBox(child).VerticalSpan(),
				Messages: []string{},
			})
		}
		if len(f.Operands) == 0 {
			f.Operands = []*ChildArea{{ID: f.ID, Span: f.Span, Messages: []string{}}}
		}
		fragments = append(fragments, f)
		parentCell[f.ID] = c.Parent
	}

	h := newHierarchy(fragments)
	for i, f := range h.Fragments {
		if _, _, ok := h.Operand(parentCell[f.ID]); ok && h.operands[parentCell[f.ID]] != f {
			f.Parent = parentCell[f.ID]
			continue
		}
		f.Parent = h.enclosingOperand(i)
	}

	for _, id := range h.cycles() {
		f := h.fragments[id]
		log.Warn(ctx, "fragment parent cycle, treating fragment as top level", slog.F("fragment", id), slog.F("parent", f.Parent))
		f.Parent = ""
	}
	for _, p := range h.overlaps() {
		log.Warn(ctx, "overlapping fragment operands", slog.F("problem", p))
	}

	log.Debug(ctx, "derived fragments", slog.F("count", len(h.Fragments)))
	return h
}

// enclosingOperand returns the smallest operand of another fragment whose span contains the
// span of fragment i. Candidates are restricted to fragments that are taller, or as tall and
// earlier, so containment never forms a cycle.
func (h *Hierarchy) enclosingOperand(i int) string {
	f := h.Fragments[i]
	var best *ChildArea
	for j, other := range h.Fragments {
		if j == i {
			continue
		}
		height, otherHeight := f.Span.Height(), other.Span.Height()
		if otherHeight < height || (otherHeight == height && j > i) {
			continue
		}
		for _, o := range other.Operands {
			if !o.Span.ContainsSpan(f.Span) {
				continue
			}
			if best == nil || o.Span.Height() < best.Span.Height() {
				best = o
			}
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

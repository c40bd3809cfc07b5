package seqmodel

import (
	"context"
	"strings"

	"cdr.dev/slog"

	"seqanim/lib/geo"
	"seqanim/lib/log"
	"seqanim/seqgraph"
)

// relationPadding expands class boxes when attaching a dangling relation endpoint.
const relationPadding = 10

type ClassElement struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Members are the labeled descendants (attributes, methods) in document order.
	Members []string `json:"members"`
	Box     *geo.Box `json:"box"`
}

type Member struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	ClassID string `json:"classID"`
}

type Relation struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Style  string `json:"style,omitempty"`
}

type ClassDiagram struct {
	Classes   []*ClassElement `json:"classes"`
	Members   []*Member       `json:"members"`
	Relations []*Relation     `json:"relations"`

	classes map[string]*ClassElement
	members map[string]*Member
}

// BuildClassDiagram reads the top-level shapes of the class layer as classes and its edges as
// relations between them.
func BuildClassDiagram(ctx context.Context, g *seqgraph.Graph, cd *seqgraph.Layer) *ClassDiagram {
	d := &ClassDiagram{
		Classes:   []*ClassElement{},
		Members:   []*Member{},
		Relations: []*Relation{},
		classes:   make(map[string]*ClassElement),
		members:   make(map[string]*Member),
	}
	if cd.ID == "" {
		return d
	}

	for _, c := range cd.Vertices() {
		if c.Parent != cd.ID {
			continue
		}
		cls := &ClassElement{
			ID:      c.ID,
			Label:   strings.TrimSpace(c.Label),
			Members: []string{},
			Box:     g.AbsoluteBox(c),
		}
		d.Classes = append(d.Classes, cls)
		d.classes[cls.ID] = cls
	}

	for _, c := range cd.Vertices() {
		if _, ok := d.classes[c.ID]; ok || strings.TrimSpace(c.Label) == "" {
			continue
		}
		cls, ok := d.classOf(g, c.ID)
		if !ok {
			continue
		}
		mem := &Member{
			ID:      c.ID,
			Label:   strings.TrimSpace(c.Label),
			ClassID: cls.ID,
		}
		cls.Members = append(cls.Members, mem.ID)
		d.Members = append(d.Members, mem)
		d.members[mem.ID] = mem
	}

	for _, e := range cd.Edges() {
		src, srcOK := d.relationEnd(g, e, e.Source, seqgraph.SourceEnd)
		dst, dstOK := d.relationEnd(g, e, e.Target, seqgraph.TargetEnd)
		if !srcOK || !dstOK {
			log.Debug(ctx, "class relation with unresolved end", slog.F("relation", e.ID))
			continue
		}
		d.Relations = append(d.Relations, &Relation{
			ID:     e.ID,
			Source: src,
			Target: dst,
			Style:  e.Style,
		})
	}
	return d
}

// classOf walks from id up the parent chain to the enclosing class element.
func (d *ClassDiagram) classOf(g *seqgraph.Graph, id string) (*ClassElement, bool) {
	c, ok := g.Get(id)
	if !ok {
		return nil, false
	}
	if cls, ok := d.classes[c.ID]; ok {
		return cls, true
	}
	for _, a := range g.Ancestors(c) {
		if cls, ok := d.classes[a.ID]; ok {
			return cls, true
		}
	}
	return nil, false
}

func (d *ClassDiagram) relationEnd(g *seqgraph.Graph, e *seqgraph.Cell, ref string, which seqgraph.Endpoint) (string, bool) {
	if ref != "" {
		if cls, ok := d.classOf(g, ref); ok {
			return cls.ID, true
		}
	}
	p, ok := g.AbsoluteEndpoint(e, which)
	if !ok {
		return "", false
	}
	candidates := make([]Candidate, 0, len(d.Classes))
	for _, cls := range d.Classes {
		candidates = append(candidates, Candidate{ID: cls.ID, Box: cls.Box})
	}
	return FirstContaining(p, candidates, relationPadding)
}

func (d *ClassDiagram) Class(id string) (*ClassElement, bool) {
	cls, ok := d.classes[id]
	return cls, ok
}

func (d *ClassDiagram) Member(id string) (*Member, bool) {
	mem, ok := d.members[id]
	return mem, ok
}

// ClassByLabel returns the first class whose trimmed label equals label.
func (d *ClassDiagram) ClassByLabel(label string) (*ClassElement, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, false
	}
	for _, cls := range d.Classes {
		if cls.Label == label {
			return cls, true
		}
	}
	return nil, false
}

// Relation returns the first relation from a to b, or failing that from b to a.
func (d *ClassDiagram) Relation(a, b string) (*Relation, bool) {
	if a == "" || b == "" {
		return nil, false
	}
	for _, r := range d.Relations {
		if r.Source == a && r.Target == b {
			return r, true
		}
	}
	for _, r := range d.Relations {
		if r.Source == b && r.Target == a {
			return r, true
		}
	}
	return nil, false
}

package seqmodel

import (
	"context"
	"strings"

	"cdr.dev/slog"

	"seqanim/lib/geo"
	"seqanim/lib/log"
	"seqanim/seqgraph"
)

type Lifeline struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// ClassID is the class element the lifeline instantiates, if any.
	ClassID string `json:"classID,omitempty"`
	// Bars are the ids of the owned activation bars in document order.
	Bars []string `json:"bars"`
	Box  *geo.Box `json:"box"`
}

type ActivationBar struct {
	ID         string   `json:"id"`
	LifelineID string   `json:"lifelineID"`
	Box        *geo.Box `json:"box"`
}

func (m *Model) buildLifelines(ctx context.Context, g *seqgraph.Graph, sqd *seqgraph.Layer, markers Markers) {
	for _, c := range sqd.Vertices() {
		if !c.HasStyle(markers.Lifeline) || c.Geometry == nil {
			continue
		}
		lf := &Lifeline{
			ID:    c.ID,
			Label: strings.TrimSpace(c.Label),
			Bars:  []string{},
			Box:   g.AbsoluteBox(c),
		}
		m.Lifelines = append(m.Lifelines, lf)
		m.lifelines[lf.ID] = lf
	}

	candidates := m.lifelineCandidates()
	for _, c := range sqd.Vertices() {
		if !c.HasSize() || c.HasStyle(markers.Lifeline) {
			continue
		}
		_, ownedByParent := m.lifelines[c.Parent]
		if !ownedByParent && !c.HasStyle(markers.Activation) {
			continue
		}

		b := &ActivationBar{
			ID:  c.ID,
			Box: g.AbsoluteBox(c),
		}
		if ownedByParent {
			b.LifelineID = c.Parent
		} else {
			id, dist, ok := Nearest(b.Box.Center(), candidates)
			if !ok {
				log.Warn(ctx, "activation bar without any lifeline", slog.F("bar", c.ID))
				continue
			}
			log.Debug(ctx, "assigned activation bar to nearest lifeline",
				slog.F("bar", c.ID), slog.F("lifeline", id), slog.F("distance", dist))
			b.LifelineID = id
		}

		lf := m.lifelines[b.LifelineID]
		lf.Bars = append(lf.Bars, b.ID)
		m.Bars = append(m.Bars, b)
		m.bars[b.ID] = b
	}
}

func (m *Model) lifelineCandidates() []Candidate {
	out := make([]Candidate, 0, len(m.Lifelines))
	for _, lf := range m.Lifelines {
		out = append(out, Candidate{ID: lf.ID, Box: lf.Box})
	}
	return out
}

// barCandidates returns the bars in lifeline order, then bar order.
func (m *Model) barCandidates(lifelines []*Lifeline) []Candidate {
	var out []Candidate
	for _, lf := range lifelines {
		for _, id := range lf.Bars {
			out = append(out, Candidate{ID: id, Box: m.bars[id].Box})
		}
	}
	return out
}

func (m *Model) matchClasses(ctx context.Context) {
	for _, lf := range m.Lifelines {
		cls, ok := m.Classes.ClassByLabel(lf.Label)
		if !ok {
			if typ, isInstance := instanceType(lf.Label); isInstance {
				cls, ok = m.Classes.ClassByLabel(typ)
			}
		}
		if !ok {
			log.Debug(ctx, "lifeline has no class", slog.F("lifeline", lf.ID), slog.F("label", lf.Label))
			continue
		}
		lf.ClassID = cls.ID
	}
}

// instanceType returns Type from a UML instance label "name:Type" or ":Type".
func instanceType(label string) (string, bool) {
	_, typ, ok := strings.Cut(label, ":")
	if !ok {
		return "", false
	}
	typ = strings.TrimSpace(typ)
	return typ, typ != ""
}

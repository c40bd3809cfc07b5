// Package seqmodel recovers the semantic structure of a sequence diagram and its companion
// class diagram from raw cell geometry.
package seqmodel

import (
	"context"

	"cdr.dev/slog"

	"seqanim/lib/geo"
	"seqanim/lib/log"
	"seqanim/seqgraph"
)

// Markers are the style substrings that classify cells.
type Markers struct {
	Lifeline   string `json:"lifeline"`
	Activation string `json:"activation"`
	Dashed     string `json:"dashed"`
}

type Options struct {
	Markers Markers
	// Padding expands activation bars when testing whether they contain a message endpoint.
	Padding float64
}

const (
	DefaultLifelineMarker   = "shape=umlLifeline"
	DefaultActivationMarker = "perimeter=orthogonalPerimeter"
	DefaultDashedMarker     = "dashed=1"
	DefaultPadding          = 20
)

func DefaultOptions() Options {
	return Options{
		Markers: Markers{
			Lifeline:   DefaultLifelineMarker,
			Activation: DefaultActivationMarker,
			Dashed:     DefaultDashedMarker,
		},
		Padding: DefaultPadding,
	}
}

type Model struct {
	Lifelines []*Lifeline      `json:"lifelines"`
	Bars      []*ActivationBar `json:"bars"`
	Messages  []*Message       `json:"messages"`
	Classes   *ClassDiagram    `json:"classes"`

	// Unresolved lists the ids of edges excluded because an endpoint could not be resolved.
	Unresolved []string `json:"unresolved,omitempty"`

	lifelines map[string]*Lifeline
	bars      map[string]*ActivationBar
	messages  map[string]*Message
}

// Build resolves lifelines, activation bars and messages from the sequence layer and the
// classes of the class layer.
func Build(ctx context.Context, g *seqgraph.Graph, sqd, cd *seqgraph.Layer, opts Options) *Model {
	ctx = log.Named(ctx, "seqmodel")

	m := &Model{
		Classes:   BuildClassDiagram(ctx, g, cd),
		lifelines: make(map[string]*Lifeline),
		bars:      make(map[string]*ActivationBar),
		messages:  make(map[string]*Message),
	}
	m.buildLifelines(ctx, g, sqd, opts.Markers)
	m.matchClasses(ctx)
	m.resolveMessages(ctx, g, sqd, opts)

	log.Debug(ctx, "built model",
		slog.F("lifelines", len(m.Lifelines)),
		slog.F("bars", len(m.Bars)),
		slog.F("messages", len(m.Messages)),
		slog.F("classes", len(m.Classes.Classes)),
	)
	return m
}

func (m *Model) Lifeline(id string) (*Lifeline, bool) {
	lf, ok := m.lifelines[id]
	return lf, ok
}

func (m *Model) Bar(id string) (*ActivationBar, bool) {
	b, ok := m.bars[id]
	return b, ok
}

func (m *Model) Message(id string) (*Message, bool) {
	msg, ok := m.messages[id]
	return msg, ok
}

// LifelineOf returns the lifeline owning the activation bar barID.
func (m *Model) LifelineOf(barID string) (*Lifeline, bool) {
	b, ok := m.bars[barID]
	if !ok {
		return nil, false
	}
	return m.Lifeline(b.LifelineID)
}

// Candidate is a named box considered by Nearest.
type Candidate struct {
	ID  string
	Box *geo.Box
}

// Nearest returns the candidate whose box is closest to p. Distance is 0 inside a box. Ties
// go to the earliest candidate. ok is false when there are no candidates with a box.
func Nearest(p *geo.Point, candidates []Candidate) (id string, dist float64, ok bool) {
	for _, c := range candidates {
		if c.Box == nil {
			continue
		}
		d := c.Box.DistanceToPoint(p)
		if !ok || d < dist {
			id, dist, ok = c.ID, d, true
		}
	}
	return id, dist, ok
}

// FirstContaining returns the first candidate whose box expanded by pad contains p.
func FirstContaining(p *geo.Point, candidates []Candidate, pad float64) (string, bool) {
	for _, c := range candidates {
		if c.Box != nil && c.Box.Expand(pad).Contains(p) {
			return c.ID, true
		}
	}
	return "", false
}

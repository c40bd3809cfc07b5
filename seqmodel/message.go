package seqmodel

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"cdr.dev/slog"

	"seqanim/lib/geo"
	"seqanim/lib/log"
	"seqanim/seqgraph"
)

type Message struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Source and Target are activation bar ids.
	Source string `json:"source"`
	Target string `json:"target"`
	// Dashed messages are returns, solid ones are calls.
	Dashed bool `json:"dashed"`

	SourcePoint *geo.Point `json:"sourcePoint"`
	TargetPoint *geo.Point `json:"targetPoint"`

	// MethodID is the class member the message invokes.
	MethodID string `json:"methodID,omitempty"`

	Fragment       string `json:"fragment,omitempty"`
	Operand        string `json:"operand,omitempty"`
	FragmentParent string `json:"fragmentParent,omitempty"`
}

// Y is the vertical position of the message used for ordering and containment.
func (msg *Message) Y() float64 {
	return msg.TargetPoint.Y
}

func (msg *Message) IsCall() bool {
	return !msg.Dashed
}

func (m *Model) resolveMessages(ctx context.Context, g *seqgraph.Graph, sqd *seqgraph.Layer, opts Options) {
	for _, e := range sqd.Edges() {
		msg := &Message{
			ID:     e.ID,
			Label:  strings.TrimSpace(e.Label),
			Dashed: e.HasStyle(opts.Markers.Dashed),
		}
		var ok bool
		msg.Source, msg.SourcePoint, ok = m.resolveEnd(g, e, seqgraph.SourceEnd, opts.Padding)
		if ok {
			msg.Target, msg.TargetPoint, ok = m.resolveEnd(g, e, seqgraph.TargetEnd, opts.Padding)
		}
		if !ok {
			log.Warn(ctx, "excluding message with unresolved endpoint", slog.F("message", e.ID), slog.F("label", msg.Label))
			m.Unresolved = append(m.Unresolved, e.ID)
			continue
		}
		// Members of the target lifeline's class win over same-named members of other classes,
		// since the message invokes the receiver.
		m.matchMethod(ctx, msg)

		m.Messages = append(m.Messages, msg)
		m.messages[msg.ID] = msg
	}
}

// resolveEnd finds the activation bar and absolute point at one end of a message edge.
func (m *Model) resolveEnd(g *seqgraph.Graph, e *seqgraph.Cell, which seqgraph.Endpoint, pad float64) (string, *geo.Point, bool) {
	refID, constraintPrefix := e.Source, "exit"
	if which == seqgraph.TargetEnd {
		refID, constraintPrefix = e.Target, "entry"
	}
	ref, _ := g.Get(refID)
	var refBox *geo.Box
	if ref != nil {
		refBox = g.AbsoluteBox(ref)
	}

	p := endpointPoint(g, e, which, refBox, constraintPrefix)
	if bar, ok := m.barFor(g, ref, p); ok {
		// A terminal without any drawn point has no position to order or nest the message by.
		return bar, p, p != nil
	}
	if p == nil {
		return "", nil, false
	}

	candidates := m.barCandidates(m.Lifelines)
	if bar, ok := FirstContaining(p, candidates, pad); ok {
		return bar, p, true
	}
	if bar, _, ok := Nearest(p, candidates); ok {
		return bar, p, true
	}
	return "", nil, false
}

// endpointPoint picks, in order, the explicit point, the exit or entry constraint on the
// referenced cell and the edge's own local position. It returns nil when none is present.
func endpointPoint(g *seqgraph.Graph, e *seqgraph.Cell, which seqgraph.Endpoint, refBox *geo.Box, constraintPrefix string) *geo.Point {
	if e.Geometry != nil {
		explicit := e.Geometry.SourcePoint
		if which == seqgraph.TargetEnd {
			explicit = e.Geometry.TargetPoint
		}
		if explicit != nil {
			return explicit.Translate(g.Offset(e))
		}
	}
	if refBox != nil {
		if fx, fy, ok := constraint(e, constraintPrefix); ok {
			return refBox.RelativePoint(fx, fy)
		}
	}
	if e.Geometry != nil && e.Geometry.HasXY {
		return geo.NewPoint(e.Geometry.X, e.Geometry.Y).Translate(g.Offset(e))
	}
	return nil
}

func constraint(e *seqgraph.Cell, prefix string) (float64, float64, bool) {
	xs, ok := e.StyleValue(prefix + "X")
	if !ok {
		return 0, 0, false
	}
	ys, ok := e.StyleValue(prefix + "Y")
	if !ok {
		return 0, 0, false
	}
	fx, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, false
	}
	fy, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, false
	}
	return fx, fy, true
}

// barFor resolves an explicit edge terminal. A bar resolves to itself, a lifeline to its bar
// nearest p. Children of bars and lifelines resolve through their ancestors.
func (m *Model) barFor(g *seqgraph.Graph, ref *seqgraph.Cell, p *geo.Point) (string, bool) {
	if ref == nil {
		return "", false
	}
	chain := append([]*seqgraph.Cell{ref}, g.Ancestors(ref)...)
	for _, c := range chain {
		if _, ok := m.bars[c.ID]; ok {
			return c.ID, true
		}
		lf, ok := m.lifelines[c.ID]
		if !ok {
			continue
		}
		candidates := m.barCandidates([]*Lifeline{lf})
		if len(candidates) == 0 {
			return "", false
		}
		if p == nil {
			return candidates[0].ID, true
		}
		id, _, _ := Nearest(p, candidates)
		return id, true
	}
	return "", false
}

var (
	sequenceNumberRegex = regexp.MustCompile(`^\d+(?:\.\d+)*[.:]\s*`)
	parametersRegex     = regexp.MustCompile(`\s*\([^)]*\)`)
)

// MethodName reduces a message label to the name matched against class members.
// "2.1: pay(amount)" becomes "pay".
func MethodName(label string) string {
	s := strings.TrimSpace(label)
	s = sequenceNumberRegex.ReplaceAllString(s, "")
	if loc := parametersRegex.FindStringIndex(s); loc != nil {
		s = s[:loc[0]] + s[loc[1]:]
	}
	return strings.TrimSpace(s)
}

// matchMethod links msg to the first class member whose label contains the method name,
// searching the target lifeline's class before all members.
func (m *Model) matchMethod(ctx context.Context, msg *Message) {
	name := MethodName(msg.Label)
	if name == "" {
		return
	}

	var preferred []string
	if lf, ok := m.LifelineOf(msg.Target); ok && lf.ClassID != "" {
		if cls, ok := m.Classes.Class(lf.ClassID); ok {
			preferred = cls.Members
		}
	}
	for _, id := range preferred {
		if mem, _ := m.Classes.Member(id); strings.Contains(mem.Label, name) {
			msg.MethodID = id
			return
		}
	}
	for _, mem := range m.Classes.Members {
		if strings.Contains(mem.Label, name) {
			msg.MethodID = mem.ID
			return
		}
	}
	log.Debug(ctx, "message has no method", slog.F("message", msg.ID), slog.F("name", name))
}

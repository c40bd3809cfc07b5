// Package seqfrag models combined fragments (alt, loop, opt, par) and their operands, and
// assigns messages to the operand that contains them.
package seqfrag

import (
	"fmt"
	"sort"
	"strings"

	"seqanim/lib/geo"
	"seqanim/seqmodel"
)

type Kind string

const (
	KindAlt  Kind = "alt"
	KindLoop Kind = "loop"
	KindOpt  Kind = "opt"
	KindPar  Kind = "par"
)

// ParseKind reads a fragment kind keyword, ignoring case.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAlt, KindLoop, KindOpt, KindPar:
		return k, true
	}
	return "", false
}

// ChildArea is one operand of a fragment.
type ChildArea struct {
	ID   string   `json:"id"`
	Span geo.Span `json:"span"`
	// Messages are the ids of the messages assigned to the operand, in the order given to Assign.
	Messages []string `json:"messages"`
}

type Fragment struct {
	ID       string       `json:"id"`
	Kind     Kind         `json:"kind"`
	Span     geo.Span     `json:"span"`
	Operands []*ChildArea `json:"operands"`
	// Parent is the id of the enclosing operand. Empty for top-level fragments.
	Parent string `json:"parent,omitempty"`
}

// Scope identifies one operand of one fragment.
type Scope struct {
	Fragment string `json:"fragment"`
	Operand  string `json:"operand"`
}

func (s Scope) String() string {
	return s.Fragment + "/" + s.Operand
}

type Hierarchy struct {
	// Fragments are sorted by top ascending.
	Fragments []*Fragment `json:"fragments"`

	fragments map[string]*Fragment
	operands  map[string]*Fragment
	// explicit maps message ids to the operand a fragment document listed them under.
	explicit map[string]string
}

func newHierarchy(fragments []*Fragment) *Hierarchy {
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Span.Top < fragments[j].Span.Top
	})
	h := &Hierarchy{
		Fragments: fragments,
		fragments: make(map[string]*Fragment),
		operands:  make(map[string]*Fragment),
		explicit:  make(map[string]string),
	}
	if h.Fragments == nil {
		h.Fragments = []*Fragment{}
	}
	for _, f := range fragments {
		h.fragments[f.ID] = f
		for _, o := range f.Operands {
			h.operands[o.ID] = f
		}
	}
	return h
}

func (h *Hierarchy) Fragment(id string) (*Fragment, bool) {
	f, ok := h.fragments[id]
	return f, ok
}

// Operand returns the operand with id and the fragment owning it.
func (h *Hierarchy) Operand(id string) (*Fragment, *ChildArea, bool) {
	f, ok := h.operands[id]
	if !ok {
		return nil, nil, false
	}
	for _, o := range f.Operands {
		if o.ID == id {
			return f, o, true
		}
	}
	return nil, nil, false
}

// Chain returns the scopes from the outermost fragment down to operand. Unknown operands
// yield nil.
func (h *Hierarchy) Chain(operand string) []Scope {
	var chain []Scope
	seen := make(map[string]struct{})
	for operand != "" {
		if _, ok := seen[operand]; ok {
			break
		}
		seen[operand] = struct{}{}
		f, ok := h.operands[operand]
		if !ok {
			break
		}
		chain = append(chain, Scope{Fragment: f.ID, Operand: operand})
		operand = f.Parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// cycles returns the ids of fragments whose parent chain loops back on itself.
func (h *Hierarchy) cycles() []string {
	var out []string
	for _, f := range h.Fragments {
		seen := map[string]struct{}{f.ID: {}}
		parent := f.Parent
		for parent != "" {
			pf, ok := h.operands[parent]
			if !ok {
				break
			}
			if _, ok := seen[pf.ID]; ok {
				out = append(out, f.ID)
				break
			}
			seen[pf.ID] = struct{}{}
			parent = pf.Parent
		}
	}
	return out
}

// overlaps describes operands whose spans overlap within one fragment.
func (h *Hierarchy) overlaps() []string {
	var out []string
	for _, f := range h.Fragments {
		for i := range f.Operands {
			for j := i + 1; j < len(f.Operands); j++ {
				a, b := f.Operands[i], f.Operands[j]
				if a.Span.Overlaps(b.Span) {
					out = append(out, fmt.Sprintf("fragment %q: operands %q %v and %q %v overlap", f.ID, a.ID, a.Span, b.ID, b.Span))
				}
			}
		}
	}
	return out
}

// Assign sets the fragment fields of every message. Messages listed by a fragment document
// go to their listed operand, the rest to the smallest operand whose span contains the
// message's vertical position. Messages outside every operand keep empty fields.
func (h *Hierarchy) Assign(msgs []*seqmodel.Message) error {
	known := make(map[string]struct{}, len(msgs))
	for _, f := range h.Fragments {
		for _, o := range f.Operands {
			o.Messages = []string{}
		}
	}

	for _, msg := range msgs {
		known[msg.ID] = struct{}{}
		msg.Fragment, msg.Operand, msg.FragmentParent = "", "", ""

		f, o, ok := h.explicitOperand(msg.ID)
		if !ok {
			f, o, ok = h.containing(msg.Y())
		}
		if !ok {
			continue
		}
		msg.Fragment = f.ID
		msg.Operand = o.ID
		msg.FragmentParent = f.Parent
		o.Messages = append(o.Messages, msg.ID)
	}

	var problems []string
	for id, operand := range h.explicit {
		if _, ok := known[id]; !ok {
			problems = append(problems, fmt.Sprintf("operand %q lists unknown message %q", operand, id))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return &DocumentError{Problems: problems}
	}
	return nil
}

func (h *Hierarchy) explicitOperand(msgID string) (*Fragment, *ChildArea, bool) {
	operand, ok := h.explicit[msgID]
	if !ok {
		return nil, nil, false
	}
	return h.Operand(operand)
}

// containing returns the operand with the smallest span containing y. Ties go to the first
// in fragment order.
func (h *Hierarchy) containing(y float64) (*Fragment, *ChildArea, bool) {
	var bestF *Fragment
	var best *ChildArea
	for _, f := range h.Fragments {
		for _, o := range f.Operands {
			if !o.Span.Contains(y) {
				continue
			}
			if best == nil || o.Span.Height() < best.Span.Height() {
				bestF, best = f, o
			}
		}
	}
	return bestF, best, best != nil
}

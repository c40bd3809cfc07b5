// Package seqflow orders resolved messages into an execution flow and pairs returns with
// the calls they answer.
package seqflow

import (
	"context"
	"sort"

	"cdr.dev/slog"

	"seqanim/lib/log"
	"seqanim/seqfrag"
	"seqanim/seqmodel"
)

type Step struct {
	Message *seqmodel.Message `json:"message"`
	// Enter are the scopes opened right before the message, outermost first.
	Enter []seqfrag.Scope `json:"enter,omitempty"`
	// Exit are the scopes closed right after the message, innermost first.
	Exit []seqfrag.Scope `json:"exit,omitempty"`
}

type Flow struct {
	Steps []*Step `json:"steps"`
	// Discarded are the ids of messages in operands other than the first one taken.
	Discarded []string `json:"discarded,omitempty"`
}

// Linearize walks the messages top to bottom and keeps only the first operand reached in
// every fragment. Scopes nest like a stack: entering a message's operand closes every open
// scope that is not one of its ancestors.
func Linearize(ctx context.Context, msgs []*seqmodel.Message, h *seqfrag.Hierarchy) *Flow {
	ordered := make([]*seqmodel.Message, len(msgs))
	copy(ordered, msgs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Y() < ordered[j].Y()
	})

	l := &linearizer{
		flow:     &Flow{Steps: []*Step{}},
		selected: make(map[string]string),
		visited:  make(map[string]struct{}),
	}
	for _, msg := range ordered {
		if _, ok := l.visited[msg.ID]; ok {
			continue
		}
		l.visited[msg.ID] = struct{}{}

		var chain []seqfrag.Scope
		if msg.Operand != "" {
			chain = h.Chain(msg.Operand)
		}
		if !l.reachable(chain) {
			log.Debug(ctx, "discarding message in unselected operand", slog.F("message", msg.ID), slog.F("operand", msg.Operand))
			l.flow.Discarded = append(l.flow.Discarded, msg.ID)
			continue
		}
		l.step(msg, chain)
	}
	l.closeTo(0)
	return l.flow
}

type linearizer struct {
	flow  *Flow
	stack []seqfrag.Scope
	// selected maps a fragment to the first of its operands that was entered.
	selected map[string]string
	visited  map[string]struct{}
}

func (l *linearizer) reachable(chain []seqfrag.Scope) bool {
	for _, s := range chain {
		if op, ok := l.selected[s.Fragment]; ok && op != s.Operand {
			return false
		}
	}
	return true
}

func (l *linearizer) step(msg *seqmodel.Message, chain []seqfrag.Scope) {
	common := 0
	for common < len(l.stack) && common < len(chain) && l.stack[common] == chain[common] {
		common++
	}
	l.closeTo(common)

	s := &Step{Message: msg}
	for _, sc := range chain[common:] {
		if _, ok := l.selected[sc.Fragment]; !ok {
			l.selected[sc.Fragment] = sc.Operand
		}
		l.stack = append(l.stack, sc)
		s.Enter = append(s.Enter, sc)
	}
	l.flow.Steps = append(l.flow.Steps, s)
}

// closeTo pops scopes until n remain and records them as exits of the last step.
func (l *linearizer) closeTo(n int) {
	for len(l.stack) > n {
		top := l.stack[len(l.stack)-1]
		l.stack = l.stack[:len(l.stack)-1]
		if len(l.flow.Steps) > 0 {
			last := l.flow.Steps[len(l.flow.Steps)-1]
			last.Exit = append(last.Exit, top)
		}
	}
}

package seqflow

import (
	"fmt"

	"seqanim/seqmodel"
)

// UnmatchedReturnError is returned when a return arrow answers no open call.
type UnmatchedReturnError struct {
	Return *seqmodel.Message
}

func (e *UnmatchedReturnError) Error() string {
	return fmt.Sprintf("return arrow %q (%q) from %q to %q has no matching call above it",
		e.Return.ID, e.Return.Label, e.Return.Source, e.Return.Target)
}

// FindCall returns the call that ret answers: the call with swapped endpoints that is closest
// above ret. Ties go to the first candidate.
func FindCall(calls []*seqmodel.Message, ret *seqmodel.Message) (*seqmodel.Message, bool) {
	var best *seqmodel.Message
	for _, c := range calls {
		if c.Source != ret.Target || c.Target != ret.Source || c.Y() >= ret.Y() {
			continue
		}
		if best == nil || c.Y() > best.Y() {
			best = c
		}
	}
	return best, best != nil
}

// Matcher tracks the calls that have been made and not yet returned.
type Matcher struct {
	open []*seqmodel.Message
}

func NewMatcher() *Matcher {
	return &Matcher{}
}

func (m *Matcher) Call(msg *seqmodel.Message) {
	m.open = append(m.open, msg)
}

// Return matches ret against the open calls and closes the matched one.
func (m *Matcher) Return(ret *seqmodel.Message) (*seqmodel.Message, error) {
	call, ok := FindCall(m.open, ret)
	if !ok {
		return nil, &UnmatchedReturnError{Return: ret}
	}
	for i, c := range m.open {
		if c == call {
			m.open = append(m.open[:i], m.open[i+1:]...)
			break
		}
	}
	return call, nil
}

// Open returns the calls still waiting for a return, oldest first.
func (m *Matcher) Open() []*seqmodel.Message {
	return append([]*seqmodel.Message(nil), m.open...)
}

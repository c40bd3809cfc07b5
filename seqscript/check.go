package seqscript

import (
	"fmt"
	"strings"

	"seqanim/lib/go2"
)

// BalanceError is returned by Check for a script that hides or unlinks what it never showed
// or linked, or that ends with elements still highlighted.
type BalanceError struct {
	// Line is the 1-based instruction index, 0 for the end of the script.
	Line int
	Msg  string
}

func (e *BalanceError) Error() string {
	if e.Line == 0 {
		return "unbalanced script: " + e.Msg
	}
	return fmt.Sprintf("unbalanced script at instruction %d: %s", e.Line, e.Msg)
}

type link struct {
	from, to string
}

func (l link) String() string {
	return l.from + " " + l.to
}

// Check verifies that every highlight and link the script makes is undone by its end.
func (s *Script) Check() error {
	highlighted := go2.NewOrderedSet[string]()
	links := go2.NewOrderedSet[link]()
	for i, in := range s.Instructions {
		line := i + 1
		switch in.Op {
		case OpShow, OpAnimate, OpRoll:
			highlighted.Add(in.IDs[0])
		case OpHide:
			if !highlighted.Remove(in.IDs[0]) {
				return &BalanceError{Line: line, Msg: fmt.Sprintf("hide of %q which is not highlighted", in.IDs[0])}
			}
		case OpAdd:
			if l := (link{in.IDs[0], in.IDs[1]}); !links.Add(l) {
				return &BalanceError{Line: line, Msg: fmt.Sprintf("duplicate link %s", l)}
			}
		case OpRemove:
			if l := (link{in.IDs[0], in.IDs[1]}); !links.Remove(l) {
				return &BalanceError{Line: line, Msg: fmt.Sprintf("remove of missing link %s", l)}
			}
		}
	}
	if highlighted.Len() > 0 {
		return &BalanceError{Msg: "still highlighted at end: " + strings.Join(highlighted.Values(), ", ")}
	}
	if links.Len() > 0 {
		var out []string
		for _, l := range links.Values() {
			out = append(out, l.String())
		}
		return &BalanceError{Msg: "still linked at end: " + strings.Join(out, ", ")}
	}
	return nil
}

// Package seqscript writes and reads animation scripts: one highlight, link or wait
// instruction per line, replayed in order by a player.
package seqscript

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"oss.terrastruct.com/xdefer"
)

type Op string

const (
	// OpShow fades an element in.
	OpShow    Op = "show"
	OpAnimate Op = "animate"
	// OpRoll animates an arrow along its path.
	OpRoll   Op = "roll"
	OpHide   Op = "hide"
	OpWait   Op = "wait"
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

type Instruction struct {
	Op Op `json:"op"`
	// IDs holds one id, or two for add and remove.
	IDs    []string `json:"ids,omitempty"`
	Millis int      `json:"millis,omitempty"`
}

func (in Instruction) String() string {
	switch in.Op {
	case OpShow:
		return fmt.Sprintf("show %s fade", in.IDs[0])
	case OpWait:
		return fmt.Sprintf("wait %d", in.Millis)
	default:
		return string(in.Op) + " " + strings.Join(in.IDs, " ")
	}
}

type Script struct {
	Instructions []Instruction `json:"instructions"`
}

func (s *Script) append(op Op, ids ...string) {
	s.Instructions = append(s.Instructions, Instruction{Op: op, IDs: ids})
}

func (s *Script) wait(ms int) {
	s.Instructions = append(s.Instructions, Instruction{Op: OpWait, Millis: ms})
}

// String renders the script, every instruction terminated by a newline.
func (s *Script) String() string {
	var sb strings.Builder
	for _, in := range s.Instructions {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (s *Script) Bytes() []byte {
	return []byte(s.String())
}

// Parse reads a script. Blank lines are skipped.
func Parse(r io.Reader) (_ *Script, err error) {
	defer xdefer.Errorf(&err, "failed to parse script")

	s := &Script{Instructions: []Instruction{}}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		in, err := parseInstruction(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s.Instructions = append(s.Instructions, in)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseInstruction(fields []string) (Instruction, error) {
	op, args := Op(fields[0]), fields[1:]
	switch op {
	case OpShow:
		if len(args) != 2 || args[1] != "fade" {
			return Instruction{}, fmt.Errorf(`expected "show <id> fade"`)
		}
		return Instruction{Op: op, IDs: args[:1]}, nil
	case OpAnimate, OpRoll, OpHide:
		if len(args) != 1 {
			return Instruction{}, fmt.Errorf(`expected "%s <id>"`, op)
		}
		return Instruction{Op: op, IDs: args}, nil
	case OpAdd, OpRemove:
		if len(args) != 2 {
			return Instruction{}, fmt.Errorf(`expected "%s <id> <id>"`, op)
		}
		return Instruction{Op: op, IDs: args}, nil
	case OpWait:
		if len(args) != 1 {
			return Instruction{}, fmt.Errorf(`expected "wait <milliseconds>"`)
		}
		ms, err := strconv.Atoi(args[0])
		if err != nil || ms < 0 {
			return Instruction{}, fmt.Errorf("invalid wait duration %q", args[0])
		}
		return Instruction{Op: op, Millis: ms}, nil
	default:
		return Instruction{}, fmt.Errorf("unknown instruction %q", op)
	}
}

package seqfrag

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
	"oss.terrastruct.com/xdefer"

	"seqanim/lib/geo"
)

// DocumentError reports every problem found in a fragment document.
type DocumentError struct {
	Problems []string
}

func (e *DocumentError) Error() string {
	return "invalid fragment document: " + strings.Join(e.Problems, "; ")
}

type document struct {
	Fragments []documentFragment `yaml:"fragments"`
}

type documentFragment struct {
	ID       string            `yaml:"id"`
	Kind     string            `yaml:"kind"`
	Parent   string            `yaml:"parent"`
	Top      float64           `yaml:"top"`
	Bottom   float64           `yaml:"bottom"`
	Operands []documentOperand `yaml:"operands"`
}

type documentOperand struct {
	ID       string   `yaml:"id"`
	Top      float64  `yaml:"top"`
	Bottom   float64  `yaml:"bottom"`
	Messages []string `yaml:"messages"`
}

// Load reads a fragment document (YAML, or JSON as its subset) that replaces the fragments
// derived from the diagram.
func Load(r io.Reader) (_ *Hierarchy, err error) {
	defer xdefer.Errorf(&err, "failed to load fragment document")

	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, err
		}
	} else {
		var extra interface{}
		if err := dec.Decode(&extra); err == nil {
			return nil, errors.New("multiple YAML documents are not supported")
		} else if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed after first YAML document: %w", err)
		}
	}

	return doc.hierarchy()
}

func (doc document) hierarchy() (*Hierarchy, error) {
	var problems []string
	problemf := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	ids := make(map[string]struct{})
	useID := func(what, id string) {
		if strings.TrimSpace(id) == "" {
			problemf("%s with empty id", what)
			return
		}
		if _, ok := ids[id]; ok {
			problemf("duplicate id %q", id)
			return
		}
		ids[id] = struct{}{}
	}

	explicit := make(map[string]string)
	var fragments []*Fragment
	for i, df := range doc.Fragments {
		useID(fmt.Sprintf("fragment %d", i), df.ID)
		kind, ok := ParseKind(df.Kind)
		if !ok {
			problemf("fragment %q: unknown kind %q", df.ID, df.Kind)
		}
		if df.Bottom < df.Top {
			problemf("fragment %q: bottom %v is above top %v", df.ID, df.Bottom, df.Top)
		}
		if len(df.Operands) == 0 {
			problemf("fragment %q has no operands", df.ID)
		}

		f := &Fragment{
			ID:     df.ID,
			Kind:   kind,
			Span:   geo.NewSpan(df.Top, df.Bottom),
			Parent: df.Parent,
		}
		for j, do := range df.Operands {
			useID(fmt.Sprintf("fragment %q operand %d", df.ID, j), do.ID)
			if do.Bottom < do.Top {
				problemf("operand %q: bottom %v is above top %v", do.ID, do.Bottom, do.Top)
			}
			for _, msg := range do.Messages {
				if prev, ok := explicit[msg]; ok {
					problemf("message %q listed in operands %q and %q", msg, prev, do.ID)
					continue
				}
				explicit[msg] = do.ID
			}
			f.Operands = append(f.Operands, &ChildArea{
				ID:       do.ID,
				Span:     geo.NewSpan(do.Top, do.Bottom),
				Messages: []string{},
			})
		}
		fragments = append(fragments, f)
	}

	h := newHierarchy(fragments)
	h.explicit = explicit
	problems = append(problems, h.overlaps()...)
	for _, f := range h.Fragments {
		if f.Parent == "" {
			continue
		}
		if _, ok := h.operands[f.Parent]; !ok {
			problemf("fragment %q: parent %q is not an operand", f.ID, f.Parent)
		}
	}
	for _, id := range h.cycles() {
		problemf("fragment %q is part of a parent cycle", id)
	}

	if len(problems) > 0 {
		return nil, &DocumentError{Problems: problems}
	}
	return h, nil
}

package seqfrag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqanim/lib/geo"
	"seqanim/lib/log"
	"seqanim/seqfrag"
	"seqanim/seqgraph"
	"seqanim/seqmodel"
	"seqanim/seqxml"
)

const diagram = `<mxGraphModel><root>
<mxCell id="0"/>
<mxCell id="sqd" value="SqD" parent="0"/>
<mxCell id="alt" value="alt" style="shape=umlFrame;" vertex="1" parent="sqd">
  <mxGeometry x="10" y="100" width="300" height="300" as="geometry"/>
</mxCell>
<mxCell id="o1" value="[paid]" vertex="1" parent="alt">
  <mxGeometry x="0" y="0" width="300" height="150" as="geometry"/>
</mxCell>
<mxCell id="o2" value="[else]" vertex="1" parent="alt">
  <mxGeometry x="0" y="150" width="300" height="150" as="geometry"/>
</mxCell>
<mxCell id="opt" value="OPT" vertex="1" parent="o1">
  <mxGeometry x="10" y="40" width="200" height="80" as="geometry"/>
</mxCell>
<mxCell id="loop" value="loop" vertex="1" parent="sqd">
  <mxGeometry x="20" y="270" width="200" height="100" as="geometry"/>
</mxCell>
<mxCell id="note" value="alternatives" vertex="1" parent="sqd">
  <mxGeometry x="400" y="0" width="100" height="40" as="geometry"/>
</mxCell>
</root></mxGraphModel>`

func derive(t *testing.T) *seqfrag.Hierarchy {
	ctx := log.WithTB(context.Background(), t, nil)
	doc, err := seqxml.Parse(strings.NewReader(diagram))
	require.NoError(t, err)
	g := seqgraph.New(doc.Pages[0].Cells)
	return seqfrag.Build(ctx, g, g.Layer(ctx, "SqD"), seqmodel.DefaultOptions().Markers)
}

func msgAt(id string, y float64) *seqmodel.Message {
	return &seqmodel.Message{
		ID:          id,
		Source:      "a",
		Target:      "b",
		SourcePoint: geo.NewPoint(0, y),
		TargetPoint: geo.NewPoint(100, y),
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		label string
		kind  seqfrag.Kind
		ok    bool
	}{
		{label: "alt", kind: seqfrag.KindAlt, ok: true},
		{label: "alt [x > 0]", ok: false},
		{label: "Loop Manager", ok: false},
		{label: "  LOOP", kind: seqfrag.KindLoop, ok: true},
		{label: "Opt", kind: seqfrag.KindOpt, ok: true},
		{label: "par", kind: seqfrag.KindPar, ok: true},
		{label: "alternatives", ok: false},
		{label: "break", ok: false},
		{label: "", ok: false},
	}
	for _, tc := range testCases {
		kind, ok := seqfrag.KindOf(tc.label)
		assert.Equal(t, tc.ok, ok, tc.label)
		assert.Equal(t, tc.kind, kind, tc.label)
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	h := derive(t)
	require.Len(t, h.Fragments, 3)

	alt, opt, loop := h.Fragments[0], h.Fragments[1], h.Fragments[2]
	assert.Equal(t, "alt", alt.ID)
	assert.Equal(t, seqfrag.KindAlt, alt.Kind)
	assert.Equal(t, geo.NewSpan(100, 400), alt.Span)
	assert.Equal(t, "", alt.Parent)
	require.Len(t, alt.Operands, 2)
	assert.Equal(t, geo.NewSpan(250, 400), alt.Operands[1].Span)

	assert.Equal(t, "opt", opt.ID)
	assert.Equal(t, "o1", opt.Parent)
	require.Len(t, opt.Operands, 1)
	assert.Equal(t, "opt", opt.Operands[0].ID)
	assert.Equal(t, geo.NewSpan(140, 220), opt.Operands[0].Span)

	assert.Equal(t, "loop", loop.ID)
	assert.Equal(t, "o2", loop.Parent)

	assert.Equal(t, []seqfrag.Scope{{Fragment: "alt", Operand: "o1"}, {Fragment: "opt", Operand: "opt"}}, h.Chain("opt"))
	assert.Equal(t, []seqfrag.Scope{{Fragment: "alt", Operand: "o2"}, {Fragment: "loop", Operand: "loop"}}, h.Chain("loop"))
	assert.Nil(t, h.Chain(""))
}

func TestAssign(t *testing.T) {
	t.Parallel()

	h := derive(t)
	msgs := []*seqmodel.Message{
		msgAt("m1", 120),
		msgAt("m2", 150),
		msgAt("m3", 300),
		msgAt("m4", 500),
		msgAt("m5", 250),
	}
	require.NoError(t, h.Assign(msgs))

	exp := []struct{ fragment, operand, parent string }{
		{"alt", "o1", ""},
		{"opt", "opt", "o1"},
		{"loop", "loop", "o2"},
		{"", "", ""},
		{"alt", "o1", ""},
	}
	for i, msg := range msgs {
		assert.Equal(t, exp[i].fragment, msg.Fragment, msg.ID)
		assert.Equal(t, exp[i].operand, msg.Operand, msg.ID)
		assert.Equal(t, exp[i].parent, msg.FragmentParent, msg.ID)
	}

	_, o1, ok := h.Operand("o1")
	require.True(t, ok)
	assert.Equal(t, []string{"m1", "m5"}, o1.Messages)
}

const fragmentDoc = `
fragments:
  - id: f1
    kind: alt
    top: 100
    bottom: 400
    operands:
      - id: f1-o1
        top: 100
        bottom: 250
        messages: [m4]
      - id: f1-o2
        top: 250
        bottom: 400
  - id: f2
    kind: Loop
    parent: f1-o2
    top: 260
    bottom: 300
    operands:
      - id: f2-o1
        top: 260
        bottom: 300
`

func TestLoad(t *testing.T) {
	t.Parallel()

	h, err := seqfrag.Load(strings.NewReader(fragmentDoc))
	require.NoError(t, err)
	require.Len(t, h.Fragments, 2)
	assert.Equal(t, seqfrag.KindLoop, h.Fragments[1].Kind)

	msgs := []*seqmodel.Message{msgAt("m1", 280), msgAt("m4", 500)}
	require.NoError(t, h.Assign(msgs))
	assert.Equal(t, "f2-o1", msgs[0].Operand)
	assert.Equal(t, "f1-o2", msgs[0].FragmentParent)
	assert.Equal(t, "f1-o1", msgs[1].Operand)

	err = h.Assign(msgs[:1])
	var derr *seqfrag.DocumentError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, []string{`operand "f1-o1" lists unknown message "m4"`}, derr.Problems)
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	h, err := seqfrag.Load(strings.NewReader(`{"fragments": [{"id": "f", "kind": "opt", "top": 0, "bottom": 10, "operands": [{"id": "o", "top": 0, "bottom": 10}]}]}`))
	require.NoError(t, err)
	assert.Len(t, h.Fragments, 1)

	h, err = seqfrag.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, h.Fragments)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		in     string
		expErr string
	}{
		{
			name:   "unknown_field",
			in:     "fragments:\n  - id: f\n    colour: red\n",
			expErr: "field colour not found",
		},
		{
			name:   "multiple_documents",
			in:     "fragments: []\n---\nfragments: []\n",
			expErr: "multiple YAML documents are not supported",
		},
		{
			name: "bad_kind",
			in: `fragments:
  - {id: f, kind: break, top: 0, bottom: 10, operands: [{id: o, top: 0, bottom: 10}]}`,
			expErr: `fragment "f": unknown kind "break"`,
		},
		{
			name: "inverted",
			in: `fragments:
  - {id: f, kind: alt, top: 10, bottom: 0, operands: [{id: o, top: 10, bottom: 5}]}`,
			expErr: `fragment "f": bottom 0 is above top 10; operand "o": bottom 5 is above top 10`,
		},
		{
			name:   "no_operands",
			in:     `fragments: [{id: f, kind: opt, top: 0, bottom: 10}]`,
			expErr: `fragment "f" has no operands`,
		},
		{
			name: "duplicate_ids",
			in: `fragments:
  - {id: f, kind: opt, top: 0, bottom: 10, operands: [{id: f, top: 0, bottom: 10}]}
  - {id: "", kind: opt, top: 0, bottom: 10, operands: [{id: o, top: 0, bottom: 10}]}`,
			expErr: `duplicate id "f"; fragment 1 with empty id`,
		},
		{
			name: "overlap",
			in: `fragments:
  - {id: f, kind: alt, top: 0, bottom: 20, operands: [{id: a, top: 0, bottom: 12}, {id: b, top: 10, bottom: 20}]}`,
			expErr: `fragment "f": operands "a" [0, 12] and "b" [10, 20] overlap`,
		},
		{
			name: "message_twice",
			in: `fragments:
  - {id: f, kind: par, top: 0, bottom: 20, operands: [{id: a, top: 0, bottom: 10, messages: [m]}, {id: b, top: 10, bottom: 20, messages: [m]}]}`,
			expErr: `message "m" listed in operands "a" and "b"`,
		},
		{
			name: "unknown_parent",
			in: `fragments:
  - {id: f, kind: opt, parent: nope, top: 0, bottom: 10, operands: [{id: o, top: 0, bottom: 10}]}`,
			expErr: `fragment "f": parent "nope" is not an operand`,
		},
		{
			name: "cycle",
			in: `fragments:
  - {id: f, kind: opt, parent: go, top: 0, bottom: 10, operands: [{id: fo, top: 0, bottom: 10}]}
  - {id: g, kind: opt, parent: fo, top: 20, bottom: 30, operands: [{id: go, top: 20, bottom: 30}]}`,
			expErr: `fragment "f" is part of a parent cycle; fragment "g" is part of a parent cycle`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := seqfrag.Load(strings.NewReader(tc.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expErr)
		})
	}
}

package seqmodel_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqanim/lib/geo"
	"seqanim/lib/log"
	"seqanim/seqgraph"
	"seqanim/seqmodel"
	"seqanim/seqxml"
)

const diagram = `<mxGraphModel><root>
<mxCell id="0"/>
<mxCell id="sqd" value="SqD" parent="0"/>
<mxCell id="cd" value="CD" parent="0"/>
<mxCell id="A" value="A" style="shape=umlLifeline;" vertex="1" parent="sqd">
  <mxGeometry x="0" y="0" width="100" height="400" as="geometry"/>
</mxCell>
<mxCell id="a1" style="html=1;points=[];perimeter=orthogonalPerimeter;" vertex="1" parent="A">
  <mxGeometry x="45" y="80" width="10" height="200" as="geometry"/>
</mxCell>
<mxCell id="B" value=":B" style="shape=umlLifeline;" vertex="1" parent="sqd">
  <mxGeometry x="200" y="0" width="100" height="400" as="geometry"/>
</mxCell>
<mxCell id="b1" style="perimeter=orthogonalPerimeter;" vertex="1" parent="sqd">
  <mxGeometry x="245" y="100" width="10" height="100" as="geometry"/>
</mxCell>
<mxCell id="m1" value="1: pay(100)" style="endArrow=block;" edge="1" parent="sqd" source="a1">
  <mxGeometry relative="1" as="geometry">
    <mxPoint x="55" y="110" as="sourcePoint"/>
    <mxPoint x="245" y="110" as="targetPoint"/>
  </mxGeometry>
</mxCell>
<mxCell id="m2" value="ok" style="dashed=1;endArrow=open;" edge="1" parent="sqd" source="b1" target="A">
  <mxGeometry relative="1" as="geometry">
    <mxPoint x="245" y="180" as="sourcePoint"/>
    <mxPoint x="55" y="180" as="targetPoint"/>
  </mxGeometry>
</mxCell>
<mxCell id="m3" value="lost" edge="1" parent="sqd"/>
<mxCell id="m4" value="run()" style="exitX=0.5;exitY=0.5;entryX=0;entryY=0.3;" edge="1" parent="sqd" source="A" target="B">
  <mxGeometry relative="1" as="geometry"/>
</mxCell>
<mxCell id="cA" value="A" style="swimlane;" vertex="1" parent="cd">
  <mxGeometry x="400" y="0" width="160" height="80" as="geometry"/>
</mxCell>
<mxCell id="cA1" value="+ run(): void" vertex="1" parent="cA">
  <mxGeometry y="26" width="160" height="26" as="geometry"/>
</mxCell>
<mxCell id="cB" value="B" style="swimlane;" vertex="1" parent="cd">
  <mxGeometry x="400" y="200" width="160" height="80" as="geometry"/>
</mxCell>
<mxCell id="cB1" value="+ pay(amount: int): bool" vertex="1" parent="cB">
  <mxGeometry y="26" width="160" height="26" as="geometry"/>
</mxCell>
<mxCell id="cBsep" value="" vertex="1" parent="cB">
  <mxGeometry y="52" width="160" height="8" as="geometry"/>
</mxCell>
<mxCell id="r1" style="endArrow=block;" edge="1" parent="cd" source="cA1">
  <mxGeometry relative="1" as="geometry">
    <mxPoint x="480" y="285" as="targetPoint"/>
  </mxGeometry>
</mxCell>
<mxCell id="r2" edge="1" parent="cd" source="cB"/>
</root></mxGraphModel>`

func build(t *testing.T) *seqmodel.Model {
	ctx := log.WithTB(context.Background(), t, nil)

	doc, err := seqxml.Parse(strings.NewReader(diagram))
	require.NoError(t, err)
	g := seqgraph.New(doc.Pages[0].Cells)
	return seqmodel.Build(ctx, g, g.Layer(ctx, "SqD"), g.Layer(ctx, "CD"), seqmodel.DefaultOptions())
}

func TestLifelines(t *testing.T) {
	t.Parallel()

	m := build(t)
	require.Len(t, m.Lifelines, 2)

	a, b := m.Lifelines[0], m.Lifelines[1]
	assert.Equal(t, "cA", a.ClassID)
	assert.Equal(t, []string{"a1"}, a.Bars)
	assert.Equal(t, "cB", b.ClassID)
	assert.Equal(t, []string{"b1"}, b.Bars)

	a1, ok := m.Bar("a1")
	require.True(t, ok)
	assert.Equal(t, geo.NewBox(geo.NewPoint(45, 80), 10, 200), a1.Box)

	lf, ok := m.LifelineOf("b1")
	require.True(t, ok)
	assert.Equal(t, "B", lf.ID)
}

func TestMessages(t *testing.T) {
	t.Parallel()

	m := build(t)
	assert.Equal(t, []string{"m3"}, m.Unresolved)

	exp := []*seqmodel.Message{
		{
			ID: "m1", Label: "1: pay(100)", Source: "a1", Target: "b1",
			SourcePoint: geo.NewPoint(55, 110), TargetPoint: geo.NewPoint(245, 110),
			MethodID: "cB1",
		},
		{
			ID: "m2", Label: "ok", Source: "b1", Target: "a1", Dashed: true,
			SourcePoint: geo.NewPoint(245, 180), TargetPoint: geo.NewPoint(55, 180),
		},
		{
			ID: "m4", Label: "run()", Source: "a1", Target: "b1",
			SourcePoint: geo.NewPoint(50, 200), TargetPoint: geo.NewPoint(200, 120),
			MethodID: "cA1",
		},
	}
	if diff := cmp.Diff(exp, m.Messages); diff != "" {
		t.Fatalf("unexpected messages (-want +got):\n%s", diff)
	}
	assert.True(t, m.Messages[0].IsCall())
	assert.Equal(t, 110.0, m.Messages[0].Y())
}

func TestClassDiagram(t *testing.T) {
	t.Parallel()

	cd := build(t).Classes
	require.Len(t, cd.Classes, 2)
	assert.Equal(t, []string{"cA1"}, cd.Classes[0].Members)
	assert.Equal(t, []string{"cB1"}, cd.Classes[1].Members)

	require.Len(t, cd.Relations, 1)
	assert.Equal(t, &seqmodel.Relation{ID: "r1", Source: "cA", Target: "cB", Style: "endArrow=block;"}, cd.Relations[0])

	r, ok := cd.Relation("cB", "cA")
	require.True(t, ok)
	assert.Equal(t, "r1", r.ID)
	_, ok = cd.Relation("cA", "")
	assert.False(t, ok)

	mem, ok := cd.Member("cB1")
	require.True(t, ok)
	assert.Equal(t, "cB", mem.ClassID)
}

func TestMethodName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		label string
		exp   string
	}{
		{label: "pay(amount)", exp: "pay"},
		{label: "1: pay(amount)", exp: "pay"},
		{label: "2.1. validate (x, y) again()", exp: "validate again()"},
		{label: "  getTotal  ", exp: "getTotal"},
		{label: "3: ()", exp: ""},
		{label: "", exp: ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.exp, seqmodel.MethodName(tc.label), tc.label)
	}
}

func TestNearest(t *testing.T) {
	t.Parallel()

	candidates := []seqmodel.Candidate{
		{ID: "none"},
		{ID: "left", Box: geo.NewBox(geo.NewPoint(0, 0), 10, 10)},
		{ID: "right", Box: geo.NewBox(geo.NewPoint(30, 0), 10, 10)},
	}

	id, dist, ok := seqmodel.Nearest(geo.NewPoint(20, 5), candidates)
	assert.True(t, ok)
	assert.Equal(t, "left", id)
	assert.Equal(t, 10.0, dist)

	id, dist, ok = seqmodel.Nearest(geo.NewPoint(35, 5), candidates)
	assert.True(t, ok)
	assert.Equal(t, "right", id)
	assert.Equal(t, 0.0, dist)

	_, _, ok = seqmodel.Nearest(geo.NewPoint(0, 0), candidates[:1])
	assert.False(t, ok)

	id, ok = seqmodel.FirstContaining(geo.NewPoint(25, 5), candidates, 5)
	assert.True(t, ok)
	assert.Equal(t, "right", id)
	_, ok = seqmodel.FirstContaining(geo.NewPoint(20, 5), candidates, 5)
	assert.False(t, ok)
}

func TestMessagesWithoutPoints(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	doc, err := seqxml.Parse(strings.NewReader(`<mxGraphModel><root>
<mxCell id="0"/>
<mxCell id="sqd" value="SqD" parent="0"/>
<mxCell id="A" value="A" style="shape=umlLifeline;" vertex="1" parent="sqd">
  <mxGeometry x="0" y="0" width="100" height="400" as="geometry"/>
</mxCell>
<mxCell id="a1" style="perimeter=orthogonalPerimeter;" vertex="1" parent="A">
  <mxGeometry x="45" y="80" width="10" height="200" as="geometry"/>
</mxCell>
<mxCell id="B" value="B" style="shape=umlLifeline;" vertex="1" parent="sqd">
  <mxGeometry x="200" y="0" width="100" height="400" as="geometry"/>
</mxCell>
<mxCell id="b1" style="perimeter=orthogonalPerimeter;" vertex="1" parent="B">
  <mxGeometry x="45" y="100" width="10" height="100" as="geometry"/>
</mxCell>
<mxCell id="call" value="pay()" edge="1" parent="sqd" source="a1" target="b1">
  <mxGeometry relative="1" as="geometry"/>
</mxCell>
<mxCell id="ret" value="ok" style="dashed=1;" edge="1" parent="sqd" source="b1" target="a1">
  <mxGeometry relative="1" as="geometry"/>
</mxCell>
</root></mxGraphModel>`))
	require.NoError(t, err)
	g := seqgraph.New(doc.Pages[0].Cells)
	m := seqmodel.Build(ctx, g, g.Layer(ctx, "SqD"), g.Layer(ctx, "CD"), seqmodel.DefaultOptions())

	assert.Empty(t, m.Messages)
	assert.Equal(t, []string{"call", "ret"}, m.Unresolved)
}

func TestMethodPrefersTargetClass(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	doc, err := seqxml.Parse(strings.NewReader(`<mxGraphModel><root>
<mxCell id="0"/>
<mxCell id="sqd" value="SqD" parent="0"/>
<mxCell id="cd" value="CD" parent="0"/>
<mxCell id="A" value="A" style="shape=umlLifeline;" vertex="1" parent="sqd">
  <mxGeometry x="0" y="0" width="100" height="400" as="geometry"/>
</mxCell>
<mxCell id="a1" style="perimeter=orthogonalPerimeter;" vertex="1" parent="A">
  <mxGeometry x="45" y="80" width="10" height="200" as="geometry"/>
</mxCell>
<mxCell id="B" value="b:B" style="shape=umlLifeline;" vertex="1" parent="sqd">
  <mxGeometry x="200" y="0" width="100" height="400" as="geometry"/>
</mxCell>
<mxCell id="b1" style="perimeter=orthogonalPerimeter;" vertex="1" parent="B">
  <mxGeometry x="45" y="100" width="10" height="100" as="geometry"/>
</mxCell>
<mxCell id="toB" value="close()" edge="1" parent="sqd" source="a1" target="b1">
  <mxGeometry relative="1" as="geometry">
    <mxPoint x="55" y="110" as="sourcePoint"/>
    <mxPoint x="245" y="110" as="targetPoint"/>
  </mxGeometry>
</mxCell>
<mxCell id="toA" value="close()" edge="1" parent="sqd" source="b1" target="a1">
  <mxGeometry relative="1" as="geometry">
    <mxPoint x="245" y="150" as="sourcePoint"/>
    <mxPoint x="55" y="150" as="targetPoint"/>
  </mxGeometry>
</mxCell>
<mxCell id="cA" value="A" vertex="1" parent="cd">
  <mxGeometry x="400" y="0" width="160" height="80" as="geometry"/>
</mxCell>
<mxCell id="cA1" value="+ close(): void" vertex="1" parent="cA">
  <mxGeometry y="26" width="160" height="26" as="geometry"/>
</mxCell>
<mxCell id="cB" value="B" vertex="1" parent="cd">
  <mxGeometry x="400" y="200" width="160" height="80" as="geometry"/>
</mxCell>
<mxCell id="cB1" value="+ close(): void" vertex="1" parent="cB">
  <mxGeometry y="26" width="160" height="26" as="geometry"/>
</mxCell>
</root></mxGraphModel>`))
	require.NoError(t, err)
	g := seqgraph.New(doc.Pages[0].Cells)
	m := seqmodel.Build(ctx, g, g.Layer(ctx, "SqD"), g.Layer(ctx, "CD"), seqmodel.DefaultOptions())

	require.Len(t, m.Messages, 2)
	assert.Equal(t, "cB1", m.Messages[0].MethodID)
	assert.Equal(t, "cA1", m.Messages[1].MethodID)
}

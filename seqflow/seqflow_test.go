package seqflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqanim/lib/geo"
	"seqanim/lib/log"
	"seqanim/seqflow"
	"seqanim/seqfrag"
	"seqanim/seqmodel"
)

const fragments = `
fragments:
  - id: f1
    kind: alt
    top: 100
    bottom: 300
    operands:
      - {id: o1, top: 100, bottom: 200}
      - {id: o2, top: 200, bottom: 300}
  - id: f2
    kind: opt
    parent: o1
    top: 120
    bottom: 160
    operands:
      - {id: f2o, top: 120, bottom: 160}
  - id: f4
    kind: opt
    parent: o2
    top: 270
    bottom: 290
    operands:
      - {id: f4o, top: 270, bottom: 290}
  - id: f3
    kind: loop
    top: 400
    bottom: 500
    operands:
      - {id: f3o, top: 400, bottom: 500}
`

func msg(id, src, dst string, y float64, dashed bool) *seqmodel.Message {
	return &seqmodel.Message{
		ID:          id,
		Source:      src,
		Target:      dst,
		Dashed:      dashed,
		SourcePoint: geo.NewPoint(0, y),
		TargetPoint: geo.NewPoint(100, y),
	}
}

func TestLinearize(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	h, err := seqfrag.Load(strings.NewReader(fragments))
	require.NoError(t, err)

	// Deliberately out of vertical order.
	msgs := []*seqmodel.Message{
		msg("m7", "a", "b", 450, false),
		msg("m0", "a", "b", 50, false),
		msg("m1", "a", "b", 110, false),
		msg("m2", "a", "b", 130, false),
		msg("m3", "a", "b", 170, false),
		msg("m4", "a", "b", 250, false),
		msg("m8", "a", "b", 280, false),
		msg("m5", "a", "b", 260, false),
		msg("m6", "a", "b", 350, false),
	}
	require.NoError(t, h.Assign(msgs))

	flow := seqflow.Linearize(ctx, msgs, h)

	type step struct {
		id    string
		enter []seqfrag.Scope
		exit  []seqfrag.Scope
	}
	exp := []step{
		{id: "m0"},
		{id: "m1", enter: []seqfrag.Scope{{Fragment: "f1", Operand: "o1"}}},
		{id: "m2", enter: []seqfrag.Scope{{Fragment: "f2", Operand: "f2o"}}, exit: []seqfrag.Scope{{Fragment: "f2", Operand: "f2o"}}},
		{id: "m3", exit: []seqfrag.Scope{{Fragment: "f1", Operand: "o1"}}},
		{id: "m6"},
		{id: "m7", enter: []seqfrag.Scope{{Fragment: "f3", Operand: "f3o"}}, exit: []seqfrag.Scope{{Fragment: "f3", Operand: "f3o"}}},
	}
	require.Len(t, flow.Steps, len(exp))
	for i, s := range flow.Steps {
		assert.Equal(t, exp[i].id, s.Message.ID)
		assert.Equal(t, exp[i].enter, s.Enter, s.Message.ID)
		assert.Equal(t, exp[i].exit, s.Exit, s.Message.ID)
	}
	assert.Equal(t, []string{"m4", "m5", "m8"}, flow.Discarded)
}

func TestLinearizeNestedExit(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	h, err := seqfrag.Load(strings.NewReader(fragments))
	require.NoError(t, err)

	msgs := []*seqmodel.Message{
		msg("m1", "a", "b", 130, false),
		msg("m2", "a", "b", 350, false),
	}
	require.NoError(t, h.Assign(msgs))

	flow := seqflow.Linearize(ctx, msgs, h)
	require.Len(t, flow.Steps, 2)
	assert.Equal(t, []seqfrag.Scope{{Fragment: "f1", Operand: "o1"}, {Fragment: "f2", Operand: "f2o"}}, flow.Steps[0].Enter)
	assert.Equal(t, []seqfrag.Scope{{Fragment: "f2", Operand: "f2o"}, {Fragment: "f1", Operand: "o1"}}, flow.Steps[0].Exit)
	assert.Empty(t, flow.Steps[1].Enter)
	assert.Empty(t, flow.Steps[1].Exit)
}

func TestFindCall(t *testing.T) {
	t.Parallel()

	calls := []*seqmodel.Message{
		msg("c1", "a", "b", 100, false),
		msg("c2", "a", "b", 150, false),
		msg("c2bis", "a", "b", 150, false),
		msg("c3", "a", "c", 160, false),
		msg("c4", "a", "b", 200, false),
	}

	call, ok := seqflow.FindCall(calls, msg("r", "b", "a", 180, true))
	require.True(t, ok)
	assert.Equal(t, "c2", call.ID)

	call, ok = seqflow.FindCall(calls, msg("r", "b", "a", 150, true))
	require.True(t, ok)
	assert.Equal(t, "c1", call.ID)

	_, ok = seqflow.FindCall(calls, msg("r", "b", "a", 100, true))
	assert.False(t, ok)
	_, ok = seqflow.FindCall(calls, msg("r", "a", "b", 300, true))
	assert.False(t, ok)
}

func TestMatcher(t *testing.T) {
	t.Parallel()

	m := seqflow.NewMatcher()
	outer := msg("outer", "a", "b", 100, false)
	inner := msg("inner", "a", "b", 120, false)
	m.Call(outer)
	m.Call(inner)

	call, err := m.Return(msg("r1", "b", "a", 140, true))
	require.NoError(t, err)
	assert.Equal(t, "inner", call.ID)

	call, err = m.Return(msg("r2", "b", "a", 160, true))
	require.NoError(t, err)
	assert.Equal(t, "outer", call.ID)
	assert.Empty(t, m.Open())

	_, err = m.Return(msg("r3", "b", "a", 180, true))
	var uerr *seqflow.UnmatchedReturnError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "r3", uerr.Return.ID)
	assert.Contains(t, err.Error(), `return arrow "r3"`)
}

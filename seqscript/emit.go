package seqscript

import (
	"context"

	"cdr.dev/slog"
	"oss.terrastruct.com/xdefer"

	"seqanim/lib/go2"
	"seqanim/lib/log"
	"seqanim/seqflow"
	"seqanim/seqfrag"
	"seqanim/seqmodel"
)

const DefaultWait = 1500

type Options struct {
	// Wait is the pause in milliseconds between animation beats.
	Wait int
	// Fade highlights with "show <id> fade" instead of "animate <id>".
	Fade bool
}

func DefaultOptions() Options {
	return Options{Wait: DefaultWait}
}

// Emit turns a linearized flow into a script that highlights each message in the sequence
// diagram together with the classes, methods and relations it exercises in the class
// diagram. Everything highlighted or linked is undone by the end of the script.
func Emit(ctx context.Context, m *seqmodel.Model, flow *seqflow.Flow, opts Options) (_ *Script, err error) {
	defer xdefer.Errorf(&err, "failed to emit script")

	e := &emitter{
		ctx:         log.Named(ctx, "seqscript"),
		m:           m,
		opts:        opts,
		script:      &Script{Instructions: []Instruction{}},
		highlighted: go2.NewOrderedSet[string](),
		links:       go2.NewOrderedSet[link](),
		entered:     make(map[string]struct{}),
		matcher:     seqflow.NewMatcher(),
	}
	if len(flow.Steps) == 0 {
		return e.script, nil
	}

	frame := e.frameStart(flow.Steps[0].Message)
	for _, s := range flow.Steps {
		e.enter(s.Enter)
		if s.Message.IsCall() {
			e.call(s)
		} else if err := e.ret(s); err != nil {
			return nil, err
		}
	}
	e.frameEnd(frame)
	return e.script, nil
}

type emitter struct {
	ctx    context.Context
	m      *seqmodel.Model
	opts   Options
	script *Script

	highlighted *go2.OrderedSet[string]
	links       *go2.OrderedSet[link]
	// entered holds the fragments that have been highlighted once.
	entered map[string]struct{}
	matcher *seqflow.Matcher
}

func (e *emitter) highlight(id string) {
	if id == "" || !e.highlighted.Add(id) {
		return
	}
	if e.opts.Fade {
		e.script.append(OpShow, id)
	} else {
		e.script.append(OpAnimate, id)
	}
}

func (e *emitter) highlightArrow(id string) {
	if id == "" || !e.highlighted.Add(id) {
		return
	}
	e.script.append(OpRoll, id)
}

func (e *emitter) unhighlight(id string) {
	if id == "" || !e.highlighted.Remove(id) {
		return
	}
	e.script.append(OpHide, id)
}

func (e *emitter) link(a, b string) {
	if a == "" || b == "" || !e.links.Add(link{a, b}) {
		return
	}
	e.script.append(OpAdd, a, b)
}

func (e *emitter) unlink(a, b string) {
	if !e.links.Remove(link{a, b}) {
		return
	}
	e.script.append(OpRemove, a, b)
}

func (e *emitter) wait() {
	e.script.wait(e.opts.Wait)
}

func (e *emitter) lifelineOf(bar string) *seqmodel.Lifeline {
	lf, ok := e.m.LifelineOf(bar)
	if !ok {
		return &seqmodel.Lifeline{}
	}
	return lf
}

func (e *emitter) relation(a, b *seqmodel.Lifeline) string {
	r, ok := e.m.Classes.Relation(a.ClassID, b.ClassID)
	if !ok {
		return ""
	}
	return r.ID
}

type frame struct {
	lifeline, bar string
}

func (e *emitter) frameStart(first *seqmodel.Message) frame {
	lf := e.lifelineOf(first.Source)
	e.highlight(lf.ID)
	e.highlight(first.Source)
	e.highlight(lf.ClassID)
	e.highlight(first.MethodID)
	e.wait()
	return frame{lifeline: lf.ID, bar: first.Source}
}

// frameEnd clears the starting lifeline and then everything still highlighted or linked.
func (e *emitter) frameEnd(f frame) {
	e.unhighlight(f.lifeline)
	e.unhighlight(f.bar)
	for _, l := range e.links.Values() {
		e.unlink(l.from, l.to)
	}
	for _, id := range e.highlighted.Values() {
		e.unhighlight(id)
	}
}

func (e *emitter) enter(scopes []seqfrag.Scope) {
	for _, sc := range scopes {
		if _, ok := e.entered[sc.Fragment]; ok {
			continue
		}
		e.entered[sc.Fragment] = struct{}{}
		e.highlight(sc.Fragment)
		e.wait()
	}
}

func (e *emitter) exit(scopes []seqfrag.Scope) {
	for _, sc := range scopes {
		e.unhighlight(sc.Fragment)
	}
}

func (e *emitter) call(s *seqflow.Step) {
	msg := s.Message
	e.matcher.Call(msg)
	src, dst := e.lifelineOf(msg.Source), e.lifelineOf(msg.Target)

	e.highlightArrow(msg.ID)
	e.highlight(src.ClassID)
	e.highlight(msg.MethodID)
	e.link(msg.MethodID, msg.ID)
	e.highlightArrow(e.relation(src, dst))
	e.wait()

	e.highlight(msg.Target)
	e.highlight(dst.ID)
	e.highlight(dst.ClassID)
	e.link(dst.ClassID, dst.ID)
	e.wait()

	e.exit(s.Exit)
}

func (e *emitter) ret(s *seqflow.Step) error {
	msg := s.Message
	call, err := e.matcher.Return(msg)
	if err != nil {
		return err
	}
	log.Debug(e.ctx, "matched return", slog.F("return", msg.ID), slog.F("call", call.ID))

	e.highlightArrow(msg.ID)
	e.wait()

	e.exit(s.Exit)
	e.unhighlight(call.MethodID)
	e.unhighlight(call.ID)
	e.unlink(call.MethodID, call.ID)

	src := e.lifelineOf(msg.Source)
	e.unhighlight(msg.Source)
	if !e.anyHighlighted(src.Bars) {
		e.unhighlight(src.ID)
	}
	// A class kept lit by another member keeps its link to the lifeline as well.
	if src.ClassID != "" && !e.highlighted.Has(src.ID) {
		if cls, ok := e.m.Classes.Class(src.ClassID); ok && !e.anyHighlighted(cls.Members) {
			e.unhighlight(cls.ID)
			e.unlink(cls.ID, src.ID)
		}
	}

	e.unhighlight(msg.ID)
	e.unhighlight(e.relation(e.lifelineOf(call.Source), e.lifelineOf(call.Target)))
	e.wait()
	return nil
}

func (e *emitter) anyHighlighted(ids []string) bool {
	for _, id := range ids {
		if e.highlighted.Has(id) {
			return true
		}
	}
	return false
}

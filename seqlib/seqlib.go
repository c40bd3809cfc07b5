// Package seqlib runs the whole pipeline: diagram page in, animation script out.
package seqlib

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"

	"cdr.dev/slog"
	"golang.org/x/sync/errgroup"
	"oss.terrastruct.com/xdefer"

	"seqanim/lib/log"
	"seqanim/seqflow"
	"seqanim/seqfrag"
	"seqanim/seqgraph"
	"seqanim/seqmodel"
	"seqanim/seqscript"
	"seqanim/seqxml"
)

const (
	DefaultSequenceLayer = "SqD"
	DefaultClassLayer    = "CD"
)

type Options struct {
	SequenceLayer string
	ClassLayer    string
	Model         seqmodel.Options
	Script        seqscript.Options
	// Fragments is a fragment document that, when set, replaces the fragments derived from
	// the diagram. It is loaded anew for every page.
	Fragments []byte
}

func DefaultOptions() *Options {
	return &Options{
		SequenceLayer: DefaultSequenceLayer,
		ClassLayer:    DefaultClassLayer,
		Model:         seqmodel.DefaultOptions(),
		Script:        seqscript.DefaultOptions(),
	}
}

type Result struct {
	Page      string             `json:"page"`
	Script    *seqscript.Script  `json:"script"`
	Model     *seqmodel.Model    `json:"model"`
	Fragments *seqfrag.Hierarchy `json:"fragments"`
	Flow      *seqflow.Flow      `json:"flow"`
}

// Compile parses a draw.io document and generates the script of the page selected by ref
// (name, id or index; empty for the first page).
func Compile(ctx context.Context, r io.Reader, ref string, opts *Options) (*Result, error) {
	doc, err := seqxml.Parse(r)
	if err != nil {
		return nil, err
	}
	page, err := doc.Page(ref)
	if err != nil {
		return nil, err
	}
	return Generate(ctx, page, opts)
}

// Generate runs the pipeline on one page. No script is returned if any stage fails.
func Generate(ctx context.Context, page *seqxml.Page, opts *Options) (_ *Result, err error) {
	defer xdefer.Errorf(&err, "failed to generate %q", page.Name)
	if opts == nil {
		opts = DefaultOptions()
	}

	g := seqgraph.New(page.Cells)
	sqd := g.Layer(ctx, opts.SequenceLayer)
	cd := g.Layer(ctx, opts.ClassLayer)

	m := seqmodel.Build(ctx, g, sqd, cd, opts.Model)

	var h *seqfrag.Hierarchy
	if opts.Fragments != nil {
		h, err = seqfrag.Load(bytes.NewReader(opts.Fragments))
		if err != nil {
			return nil, err
		}
	} else {
		h = seqfrag.Build(ctx, g, sqd, opts.Model.Markers)
	}
	if err := h.Assign(m.Messages); err != nil {
		return nil, err
	}

	flow := seqflow.Linearize(ctx, m.Messages, h)
	script, err := seqscript.Emit(ctx, m, flow, opts.Script)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "generated script",
		slog.F("page", page.Name),
		slog.F("steps", len(flow.Steps)),
		slog.F("instructions", len(script.Instructions)),
	)

	return &Result{
		Page:      page.Name,
		Script:    script,
		Model:     m,
		Fragments: h,
		Flow:      flow,
	}, nil
}

// GenerateAll runs one independent pipeline per page, at most limit at a time. limit <= 0
// means GOMAXPROCS. Results are in page order.
func GenerateAll(ctx context.Context, doc *seqxml.Document, opts *Options, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	results := make([]*Result, len(doc.Pages))
	log.Info(ctx, "generating pages", slog.F("pages", len(doc.Pages)), slog.F("limit", limit))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, page := range doc.Pages {
		i, page := i, page
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Generate(ctx, page, opts)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

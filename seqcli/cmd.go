package seqcli

import (
	"bytes"
	"context"
	"fmt"
	"text/tabwriter"

	"oss.terrastruct.com/xdefer"

	"seqanim/lib/xmain"
	"seqanim/seqscript"
	"seqanim/seqxml"
)

func checkCmd(ctx context.Context, ms *xmain.State) (err error) {
	defer xdefer.Errorf(&err, "failed to check")

	args := ms.Opts.Flags.Args()[1:]
	if len(args) != 1 {
		return xmain.UsageErrorf("check must be passed exactly one script")
	}
	inputPath := args[0]

	input, err := ms.ReadPath(inputPath)
	if err != nil {
		return err
	}
	s, err := seqscript.Parse(bytes.NewReader(input))
	if err != nil {
		return err
	}
	err = s.Check()
	if err != nil {
		// 2 tells an unbalanced script apart from a file that could not be read or parsed.
		return xmain.ExitErrorf(2, "%v", err)
	}
	ms.Log.Success.Printf("%s is balanced (%d instructions)", ms.HumanPath(inputPath), len(s.Instructions))
	return nil
}

func pagesCmd(ctx context.Context, ms *xmain.State) (err error) {
	defer xdefer.Errorf(&err, "failed to list pages")

	args := ms.Opts.Flags.Args()[1:]
	if len(args) != 1 {
		return xmain.UsageErrorf("pages must be passed exactly one document")
	}

	input, err := ms.ReadPath(args[0])
	if err != nil {
		return err
	}
	doc, err := seqxml.Parse(bytes.NewReader(input))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for i, p := range doc.Pages {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d cells\n", i, p.ID, p.Name, len(p.Cells))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = ms.Stdout.Write(buf.Bytes())
	return err
}

func configCmd(ms *xmain.State, cfg Config) error {
	if len(ms.Opts.Flags.Args()) > 1 {
		return xmain.UsageErrorf("config subcommand accepts no arguments")
	}
	b, err := cfg.encode()
	if err != nil {
		return err
	}
	_, err = ms.Stdout.Write(b)
	return err
}

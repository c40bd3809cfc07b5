// Package seqcli implements the seqanim command line.
package seqcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"oss.terrastruct.com/xdefer"
	"oss.terrastruct.com/xjson"

	"seqanim/lib/go2"
	"seqanim/lib/log"
	"seqanim/lib/version"
	"seqanim/lib/xmain"
	"seqanim/seqlib"
	"seqanim/seqxml"
)

func Run(ctx context.Context, ms *xmain.State) (err error) {
	watchFlag, err := ms.Opts.Bool("SEQANIM_WATCH", "watch", "w", false, "watch for changes to input and live reload. Use $HOST and $PORT to specify the listening address.\n(default localhost:0, which will open on a randomly available local port).")
	if err != nil {
		return err
	}
	hostFlag := ms.Opts.String("HOST", "host", "h", "localhost", "host listening address when used with watch")
	portFlag := ms.Opts.String("PORT", "port", "p", "0", "port listening address when used with watch")
	browserFlag := ms.Opts.String("BROWSER", "browser", "", "", "browser executable that watch opens. Setting to 0 opens no browser.")
	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		ms.Log.Warn.Printf("Invalid DEBUG flag value ignored")
		debugFlag = go2.Pointer(false)
	}
	pageFlag := ms.Opts.String("SEQANIM_PAGE", "page", "", "", "diagram page to generate, by name, id or index. Defaults to the first page.")
	allPagesFlag, err := ms.Opts.Bool("", "all-pages", "", false, "generate one script per page. Scripts are written next to the output path with the page index appended.")
	if err != nil {
		return err
	}
	fragmentsFlag := ms.Opts.String("SEQANIM_FRAGMENTS", "fragments", "f", "", "YAML or JSON fragment document that replaces the fragments drawn in the diagram")
	configFlag := ms.Opts.String("SEQANIM_CONFIG", "config", "c", "", "TOML config file. Environment variables and flags take precedence over it.")
	sequenceLayerFlag := ms.Opts.String("SEQANIM_SEQUENCE_LAYER", "sequence-layer", "", seqlib.DefaultSequenceLayer, "label of the layer holding the sequence diagram")
	classLayerFlag := ms.Opts.String("SEQANIM_CLASS_LAYER", "class-layer", "", seqlib.DefaultClassLayer, "label of the layer holding the class diagram")
	waitFlag, err := ms.Opts.Int64("SEQANIM_WAIT", "wait", "", defaultConfig().Script.Wait, "milliseconds of each wait instruction")
	if err != nil {
		return err
	}
	fadeFlag, err := ms.Opts.Bool("SEQANIM_FADE", "fade", "", false, "highlight elements with a fade")
	if err != nil {
		return err
	}
	paddingFlag, err := ms.Opts.Float64("SEQANIM_PADDING", "padding", "", defaultConfig().Script.Padding, "pixels an arrow endpoint may lie outside an activation bar and still attach to it")
	if err != nil {
		return err
	}
	dumpModelFlag := ms.Opts.String("", "dump-model", "", "", "write the recovered model, fragments and flow as JSON to this path")
	timeoutFlag, err := ms.Opts.Int64("SEQANIM_TIMEOUT", "timeout", "", 120, "the maximum number of seconds that seqanim runs for before timing out and exiting")
	if err != nil {
		return err
	}
	versionFlag, err := ms.Opts.Bool("", "version", "v", false, "get the version")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if !errors.Is(err, pflag.ErrHelp) && err != nil {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}

	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}

	if len(ms.Opts.Flags.Args()) > 0 {
		switch ms.Opts.Flags.Arg(0) {
		case "check":
			return checkCmd(ctx, ms)
		case "pages":
			return pagesCmd(ctx, ms)
		case "version":
			if len(ms.Opts.Flags.Args()) > 1 {
				return xmain.UsageErrorf("version subcommand accepts no arguments")
			}
			fmt.Fprintln(ms.Stdout, version.Version)
			return nil
		}
	}

	if *debugFlag {
		ms.Env.Setenv("DEBUG", "1")
	}
	ctx = ms.WithSlog(ctx, *debugFlag)

	if *versionFlag {
		fmt.Fprintln(ms.Stdout, version.Version)
		return nil
	}

	cfg := defaultConfig()
	if *configFlag != "" {
		err = loadConfig(ms, *configFlag, &cfg)
		if err != nil {
			return xmain.UsageErrorf("failed to load config: %v", err)
		}
	}
	if ms.Opts.IsSet("sequence-layer") {
		cfg.Layers.Sequence = *sequenceLayerFlag
	}
	if ms.Opts.IsSet("class-layer") {
		cfg.Layers.Class = *classLayerFlag
	}
	if ms.Opts.IsSet("wait") {
		cfg.Script.Wait = *waitFlag
	}
	if ms.Opts.IsSet("fade") {
		cfg.Script.Fade = *fadeFlag
	}
	if ms.Opts.IsSet("padding") {
		cfg.Script.Padding = *paddingFlag
	}
	if err := cfg.validate(); err != nil {
		return xmain.UsageErrorf("%v", err)
	}

	if ms.Opts.Flags.Arg(0) == "config" {
		return configCmd(ms, cfg)
	}

	var inputPath string
	var outputPath string

	if len(ms.Opts.Flags.Args()) == 0 {
		help(ms)
		return nil
	} else if len(ms.Opts.Flags.Args()) >= 3 {
		return xmain.UsageErrorf("too many arguments passed")
	}

	if len(ms.Opts.Flags.Args()) >= 1 {
		inputPath = ms.Opts.Flags.Arg(0)
	}
	if len(ms.Opts.Flags.Args()) >= 2 {
		outputPath = ms.Opts.Flags.Arg(1)
	} else {
		if inputPath == "-" {
			outputPath = "-"
		} else {
			outputPath = renameExt(inputPath, ".txt")
		}
	}
	if inputPath != "-" {
		inputPath = filepath.Clean(inputPath)
	}
	if outputPath != "-" {
		outputPath = filepath.Clean(outputPath)
		if inputPath == outputPath {
			return xmain.UsageErrorf("output path %q is the same as the input path", outputPath)
		}
	}

	if *fragmentsFlag == "-" && inputPath == "-" {
		return xmain.UsageErrorf("--fragments and the diagram cannot both be read from stdin")
	}
	if *dumpModelFlag == "-" && outputPath == "-" {
		return xmain.UsageErrorf("--dump-model and the script cannot both be written to stdout")
	}
	if *allPagesFlag {
		if *pageFlag != "" {
			return xmain.UsageErrorf("--page and --all-pages cannot be used together")
		}
		if outputPath == "-" {
			return xmain.UsageErrorf("--all-pages cannot write to stdout")
		}
	}

	gen := &generator{
		ms:            ms,
		opts:          cfg.options(),
		page:          *pageFlag,
		allPages:      *allPagesFlag,
		fragmentsPath: *fragmentsFlag,
		dumpPath:      *dumpModelFlag,
		timeout:       time.Duration(*timeoutFlag) * time.Second,
	}

	if *watchFlag {
		if inputPath == "-" {
			return xmain.UsageErrorf("-w[atch] cannot be combined with reading input from stdin")
		}
		if *allPagesFlag {
			return xmain.UsageErrorf("-w[atch] cannot be combined with --all-pages")
		}
		w, err := newWatcher(ctx, ms, watcherOpts{
			gen:        gen,
			host:       *hostFlag,
			port:       *portFlag,
			inputPath:  inputPath,
			outputPath: outputPath,
			browser:    *browserFlag,
		})
		if err != nil {
			return err
		}
		return w.run()
	}

	_, err = gen.compile(ctx, inputPath, outputPath)
	if err != nil {
		return err
	}
	if outputPath != "-" {
		ms.Log.Success.Printf("successfully compiled %s to %s", ms.HumanPath(inputPath), ms.HumanPath(outputPath))
	}
	return nil
}

type generator struct {
	ms            *xmain.State
	opts          *seqlib.Options
	page          string
	allPages      bool
	fragmentsPath string
	dumpPath      string
	timeout       time.Duration
}

// compile generates the script of inputPath and writes it to outputPath. With allPages, one
// script is written per page and the returned script is the first page's.
func (g *generator) compile(ctx context.Context, inputPath, outputPath string) (_ []byte, err error) {
	defer xdefer.Errorf(&err, "failed to compile %s", g.ms.HumanPath(inputPath))

	ctx, cancel := log.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	input, err := g.ms.ReadPath(inputPath)
	if err != nil {
		return nil, err
	}

	opts := *g.opts
	if g.fragmentsPath != "" {
		opts.Fragments, err = g.ms.ReadPath(g.fragmentsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read fragment document: %w", err)
		}
	}

	doc, err := seqxml.Parse(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}

	var results []*seqlib.Result
	if g.allPages {
		results, err = seqlib.GenerateAll(ctx, doc, &opts, 0)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, errors.New("document has no pages")
		}
	} else {
		page, err := doc.Page(g.page)
		if err != nil {
			return nil, err
		}
		res, err := seqlib.Generate(ctx, page, &opts)
		if err != nil {
			return nil, err
		}
		results = []*seqlib.Result{res}
	}
	g.ms.Log.Debug.Printf("generated %d script(s) in %s", len(results), time.Since(start))

	if g.dumpPath != "" {
		var dump interface{} = results[0]
		if g.allPages {
			dump = results
		}
		err = g.ms.WritePath(g.dumpPath, xjson.Marshal(dump))
		if err != nil {
			return nil, fmt.Errorf("failed to write model dump: %w", err)
		}
	}

	if !g.allPages {
		out := results[0].Script.Bytes()
		return out, g.ms.WritePath(outputPath, out)
	}
	for i, res := range results {
		out := res.Script.Bytes()
		p := pagePath(outputPath, i)
		err = g.ms.WritePath(p, out)
		if err != nil {
			return nil, err
		}
		g.ms.Log.Info.Printf("page %d (%q): wrote %s", i, res.Page, g.ms.HumanPath(p))
	}
	return results[0].Script.Bytes(), nil
}

// pagePath returns the output path of page i: foo.txt becomes foo-i.txt.
func pagePath(outputPath string, i int) string {
	ext := filepath.Ext(outputPath)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(outputPath, ext), i, ext)
}

func renameExt(fp string, newExt string) string {
	ext := filepath.Ext(fp)
	if ext == "" {
		return fp + newExt
	} else {
		return strings.TrimSuffix(fp, ext) + newExt
	}
}

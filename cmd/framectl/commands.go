package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/chazu/frametree/pkg/config"
	"github.com/chazu/frametree/pkg/docstore"
	"github.com/chazu/frametree/pkg/engine"
	"github.com/chazu/frametree/pkg/frames"
)

// common holds the flags every subcommand accepts.
type common struct {
	configPath string
}

func newFlags(name string, c *common) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&c.configPath, "config", "frametree.yaml", "settings file")
	return fs
}

func (c *common) load() (*config.Config, error) {
	return config.Load(c.configPath)
}

func isScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".frames", ".lisp":
		return true
	}
	return false
}

// open builds a hierarchy from a script or a document file.
func open(path string, cfg *config.Config) (*frames.Hierarchy, error) {
	if !isScript(path) {
		doc, err := docstore.Load(path)
		if err != nil {
			return nil, err
		}
		return frames.FromDocument(doc, cfg.FrameOptions()...)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	eng := engine.NewEngine(
		engine.WithTimeout(cfg.Script.Timeout),
		engine.WithFrameOptions(cfg.FrameOptions()...),
	)
	h, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s", path)
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, e := range evalErrs {
			msgs[i] = fmt.Sprintf("%s: %s", path, e.Error())
		}
		return nil, errors.New(strings.Join(msgs, "\n"))
	}
	return h, nil
}

// ---------------------------------------------------------------------------
// Subcommands
// ---------------------------------------------------------------------------

func runShow(args []string, out io.Writer) error {
	var c common
	fs := newFlags("show", &c)
	demo := fs.Bool("demo", false, "show the robot arm demo")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}

	var h *frames.Hierarchy
	switch {
	case *demo:
		h = frames.New(cfg.FrameOptions()...)
		if _, err := h.AddDemo(); err != nil {
			return err
		}
	case fs.NArg() == 1:
		if h, err = open(fs.Arg(0), cfg); err != nil {
			return err
		}
	default:
		return errors.New("show: want one file or -demo")
	}
	printHierarchy(out, h)
	return nil
}

func runEval(args []string, out io.Writer) error {
	var c common
	fs := newFlags("eval", &c)
	output := fs.String("o", "", "write the document here instead of stdout (extension picks the format)")
	format := fs.String("format", "yaml", "stdout format: json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("eval: want one script")
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	h, err := open(fs.Arg(0), cfg)
	if err != nil {
		return err
	}

	doc := h.Export()
	if *output != "" {
		return docstore.Save(*output, doc)
	}
	f, err := docstore.ParseFormat(*format)
	if err != nil {
		return err
	}
	return docstore.Encode(out, doc, f)
}

func runConvert(args []string, out io.Writer) error {
	var c common
	fs := newFlags("convert", &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("convert: want an input and an output file")
	}
	in, dst := fs.Arg(0), fs.Arg(1)

	doc, err := docstore.Load(in)
	if err != nil {
		return err
	}
	// Round-trip through a hierarchy so the output is a clean, current-version
	// document even when the input used the legacy keys.
	cfg, err := c.load()
	if err != nil {
		return err
	}
	h, err := frames.FromDocument(doc, cfg.FrameOptions()...)
	if err != nil {
		return errors.Wrapf(err, "convert %s", in)
	}
	if err := docstore.Save(dst, h.Export()); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s -> %s (%d frames)\n", in, dst, h.Len())
	return nil
}

func runValidate(args []string, out io.Writer) error {
	var c common
	fs := newFlags("validate", &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("validate: want at least one file")
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range fs.Args() {
		h, err := open(path, cfg)
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		findings := frames.Validate(h)
		if frames.HasErrors(findings) {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", path)
		} else {
			fmt.Fprintf(out, "ok   %s (%d frames)\n", path, h.Len())
		}
		for _, f := range findings {
			fmt.Fprintf(out, "     %v\n", f)
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d files failed", failed, fs.NArg())
	}
	return nil
}

func runWatch(args []string, out io.Writer) error {
	var c common
	fs := newFlags("watch", &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("watch: want one document")
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return watch(ctx, fs.Arg(0), cfg, out)
}

// watch prints the document at path now and after every change until ctx is
// done.
func watch(ctx context.Context, path string, cfg *config.Config, out io.Writer) error {
	w, err := docstore.NewWatcher(path)
	if err != nil {
		return err
	}

	show := func(doc *frames.Document, err error) {
		if err == nil {
			var h *frames.Hierarchy
			if h, err = frames.FromDocument(doc, cfg.FrameOptions()...); err == nil {
				fmt.Fprintf(out, "--- %s\n", path)
				printHierarchy(out, h)
				return
			}
		}
		fmt.Fprintf(out, "--- %s: %v\n", path, err)
	}
	show(docstore.Load(path))
	return w.Run(ctx, show)
}

func runConfig(args []string, out io.Writer) error {
	var c common
	fs := newFlags("config", &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	return cfg.Write(out)
}

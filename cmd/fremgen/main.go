package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/fsnotify/fsnotify"

	"github.com/andsch11/fremgen/internal/archive"
	"github.com/andsch11/fremgen/internal/config"
	"github.com/andsch11/fremgen/internal/extractctx"
	"github.com/andsch11/fremgen/internal/frontend"
	"github.com/andsch11/fremgen/internal/harvester"
	"github.com/andsch11/fremgen/internal/rewriter"
	"github.com/andsch11/fremgen/internal/telemetry"
	"github.com/andsch11/fremgen/internal/yamlio"
)

// toolVersion is the semantic version this build reports for
// --version; it is parsed through semver.NewVersion purely to fail
// loudly if a release ever tags the binary with a malformed string.
const toolVersion = "0.4.0"

type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fremgen", flag.ContinueOnError)

	var sources, typeSources stringList
	fs.Var(&sources, "source", "RPC source file to extract (repeatable)")
	fs.Var(&typeSources, "type-source", "type-only source file to extract, RPC functions suppressed (repeatable)")
	out := fs.String("out", "", "path to write the extracted YAML document")
	headerArchive := fs.String("header-archive", "", "path to a header archive bundle")
	incremental := fs.Bool("incremental", false, "load --out first and append to it instead of overwriting")
	configPath := fs.String("config", "", "path to a TOML configuration file")
	watch := fs.Bool("watch", false, "re-run extraction whenever a source file changes")
	verbose := fs.Bool("verbose", false, "enable debug-level run logging")
	showVersion := fs.Bool("version", false, "print the tool version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s --source <files...> --out <path> [options]\n\n", fs.Name())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return -1
	}

	if *showVersion {
		v, err := semver.NewVersion(toolVersion)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fremgen: invalid build version %q: %v\n", toolVersion, err)
			return -1
		}
		fmt.Printf("fremgen %s\n", v.String())
		return 0
	}

	cfgFile, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fremgen: %v\n", err)
		return -1
	}

	sourceFlagSet := setOn(fs, "source")
	typeSourceFlagSet := setOn(fs, "type-source")
	finalSources := sources
	if !sourceFlagSet {
		finalSources = config.MergeStrings(nil, cfgFile.Source)
	}
	finalTypeSources := typeSources
	if !typeSourceFlagSet {
		finalTypeSources = config.MergeStrings(nil, cfgFile.TypeSource)
	}
	finalOut := config.MergeString(*out, cfgFile.Out)
	finalArchive := config.MergeString(*headerArchive, cfgFile.HeaderArchive)
	finalIncremental := config.MergeBool(*incremental, setOn(fs, "incremental"), cfgFile.Incremental)
	finalWatch := config.MergeBool(*watch, setOn(fs, "watch"), cfgFile.Watch)
	finalVerbose := config.MergeBool(*verbose, setOn(fs, "verbose"), cfgFile.Verbose)

	if len(finalSources) == 0 && len(finalTypeSources) == 0 {
		fmt.Fprintln(os.Stderr, "fremgen: at least one --source or --type-source is required")
		return -2
	}
	if finalOut == "" {
		fmt.Fprintln(os.Stderr, "fremgen: --out is required")
		return -2
	}

	log := telemetry.New(finalVerbose)
	defer log.Sync()

	runOnce := func() int {
		return extractOnce(log, finalSources, finalTypeSources, finalOut, finalArchive, finalIncremental)
	}

	if code := runOnce(); code != 0 || !finalWatch {
		return code
	}
	return watchAndRerun(log, append(append([]string{}, finalSources...), finalTypeSources...), runOnce)
}

// setOn reports whether name was explicitly provided on the command
// line, as opposed to merely carrying its zero-value default.
func setOn(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func extractOnce(log interface {
	Infof(string, ...any)
	Errorf(string, ...any)
	Debugf(string, ...any)
}, sources, typeSources []string, out, headerArchivePath string, incremental bool) int {
	ctx := extractctx.New()

	if headerArchivePath != "" {
		f, err := os.Open(headerArchivePath)
		if err != nil {
			log.Errorf("open header archive: %v", err)
			return -3
		}
		arc, err := archive.Read(f)
		f.Close()
		if err != nil {
			log.Errorf("read header archive: %v", err)
			return -3
		}
		log.Debugf("loaded header archive with %d directories and %d files", len(arc.Dirs), len(arc.Files))
	}

	if incremental {
		if data, err := os.ReadFile(out); err == nil {
			if err := yamlio.Load(ctx, data); err != nil {
				log.Errorf("load incremental output %q: %v", out, err)
				return -4
			}
			log.Debugf("loaded %d existing functions from %q for incremental extraction", len(ctx.Store.Functions), out)
		} else if !os.IsNotExist(err) {
			log.Errorf("read incremental output %q: %v", out, err)
			return -4
		}
	}

	for _, path := range typeSources {
		if err := extractFile(ctx, path, false); err != nil {
			log.Errorf("%s: %v", path, err)
			return -5
		}
	}
	for _, path := range sources {
		if err := extractFile(ctx, path, true); err != nil {
			log.Errorf("%s: %v", path, err)
			return -5
		}
	}

	if ctx.Diags.HasErrors() {
		for _, d := range ctx.Diags.All() {
			log.Errorf("%s", d.String())
		}
		log.Errorf("extraction failed: %s", ctx.Diags.FormatSummary())
		return -6
	}

	data, err := yamlio.Marshal(ctx)
	if err != nil {
		log.Errorf("marshal output: %v", err)
		return -7
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		log.Errorf("write output %q: %v", out, err)
		return -7
	}
	log.Infof("wrote %q: %s", out, ctx.Diags.FormatSummary())
	return 0
}

func extractFile(ctx *extractctx.Context, path string, emitRPCs bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	lx := frontend.NewLexer(path, src)
	toks, err := lx.Tokenize()
	if err != nil {
		return fmt.Errorf("tokenize: %w", err)
	}
	rewritten, sites, err := rewriter.New(ctx.Diags).Rewrite(toks)
	if err != nil {
		return fmt.Errorf("rewrite annotations: %w", err)
	}
	prog, err := frontend.ParseTokens(path, rewritten)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return harvester.Harvest(ctx, prog, sites, emitRPCs)
}

// watchAndRerun blocks, re-running run whenever one of paths changes,
// until the watcher itself fails. It returns the exit code of the last
// run that executed.
func watchAndRerun(log interface {
	Infof(string, ...any)
	Errorf(string, ...any)
}, paths []string, run func() int) int {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Errorf("create watcher: %v", err)
		return -8
	}
	defer w.Close()

	for _, p := range paths {
		if err := w.Add(p); err != nil {
			log.Errorf("watch %q: %v", p, err)
			return -8
		}
	}

	log.Infof("watching %d source files for changes", len(paths))
	lastCode := 0
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return lastCode
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Infof("%s changed, re-running extraction", ev.Name)
			lastCode = run()
		case err, ok := <-w.Errors:
			if !ok {
				return lastCode
			}
			log.Errorf("watch error: %v", err)
		}
	}
}

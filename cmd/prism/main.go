// Package main is the prism command line front end: it runs the
// indentation highlighting pipeline over a file and renders the result
// to the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/dshills/prism/internal/config"
	"github.com/dshills/prism/internal/engine"
	"github.com/dshills/prism/internal/host"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	ConfigPath string
	TabSize    int
	Language   string
	Cursor     string
	List       bool
	Watch      bool
	LogLevel   string
	Files      []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger := log.New(os.Stderr)
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q\n", opts.LogLevel)
		return 1
	}
	logger.SetLevel(level)

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.Warn("config load failed, using defaults", "path", opts.ConfigPath, "err", err)
	}

	factory := &termFactory{}
	eng := engine.New(factory,
		engine.WithSettings(settings),
		engine.WithLogger(logger),
	)
	defer eng.Dispose()

	renderAll := func() int {
		for _, path := range opts.Files {
			if err := runFile(eng, factory, path, opts); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
				return 1
			}
		}
		return 0
	}

	if code := renderAll(); code != 0 {
		return code
	}

	if opts.Watch {
		if opts.ConfigPath == "" {
			fmt.Fprintln(os.Stderr, "Error: -watch requires -config")
			return 1
		}
		watcher, err := config.NewWatcher(opts.ConfigPath, func(s config.Settings) {
			eng.ReloadConfig(s)
			logger.Info("configuration changed, re-rendering")
			renderAll()
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: watch %s: %v\n", opts.ConfigPath, err)
			return 1
		}
		defer watcher.Close()

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals
	}
	return 0
}

func runFile(eng *engine.Engine, factory *termFactory, path string, opts options) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lang := opts.Language
	if lang == "" {
		lang = languageOf(path)
	}

	buf := host.NewMemBuffer(path, lang, opts.TabSize, string(content))
	buf.SetVisibleRanges([][2]int{{0, buf.LineCount() - 1}})
	if line, col, ok := parseCursor(opts.Cursor); ok {
		buf.SetCursor(line, col)
	}

	if err := eng.RunOnce(context.Background(), buf, buf); err != nil {
		return err
	}

	if opts.List {
		listSpans(os.Stdout, factory.all())
		return nil
	}
	lines := make([]string, buf.LineCount())
	for i := range lines {
		lines[i] = buf.LineText(i)
	}
	renderFile(os.Stdout, lines, factory.all())
	return nil
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml or .yaml)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.IntVar(&opts.TabSize, "tabsize", 4, "Tab width used for indentation analysis")
	flag.IntVar(&opts.TabSize, "t", 4, "Tab width (shorthand)")
	flag.StringVar(&opts.Language, "lang", "", "Language ID (defaults to the file extension)")
	flag.StringVar(&opts.Cursor, "cursor", "", "Cursor position as line:col for active scope emphasis")
	flag.BoolVar(&opts.List, "list", false, "Print spans as text instead of rendering")
	flag.BoolVar(&opts.Watch, "watch", false, "Re-render when the config file changes")
	flag.StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Prism - rainbow indentation highlighter\n\n")
		fmt.Fprintf(os.Stderr, "Usage: prism [options] files...\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  prism main.go               Highlight a file\n")
		fmt.Fprintf(os.Stderr, "  prism -cursor 12:4 main.go  Emphasize the scope at line 12\n")
		fmt.Fprintf(os.Stderr, "  prism -list main.go         Dump spans without color\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Prism %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts.Files = flag.Args()
	if len(opts.Files) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	return opts
}

// parseCursor splits a "line:col" flag value. Both numbers are
// zero-based to match buffer coordinates.
func parseCursor(s string) (int, int, bool) {
	if s == "" {
		return 0, 0, false
	}
	part := strings.SplitN(s, ":", 2)
	line, err := strconv.Atoi(part[0])
	if err != nil || line < 0 {
		return 0, 0, false
	}
	col := 0
	if len(part) == 2 {
		if col, err = strconv.Atoi(part[1]); err != nil || col < 0 {
			return 0, 0, false
		}
	}
	return line, col, true
}

var langByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".java": "java",
	".rb":   "ruby",
	".sh":   "shellscript",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".json": "json",
}

func languageOf(path string) string {
	if lang, ok := langByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "plaintext"
}

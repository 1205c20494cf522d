// Package main is the entry point for the burrow command.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/dshills/burrow/internal/config"
	"github.com/dshills/burrow/internal/document"
	"github.com/dshills/burrow/internal/logging"
	"github.com/dshills/burrow/internal/transform"
	"github.com/dshills/burrow/internal/tunnel"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	logLevel   string
	hex        bool
	list       bool
	save       bool
	path       string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	logger := logging.New(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := tunnel.NewPool(
		tunnel.WithSessionConfig(cfg.Tunnel.Session()),
		tunnel.WithLogger(logger),
		tunnel.WithPrompter(tunnel.PrompterFunc(promptPassword)),
	)
	defer pool.Close()

	if opts.list {
		err = list(ctx, pool, opts.path, os.Stdout)
	} else {
		err = show(ctx, pool, logger, opts, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// show opens path, prints its editable text and optionally writes it back
// through the same transform.
func show(ctx context.Context, pool *tunnel.Pool, logger *slog.Logger, opts options, w io.Writer) error {
	docOpts := []document.Option{document.WithPool(pool), document.WithLogger(logger)}
	if opts.hex {
		docOpts = append(docOpts, document.WithTransform(transform.Hex))
	}

	doc, err := document.Open(ctx, opts.path, docOpts...)
	if err != nil {
		return err
	}
	defer doc.Close()

	logger.Info("opened",
		"name", doc.Name(),
		"storage", doc.Provenance().String(),
		"transform", doc.Transform().String(),
		"lines", doc.LineCount(),
	)
	if tracker := doc.Syntax(); tracker != nil {
		logger.Debug("parsed", "language", tracker.Language(), "has_error", tracker.Root().HasError())
	}

	if _, err := doc.Contents().WriteTo(w); err != nil {
		return err
	}

	if !opts.save {
		return nil
	}
	if doc.Provenance().Kind == document.NewFile {
		return fmt.Errorf("%s: %w", opts.path, os.ErrNotExist)
	}
	return doc.Write(ctx)
}

// list prints the directory listing for a local or remote path.
func list(ctx context.Context, pool *tunnel.Pool, path string, w io.Writer) error {
	chain, dir, ok := pool.SplitPath(path)
	if !ok {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(w, e.Name())
		}
		return nil
	}

	s, err := pool.ConnectTo(ctx, chain)
	if err != nil {
		return err
	}
	lines, err := s.ListFiles(ctx, dir)
	pool.Release(s, err)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "Path to configuration file")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVarP(&opts.hex, "hex", "x", false, "Open the file as a hex dump")
	flag.BoolVarP(&opts.list, "ls", "l", false, "List a directory instead of opening a file")
	flag.BoolVarP(&opts.save, "save", "s", false, "Write the file back after reading it")
	flag.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	flag.BoolVarP(&showHelp, "help", "h", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "burrow - open local and remote files through shell tunnels\n\n")
		fmt.Fprintf(os.Stderr, "Usage: burrow [options] <path>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  burrow notes.txt                              Print a local file\n")
		fmt.Fprintf(os.Stderr, "  burrow -x image.png                           Print a file as hex\n")
		fmt.Fprintf(os.Stderr, "  burrow 'ssh:host:2222|sudo:askpw:/etc/hosts'  Print a remote file\n")
		fmt.Fprintf(os.Stderr, "  burrow -l 'docker:web-1:/srv'                 List a container directory\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("burrow %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.path = flag.Arg(0)

	return opts
}

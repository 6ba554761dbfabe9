// Command tarview lists and extracts entries of tar archives held in local
// files, behind HTTP URLs, or in OCI registries.
//
// Usage:
//
//	tarview [flags] <command> <archive> [args]
//
// Commands:
//
//	ls       list entries (-l for kind and size)
//	cat      write one entry to stdout
//	extract  write entries below a directory
//	records  split a length-prefixed log entry into records
//	url      print an entry as a data URL
//	digest   print the archive digest
//
// The archive is a path, an http(s):// URL, or oci://<registry>/<repo>:<tag>
// (or @<digest>).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/meigma/tarview"
	"github.com/meigma/tarview/cache/disk"
	tarhttp "github.com/meigma/tarview/http"
	"github.com/meigma/tarview/registry"
)

type config struct {
	verbose      bool
	noDecompress bool
	maxSize      int64
	cacheDir     string
	plainHTTP    bool
	anonymous    bool
	headers      headerFlags
}

// headerFlags collects repeated -H "Key: Value" flags.
type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ", ") }

func (h *headerFlags) Set(v string) error {
	if !strings.Contains(v, ":") {
		return fmt.Errorf("header %q: want \"Key: Value\"", v)
	}
	*h = append(*h, v)
	return nil
}

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tarview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(fs, stderr) }

	var cfg config
	fs.BoolVar(&cfg.verbose, "v", false, "enable debug logging")
	fs.BoolVar(&cfg.noDecompress, "no-decompress", false, "do not unwrap gzip or zstd archives")
	fs.Int64Var(&cfg.maxSize, "max-size", tarview.DefaultMaxSize, "maximum archive size in bytes (0 = unlimited)")
	fs.StringVar(&cfg.cacheDir, "cache-dir", "", "cache registry blobs in this directory")
	fs.BoolVar(&cfg.plainHTTP, "plain-http", false, "use plain HTTP for registries")
	fs.BoolVar(&cfg.anonymous, "anonymous", false, "skip registry credentials")
	fs.Var(&cfg.headers, "H", "extra HTTP header \"Key: Value\" (repeatable)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	rest := fs.Args()
	if len(rest) < 2 {
		usage(fs, stderr)
		return 2
	}
	cmd, target, cmdArgs := rest[0], rest[1], rest[2:]

	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(stderr, "tarview: unknown command %q\n", cmd)
		usage(fs, stderr)
		return 2
	}

	src, err := openSource(ctx, target, &cfg, logger)
	if err != nil {
		logger.Error("open archive", "archive", target, "error", err)
		return 1
	}
	archive := tarview.New(src,
		tarview.WithLogger(logger),
		tarview.WithDecompression(!cfg.noDecompress),
		tarview.WithMaxSize(cfg.maxSize),
	)

	if err := handler(ctx, archive, cmdArgs, stdout, stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "tarview %s: %v\n", cmd, err)
			return 2
		}
		logger.Error(cmd, "archive", target, "error", err)
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "usage: tarview [flags] <ls|cat|extract|records|url|digest> <archive> [args]")
	fs.PrintDefaults()
}

// openSource picks a source by the archive argument's scheme.
func openSource(ctx context.Context, target string, cfg *config, logger *slog.Logger) (tarview.Source, error) {
	switch {
	case strings.HasPrefix(target, "oci://"):
		opts := []registry.Option{
			registry.WithLogger(logger),
			registry.WithPlainHTTP(cfg.plainHTTP),
			registry.WithMaxBytes(cfg.maxSize),
		}
		if cfg.anonymous {
			opts = append(opts, registry.WithAnonymous())
		} else {
			opts = append(opts, registry.WithDockerConfig())
		}
		if cfg.cacheDir != "" {
			blobCache, err := disk.New(cfg.cacheDir, disk.WithLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("open cache: %w", err)
			}
			opts = append(opts, registry.WithCache(blobCache))
		}
		return registry.New(opts...).Open(ctx, strings.TrimPrefix(target, "oci://"))

	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		opts := []tarhttp.Option{tarhttp.WithMaxBytes(cfg.maxSize)}
		for _, h := range cfg.headers {
			key, value, _ := strings.Cut(h, ":")
			opts = append(opts, tarhttp.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
		}
		return tarhttp.NewSource(target, opts...), nil

	default:
		return tarview.NewFileSource(target), nil
	}
}

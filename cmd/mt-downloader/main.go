package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/z3nitsu/mt-downloader/internal/config"
	"github.com/z3nitsu/mt-downloader/internal/downloader"
	"github.com/z3nitsu/mt-downloader/internal/progress"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitDownloadFailed   = 1
	ExitInvalidArgs      = 2
	ExitDestinationError = 3
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("mt-downloader", flag.ContinueOnError)

	out := fs.String("out", "", "Destination directory or bucket URL (default .)")
	concurrency := fs.Int("concurrency", 0, "Max concurrent downloads")
	retries := fs.Int("retries", 0, "Attempts per file")
	backoff := fs.Duration("backoff", 0, "Base backoff between attempts")
	maxBackoff := fs.Duration("max-backoff", 0, "Backoff ceiling (0 = uncapped)")
	overwrite := fs.Bool("overwrite", false, "Overwrite existing files instead of adding (1), (2), ...")
	buffer := fs.String("buffer", "", "Copy buffer size, e.g. 64KB")
	configPath := fs.String("config", "", "YAML config file")
	quiet := fs.Bool("quiet", false, "Disable the progress display")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: mt-downloader [options] URL...

Download each URL into the destination, bounding concurrency and
retrying transient failures with exponential backoff. Name collisions
resolve to "name (1).ext", "name (2).ext", ... unless -overwrite is set.

The destination may be a local directory or a bucket URL (s3://, gs://).

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	urls := fs.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no URLs provided")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			log.Error().Err(err).Msg("load config")
			return ExitInvalidArgs
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Error().Err(err).Msg("load config from environment")
		return ExitInvalidArgs
	}

	override := config.Config{
		Output:      *out,
		Concurrency: *concurrency,
		Overwrite:   *overwrite,
		Retry: config.RetryConfig{
			Attempts:   *retries,
			Backoff:    *backoff,
			MaxBackoff: *maxBackoff,
		},
	}
	if *buffer != "" {
		size, err := progress.ParseBytes(*buffer)
		if err != nil {
			log.Error().Err(err).Msg("parse -buffer")
			return ExitInvalidArgs
		}
		override.BufferSize = size
	}
	cfg = cfg.Merge(override)
	if *quiet {
		cfg.Progress = false
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[mtdl] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	bucket, err := openDestination(ctx, cfg.Output)
	if err != nil {
		log.Error().Str("output", cfg.Output).Err(err).Msg("open destination")
		return ExitDestinationError
	}
	defer bucket.Close()

	var reporter *progress.Reporter
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			TotalFiles:  len(urls),
			Concurrency: cfg.Concurrency,
		})
		reporter.Start()
	}

	requests := make([]downloader.Request, 0, len(urls))
	for _, raw := range urls {
		requests = append(requests, downloader.NewRequest(raw))
	}

	outcomes := downloader.RunAll(ctx, bucket, requests, downloader.Options{
		Concurrency:     cfg.Concurrency,
		Overwrite:       cfg.Overwrite,
		BufferSize:      cfg.BufferSize,
		RetryAttempts:   cfg.Retry.Attempts,
		RetryBackoff:    cfg.Retry.Backoff,
		RetryMaxBackoff: cfg.Retry.MaxBackoff,
		Progress:        reporter,
	})

	reporter.Stop()

	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", o.Request.RawURL, o.Err)
		} else {
			fmt.Printf("saved -> %s\n", displayPath(cfg.Output, o.Key))
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "[mtdl] %d of %d downloads failed\n", failed, len(outcomes))
		return ExitDownloadFailed
	}
	return ExitSuccess
}

// openDestination opens the output as a blob bucket. Plain paths become
// fileblob directories, created if missing; anything with a scheme goes
// through the gocloud URL opener.
func openDestination(ctx context.Context, output string) (*blob.Bucket, error) {
	if strings.Contains(output, "://") {
		return blob.OpenBucket(ctx, output)
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", output, err)
	}
	return fileblob.OpenBucket(output, &fileblob.Options{
		Metadata: fileblob.MetadataDontWrite,
	})
}

// displayPath renders a saved key for the outcome report.
func displayPath(output, key string) string {
	if strings.Contains(output, "://") {
		return strings.TrimSuffix(output, "/") + "/" + key
	}
	return filepath.Join(output, key)
}

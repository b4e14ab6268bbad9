package downloader

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gocloud.dev/blob"

	mtdlhttp "github.com/z3nitsu/mt-downloader/internal/http"
	"github.com/z3nitsu/mt-downloader/internal/progress"
)

// Options configures a download run.
type Options struct {
	// Concurrency is the maximum number of transfers in flight at once.
	Concurrency int

	// Overwrite replaces existing files instead of renaming to
	// "name (1)", "name (2)", ...
	Overwrite bool

	// BufferSize is the copy buffer size for streaming bodies.
	BufferSize int64

	// RetryAttempts is the number of attempts per file (at least 1).
	RetryAttempts int

	// RetryBackoff is the base delay between attempts; attempt n waits
	// RetryBackoff << (n-1).
	RetryBackoff time.Duration

	// RetryMaxBackoff caps the delay between attempts. Zero means uncapped.
	RetryMaxBackoff time.Duration

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	// HTTPOptions configures the HTTP client.
	HTTPOptions mtdlhttp.Options
}

// Request is one URL queued for download.
type Request struct {
	ID     uuid.UUID
	RawURL string
}

// NewRequest creates a request with a fresh ID.
func NewRequest(rawURL string) Request {
	return Request{ID: uuid.New(), RawURL: rawURL}
}

// Outcome is the final result recorded for one request. Exactly one
// outcome is produced per request.
type Outcome struct {
	Request Request

	// Key is the destination key the file was saved under; empty on failure.
	Key string

	// Err is nil on success. On failure it is a *Error whose Kind
	// explains what went wrong.
	Err error
}

// Failed reports whether the request ended in failure.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// RunAll downloads every request into bucket, running at most
// opts.Concurrency transfers at a time. It returns one outcome per
// request, in completion order. One request's failure never cancels or
// delays the others; RunAll waits for every request to finish.
func RunAll(ctx context.Context, bucket *blob.Bucket, requests []Request, opts Options) []Outcome {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64 * 1024
	}
	if opts.HTTPOptions.MaxIdleConnsPerHost == 0 {
		opts.HTTPOptions = mtdlhttp.DefaultOptions()
	}

	client := mtdlhttp.NewClient(opts.HTTPOptions)
	resolver := NewResolver(bucket)

	// Counting semaphore: one slot per permitted in-flight transfer,
	// acquired before the task starts and released on every exit path.
	semaphore := make(chan struct{}, opts.Concurrency)
	results := make(chan Outcome, len(requests))
	var wg sync.WaitGroup

	for _, req := range requests {
		semaphore <- struct{}{} // blocks while the gate is full
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			defer func() { <-semaphore }()

			key, err := download(ctx, client, resolver, bucket, req, opts)
			if err != nil {
				log.Error().
					Stringer("req_id", req.ID).
					Str("url", req.RawURL).
					Err(err).
					Msg("download failed")
			} else {
				log.Info().
					Stringer("req_id", req.ID).
					Str("url", req.RawURL).
					Str("key", key).
					Msg("download complete")
			}
			results <- Outcome{Request: req, Key: key, Err: err}
		}(req)
	}

	wg.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(requests))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// download resolves the destination key once, then runs the transfer
// under the retry policy. Retries reuse the resolved key.
func download(ctx context.Context, client *mtdlhttp.Client, resolver *Resolver, bucket *blob.Bucket, req Request, opts Options) (string, error) {
	u, err := url.Parse(req.RawURL)
	if err != nil {
		return "", &Error{Kind: KindInvalidSource, URL: req.RawURL, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &Error{Kind: KindInvalidSource, URL: req.RawURL, Err: errors.New("missing scheme or host")}
	}

	key, err := resolver.Resolve(ctx, FilenameFromURL(u), opts.Overwrite)
	if err != nil {
		return "", err
	}

	retrier := Retrier{
		Attempts:   opts.RetryAttempts,
		Backoff:    opts.RetryBackoff,
		MaxBackoff: opts.RetryMaxBackoff,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			log.Warn().
				Stringer("req_id", req.ID).
				Str("url", req.RawURL).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("attempt failed, backing off")
		},
	}

	err = retrier.Run(ctx, func(attempt int) error {
		return transferOnce(ctx, client, bucket, req.RawURL, key, opts.BufferSize, opts.Progress)
	})
	if err != nil {
		return "", &Error{Kind: KindExhausted, URL: req.RawURL, Err: err}
	}
	return key, nil
}

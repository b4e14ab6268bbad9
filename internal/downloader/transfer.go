package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gocloud.dev/blob"

	mtdlhttp "github.com/z3nitsu/mt-downloader/internal/http"
	"github.com/z3nitsu/mt-downloader/internal/progress"
)

// transferOnce performs a single download attempt: one GET, streamed
// through buf-sized chunks into a bucket writer. Each chunk's length is
// reported to the progress reporter as it is written; the body is never
// buffered whole.
//
// The writer only commits on a clean Close, so a failed attempt leaves
// no partial object and a successful retry replaces whatever a previous
// run left behind.
func transferOnce(ctx context.Context, client *mtdlhttp.Client, bucket *blob.Bucket, rawURL, key string, bufSize int64, reporter *progress.Reporter) error {
	resp, err := client.Get(ctx, rawURL)
	if err != nil {
		return &Error{Kind: classifyGetError(err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	tracker := reporter.Transfer(resp.ContentLength)

	// Cancelling wctx before Close aborts the write instead of
	// committing a truncated object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := bucket.NewWriter(wctx, key, nil)
	if err != nil {
		tracker.Fail()
		return &Error{Kind: KindIO, URL: rawURL, Err: fmt.Errorf("create %s: %w", key, err)}
	}

	buf := make([]byte, bufSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				cancel()
				w.Close()
				tracker.Fail()
				return &Error{Kind: KindIO, URL: rawURL, Err: fmt.Errorf("write %s: %w", key, writeErr)}
			}
			tracker.Add(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			cancel()
			w.Close()
			tracker.Fail()
			return &Error{Kind: KindNetwork, URL: rawURL, Err: fmt.Errorf("read body: %w", readErr)}
		}
	}

	if err := w.Close(); err != nil {
		tracker.Fail()
		return &Error{Kind: KindIO, URL: rawURL, Err: fmt.Errorf("commit %s: %w", key, err)}
	}

	tracker.Done()
	return nil
}

// classifyGetError maps client errors to a failure kind: status-shaped
// errors are bad status, everything else is transport.
func classifyGetError(err error) Kind {
	var statusErr *mtdlhttp.StatusError
	switch {
	case errors.As(err, &statusErr),
		errors.Is(err, mtdlhttp.ErrNotFound),
		errors.Is(err, mtdlhttp.ErrForbidden),
		errors.Is(err, mtdlhttp.ErrUnauthorized):
		return KindBadStatus
	default:
		return KindNetwork
	}
}

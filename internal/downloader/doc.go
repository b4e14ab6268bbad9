// Package downloader orchestrates parallel HTTP downloads into a bucket.
//
// This package coordinates the HTTP client, the destination resolver,
// and the retry policy. Each URL becomes one request with exactly one
// outcome; a channel-based counting semaphore bounds how many transfers
// run at once, and one request's failure never affects its siblings.
//
// # Usage
//
// The main entry point is the RunAll function:
//
//	outcomes := downloader.RunAll(ctx, bucket, requests, downloader.Options{
//	    Concurrency:   4,
//	    RetryAttempts: 3,
//	    RetryBackoff:  500 * time.Millisecond,
//	})
//
// # Retry
//
// Each request resolves its destination key once, before the first
// attempt. Failed attempts back off exponentially (base << n, optionally
// capped) and retry against the same key; the writer commits on close,
// so a retried attempt replaces nothing half-written.
//
// # Failure isolation
//
// Errors are captured per request and returned as that request's
// outcome. Only the surrounding process decides what a failed request
// means; RunAll itself always waits for every request and never returns
// an error of its own.
package downloader

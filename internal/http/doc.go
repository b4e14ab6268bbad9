// Package http provides the HTTP client used for file downloads.
//
// This package handles:
//   - Connection pooling across parallel downloads
//   - Streaming GET requests (the body is never buffered)
//   - Mapping non-success status codes to typed errors
//
// It deliberately does not retry: the retry controller in
// internal/downloader wraps each Get so attempt counts and backoff
// delays stay under one roof.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	resp, err := client.Get(ctx, url)
//	if err != nil { ... }
//	defer resp.Body.Close()
//	// stream resp.Body, resp.ContentLength may be -1
package http

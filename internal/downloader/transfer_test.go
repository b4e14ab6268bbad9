package downloader

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	_ "gocloud.dev/blob/memblob"

	mtdlhttp "github.com/z3nitsu/mt-downloader/internal/http"
	"github.com/z3nitsu/mt-downloader/internal/progress"
)

func testClient() *mtdlhttp.Client {
	return mtdlhttp.NewClient(mtdlhttp.DefaultOptions())
}

func TestTransferStreams(t *testing.T) {
	data := make([]byte, 256*1024)
	for i := range data {
		data[i] = byte(i % 256)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	defer server.Close()

	ctx := context.Background()
	bucket := openTestBucket(t)
	reporter := progress.NewReporter(progress.Options{Output: io.Discard})

	// Small buffer forces many chunks through the copy loop.
	err := transferOnce(ctx, testClient(), bucket, server.URL, "out.bin", 4096, reporter)
	if err != nil {
		t.Fatalf("transferOnce: %v", err)
	}

	got, err := bucket.ReadAll(ctx, "out.bin")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("content mismatch: got %d bytes, want %d", len(got), len(data))
	}

	stats := reporter.Stats()
	if stats.Bytes != int64(len(data)) {
		t.Errorf("expected %d bytes reported, got %d", len(data), stats.Bytes)
	}
	if stats.Done != 1 {
		t.Errorf("expected 1 transfer done, got %d", stats.Done)
	}
}

func TestTransferUnknownLength(t *testing.T) {
	// Chunked responses have no Content-Length; the transfer must still
	// stream the whole body.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("first chunk "))
		flusher.Flush()
		w.Write([]byte("second chunk"))
	}))
	defer server.Close()

	ctx := context.Background()
	bucket := openTestBucket(t)

	err := transferOnce(ctx, testClient(), bucket, server.URL, "out.txt", 4096, nil)
	if err != nil {
		t.Fatalf("transferOnce: %v", err)
	}

	got, err := bucket.ReadAll(ctx, "out.txt")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "first chunk second chunk" {
		t.Errorf("content mismatch: got %q", string(got))
	}
}

func TestTransferBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx := context.Background()
	bucket := openTestBucket(t)

	err := transferOnce(ctx, testClient(), bucket, server.URL, "out.bin", 4096, nil)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if KindOf(err) != KindBadStatus {
		t.Errorf("expected KindBadStatus, got %v", KindOf(err))
	}

	exists, err := bucket.Exists(ctx, "out.bin")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("no object should exist after a bad-status response")
	}
}

func TestTransferNotFoundIsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := transferOnce(context.Background(), testClient(), openTestBucket(t), server.URL, "out.bin", 4096, nil)
	if KindOf(err) != KindBadStatus {
		t.Errorf("expected KindBadStatus for 404, got %v", KindOf(err))
	}
}

func TestTransferTruncatedBody(t *testing.T) {
	// Declare 1MB but send only a prefix; the client sees an unexpected
	// EOF and the partial write must not be committed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(1024*1024))
		w.Write(make([]byte, 10*1024))
	}))
	defer server.Close()

	ctx := context.Background()
	bucket := openTestBucket(t)

	err := transferOnce(ctx, testClient(), bucket, server.URL, "out.bin", 4096, nil)
	if err == nil {
		t.Fatal("expected error for truncated body")
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("expected KindNetwork, got %v", KindOf(err))
	}

	exists, err := bucket.Exists(ctx, "out.bin")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("truncated transfer must not commit an object")
	}
}

func TestTransferConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // nothing is listening anymore

	err := transferOnce(context.Background(), testClient(), openTestBucket(t), url, "out.bin", 4096, nil)
	if err == nil {
		t.Fatal("expected error for refused connection")
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("expected KindNetwork, got %v", KindOf(err))
	}
}

func TestTransferOverwritesPreviousContent(t *testing.T) {
	data := []byte("fresh content")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer server.Close()

	ctx := context.Background()
	bucket := openTestBucket(t)
	if err := bucket.WriteAll(ctx, "out.bin", []byte("stale content that is longer"), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	if err := transferOnce(ctx, testClient(), bucket, server.URL, "out.bin", 4096, nil); err != nil {
		t.Fatalf("transferOnce: %v", err)
	}

	got, err := bucket.ReadAll(ctx, "out.bin")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("expected fresh content, got %q", string(got))
	}
}

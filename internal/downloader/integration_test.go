//go:build integration

package downloader_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	_ "gocloud.dev/blob/s3blob"

	"github.com/z3nitsu/mt-downloader/internal/downloader"
	"github.com/z3nitsu/mt-downloader/internal/testutils"
)

func TestDownloadToS3(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	files := []testutils.TestFile{
		{Name: "small.bin", Size: 16 * 1024},
		{Name: "medium.bin", Size: 2 * 1024 * 1024},
		{Name: "large.bin", Size: 16 * 1024 * 1024},
	}
	for i := range files {
		files[i].Data = testutils.GenerateTestData(t, files[i].Size)
	}

	server := testutils.StartTestHTTPServer(t, files)
	defer server.Close()

	env := testutils.StartMinioContainer(t, ctx, "downloads")
	defer env.Close(ctx)

	bucket, err := env.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	requests := make([]downloader.Request, 0, len(files))
	for _, f := range files {
		requests = append(requests, downloader.NewRequest(server.URL+"/"+f.Name))
	}

	outcomes := downloader.RunAll(ctx, bucket, requests, downloader.Options{
		Concurrency:   2,
		RetryAttempts: 3,
		RetryBackoff:  100 * time.Millisecond,
	})

	if len(outcomes) != len(files) {
		t.Fatalf("expected %d outcomes, got %d", len(files), len(outcomes))
	}

	byKey := make(map[string]downloader.Outcome, len(outcomes))
	for _, o := range outcomes {
		if o.Failed() {
			t.Fatalf("download of %s failed: %v", o.Request.RawURL, o.Err)
		}
		byKey[o.Key] = o
	}

	for _, f := range files {
		o, ok := byKey[f.Name]
		if !ok {
			t.Errorf("no outcome for %s", f.Name)
			continue
		}
		got, err := bucket.ReadAll(ctx, o.Key)
		if err != nil {
			t.Errorf("ReadAll %s: %v", o.Key, err)
			continue
		}
		if !bytes.Equal(got, f.Data) {
			t.Errorf("content mismatch for %s: got %d bytes, want %d", f.Name, len(got), len(f.Data))
		}
	}
}

func TestDownloadDuplicatesToS3(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	files := []testutils.TestFile{
		{Name: "report.csv", Size: 64 * 1024},
	}
	files[0].Data = testutils.GenerateTestData(t, files[0].Size)

	server := testutils.StartTestHTTPServer(t, files)
	defer server.Close()

	env := testutils.StartMinioContainer(t, ctx, "dupes")
	defer env.Close(ctx)

	bucket, err := env.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	const copies = 3
	requests := make([]downloader.Request, copies)
	for i := range requests {
		requests[i] = downloader.NewRequest(server.URL + "/report.csv")
	}

	outcomes := downloader.RunAll(ctx, bucket, requests, downloader.Options{
		Concurrency:   copies,
		RetryAttempts: 2,
		RetryBackoff:  100 * time.Millisecond,
	})

	want := map[string]bool{
		"report.csv":     false,
		"report (1).csv": false,
		"report (2).csv": false,
	}
	for _, o := range outcomes {
		if o.Failed() {
			t.Fatalf("download failed: %v", o.Err)
		}
		if _, ok := want[o.Key]; !ok {
			t.Fatalf("unexpected key %q", o.Key)
		}
		want[o.Key] = true
	}
	for key, seen := range want {
		if !seen {
			t.Errorf("expected an outcome with key %q", key)
		}
		got, err := bucket.ReadAll(ctx, key)
		if err != nil {
			t.Errorf("ReadAll %s: %v", key, err)
			continue
		}
		if !bytes.Equal(got, files[0].Data) {
			t.Errorf("content mismatch for %s", key)
		}
	}
}

func TestDownloadManySmallFilesToS3(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	const count = 20
	files := make([]testutils.TestFile, count)
	for i := range files {
		files[i] = testutils.TestFile{
			Name: fmt.Sprintf("part-%02d.bin", i),
			Size: 8 * 1024,
		}
		files[i].Data = testutils.GenerateTestData(t, files[i].Size)
	}

	server := testutils.StartTestHTTPServer(t, files)
	defer server.Close()

	env := testutils.StartMinioContainer(t, ctx, "many")
	defer env.Close(ctx)

	bucket, err := env.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	requests := make([]downloader.Request, count)
	for i, f := range files {
		requests[i] = downloader.NewRequest(server.URL + "/" + f.Name)
	}

	outcomes := downloader.RunAll(ctx, bucket, requests, downloader.Options{
		Concurrency:   4,
		RetryAttempts: 3,
		RetryBackoff:  100 * time.Millisecond,
	})

	if len(outcomes) != count {
		t.Fatalf("expected %d outcomes, got %d", count, len(outcomes))
	}
	for _, o := range outcomes {
		if o.Failed() {
			t.Errorf("download of %s failed: %v", o.Request.RawURL, o.Err)
		}
	}
}

package downloader

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"gocloud.dev/blob"
)

// maxNameProbes bounds the "name (k)" collision probe.
const maxNameProbes = 9999

// defaultName is used when a URL has no usable path segment.
const defaultName = "download"

// FilenameFromURL derives a file name from the last non-empty path
// segment of u, falling back to a default name.
func FilenameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return defaultName
	}
	return name
}

// Resolver assigns destination keys within a bucket, renaming colliding
// names to "stem (1).ext", "stem (2).ext", and so on.
//
// Existence checks against the bucket are inherently racy with writers
// outside this process; that race is accepted. Within this process the
// resolver additionally reserves every key it hands out, so concurrent
// requests never resolve to the same key even before any object exists.
type Resolver struct {
	bucket *blob.Bucket

	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewResolver creates a resolver for the given destination bucket.
func NewResolver(bucket *blob.Bucket) *Resolver {
	return &Resolver{
		bucket:   bucket,
		reserved: make(map[string]struct{}),
	}
}

// Resolve returns the key a download for name should write to. With
// overwrite, the name is returned as-is. Otherwise the first free key
// among name, "stem (1).ext" .. "stem (9999).ext" is reserved and
// returned; if every probe is taken, the original (colliding) name is
// returned and will be overwritten.
func (r *Resolver) Resolve(ctx context.Context, name string, overwrite bool) (string, error) {
	if overwrite {
		return name, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	free, err := r.free(ctx, name)
	if err != nil {
		return "", err
	}
	if free {
		r.reserved[name] = struct{}{}
		return name, nil
	}

	stem, ext := splitName(name)
	for i := 1; i <= maxNameProbes; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		free, err := r.free(ctx, candidate)
		if err != nil {
			return "", err
		}
		if free {
			r.reserved[candidate] = struct{}{}
			return candidate, nil
		}
	}

	// Probe space exhausted; the original name is returned even though
	// it collides.
	return name, nil
}

// free reports whether key is neither reserved in-process nor present in
// the bucket.
func (r *Resolver) free(ctx context.Context, key string) (bool, error) {
	if _, ok := r.reserved[key]; ok {
		return false, nil
	}
	exists, err := r.bucket.Exists(ctx, key)
	if err != nil {
		return false, &Error{Kind: KindIO, URL: key, Err: fmt.Errorf("check existence: %w", err)}
	}
	return !exists, nil
}

// splitName splits a file name into stem and extension (with dot).
// Dotfiles like ".bashrc" count as all stem.
func splitName(name string) (stem, ext string) {
	ext = path.Ext(name)
	if ext == name {
		ext = ""
	}
	return strings.TrimSuffix(name, ext), ext
}

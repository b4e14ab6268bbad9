package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// TotalFiles is the number of files queued for download.
	TotalFiles int

	// Concurrency is the download concurrency limit (for display).
	Concurrency int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter outputs human-readable progress information for a batch of
// downloads. A nil *Reporter is valid and discards all updates.
type Reporter struct {
	opts Options

	mu             sync.Mutex
	completedBytes atomic.Int64
	totalBytes     atomic.Int64
	filesDone      atomic.Int32
	filesFailed    atomic.Int32
	inProgress     atomic.Int32
	startTime      time.Time
	lastUpdate     time.Time
	lastBytes      int64
	stopCh         chan struct{}
	stopped        bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	if r == nil {
		return
	}
	r.startTime = time.Now()
	r.lastUpdate = r.startTime

	fmt.Fprintf(r.opts.Output, "[mtdl] Downloading %d files | Concurrency: %d\n",
		r.opts.TotalFiles,
		r.opts.Concurrency,
	)

	go r.updateLoop()
}

// Stop stops the progress reporter.
func (r *Reporter) Stop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
}

// Tracker accumulates byte progress for one transfer. A nil *Tracker is
// valid and discards all updates.
type Tracker struct {
	r     *Reporter
	total int64
}

// Transfer registers a new in-flight transfer and returns its tracker.
// The size hint may be zero or negative when the server did not declare
// a content length.
func (r *Reporter) Transfer(sizeHint int64) *Tracker {
	if r == nil {
		return nil
	}
	r.inProgress.Add(1)
	if sizeHint > 0 {
		r.totalBytes.Add(sizeHint)
	}
	return &Tracker{r: r, total: sizeHint}
}

// Add records n more bytes written for this transfer.
func (t *Tracker) Add(n int64) {
	if t == nil {
		return
	}
	t.r.completedBytes.Add(n)
}

// Done marks the transfer as completed.
func (t *Tracker) Done() {
	if t == nil {
		return
	}
	t.r.filesDone.Add(1)
	t.r.inProgress.Add(-1)
}

// Fail marks the transfer as failed. Bytes already reported stay counted;
// a retried attempt registers a fresh tracker.
func (t *Tracker) Fail() {
	if t == nil {
		return
	}
	t.r.filesFailed.Add(1)
	t.r.inProgress.Add(-1)
}

// Stats is a snapshot of reporter counters.
type Stats struct {
	Done   int
	Failed int
	Active int
	Bytes  int64
}

// Stats returns a snapshot of the current counters. Safe to call from
// any goroutine; a nil reporter returns zeroes.
func (r *Reporter) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		Done:   int(r.filesDone.Load()),
		Failed: int(r.filesFailed.Load()),
		Active: int(r.inProgress.Load()),
		Bytes:  r.completedBytes.Load(),
	}
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := time.Now()
	completed := r.completedBytes.Load()
	total := r.totalBytes.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	bytesThisPeriod := completed - r.lastBytes
	speed := float64(bytesThisPeriod) / elapsed

	r.lastUpdate = now
	r.lastBytes = completed

	fmt.Fprintf(r.opts.Output, "\r[mtdl] Files: %d done | %d failed | %d active | %s / %s | Speed: %s/s    ",
		r.filesDone.Load(),
		r.filesFailed.Load(),
		r.inProgress.Load(),
		formatBytes(completed),
		formatBytes(total),
		formatBytes(int64(speed)),
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	completed := r.completedBytes.Load()
	duration := time.Since(r.startTime)
	avgSpeed := float64(completed) / duration.Seconds()

	fmt.Fprintf(r.opts.Output, "\r[mtdl] Files: %d done | %d failed | Downloaded: %s    \n",
		r.filesDone.Load(),
		r.filesFailed.Load(),
		formatBytes(completed),
	)
	fmt.Fprintf(r.opts.Output, "[mtdl] Total time: %s | Average speed: %s/s\n",
		formatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// ParseBytes parses a human-readable byte string (e.g., "64KB").
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	s = trimSuffix(s, " ")

	switch {
	case hasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	var value float64
	_, err := fmt.Sscanf(s, "%f", &value)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func trimSuffix(s, suffix string) string {
	for hasSuffix(s, suffix) {
		s = s[:len(s)-len(suffix)]
	}
	return s
}

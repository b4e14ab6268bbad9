// Package progress provides progress reporting for downloads.
//
// This package outputs human-readable progress information to stderr,
// including files completed, transfer speed, and total bytes.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    TotalFiles:  len(urls),
//	    Concurrency: 4,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// per transfer
//	tracker := reporter.Transfer(contentLength)
//	tracker.Add(chunkLen)
//	tracker.Done() // or tracker.Fail()
//
// A nil *Reporter (and the nil *Tracker it hands out) is valid and
// discards everything, so callers never need to branch on quiet mode.
//
// # Output Format
//
//	[mtdl] Downloading 5 files | Concurrency: 4
//	[mtdl] Files: 2 done | 0 failed | 2 active | 1.13 MB / 2.5 MB | Speed: 1.2 MB/s
package progress

// Package config defines configuration structures for the mt-downloader CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (MTDL_ prefix)
//   - YAML configuration file
//
// # Structure
//
//	type Config struct {
//	    Output      string
//	    Concurrency int
//	    Overwrite   bool
//	    BufferSize  int64
//	    Progress    bool
//	    Retry       RetryConfig
//	}
//
//	type RetryConfig struct {
//	    Attempts   int
//	    Backoff    time.Duration
//	    MaxBackoff time.Duration
//	}
package config

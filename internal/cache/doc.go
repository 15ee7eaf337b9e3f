// Package cache provides a file-based cache for merge-request
// metadata fetched from the tracker.
//
// Entries are keyed by a SHA-256 hash of the tracker host and project
// id. Each entry stores the raw JSON payload along with a creation
// timestamp and a TTL (in seconds), so `mr --cached` works offline and
// repeated invocations don't hammer the API. Expired entries are
// skipped on read.
//
// The default cache directory is $XDG_CACHE_HOME/quorum (or the
// OS-appropriate equivalent).
package cache

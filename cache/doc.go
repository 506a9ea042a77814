// Package cache provides a generic in-memory key-value cache with a
// per-entry time to live.
//
// The cache shields hot paths from redundant calls to volatile upstream
// dependencies (web search, model classification). Expired entries are
// never returned: lookups evict them lazily, and an optional Sweeper can
// evict them proactively in the background.
//
// All operations are safe for concurrent use across goroutines.
package cache

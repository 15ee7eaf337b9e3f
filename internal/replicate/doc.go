// Package replicate exchanges the annotation namespaces with a remote.
//
// Sync is fetch, then merge, then publish. The merge is conflict-free by
// construction: approvals merge by per-content set union, review marks
// by lattice join, so no record from either side is ever lost or
// duplicated and syncing twice is a no-op. The only contention is over
// namespace tips, handled with optimistic compare-and-swap and a
// bounded retry of the whole fetch-merge-publish cycle; exhausting the
// budget reports ErrConflict with all local writes intact. Remote
// operations honor the caller's context and surface deadline or
// cancellation distinctly from conflicts.
package replicate

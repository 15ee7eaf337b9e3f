// Package notes reads and writes git notes namespaces at the object
// level.
//
// A namespace is a ref (e.g. refs/notes/quorum/approvals) pointing at a
// commit whose tree maps annotated object ids to note blobs. All
// durable quorum state lives in such namespaces, so it replicates
// through ordinary fetch and push. Writes go through a compare-and-swap
// on the ref tip; concurrent writers get ErrStale and retry with a
// fresh read instead of overwriting each other.
//
// The layout is compatible with git-notes: entry names are the full
// hex object id, and fanout subdirectories produced by other tools are
// folded back together on read.
package notes

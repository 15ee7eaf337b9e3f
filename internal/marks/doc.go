// Package marks is the commit-addressed review-mark store.
//
// A mark records that a commit was personally looked at. There is one
// current mark per commit, drawn from a small lattice:
//
//	Reviewed < Checkpoint < Tested
//
// Re-marking joins with the existing value (join = max), so a Tested
// commit can never be silently downgraded by a later Reviewed, and
// replicas converge no matter the order writes arrive in. Checkpoint
// doubles as a traversal sentinel: walking for unreviewed commits can
// stop when it reaches one.
//
// Notes are formatted as trailers so ordinary log tooling picks them
// up:
//
//	Tested-by: alice
//	Comment: ran the failover drill
package marks

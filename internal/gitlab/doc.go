// Package gitlab is a minimal client for the merge-request tracker.
//
// quorum only consumes MR metadata: the list of open merge requests
// and, per MR, its versions: the (base, head) pair of every push.
// Those pairs feed range resolution and policy evaluation; nothing is
// ever written back to the tracker.
package gitlab

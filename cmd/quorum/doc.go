// Quorum tracks code review state in git notes and enforces path-based
// review requirements.
//
// Approvals attach to file content rather than commits, so they survive
// rebases and cherry-picks; commit-level review marks record what each
// reviewer has already looked at. All state lives under refs/notes/quorum
// and syncs through ordinary git remotes without ever losing a concurrent
// write.
//
// Usage:
//
//	quorum status                   # evaluate rules against origin/main..HEAD
//	quorum approve '*.proto' -l 2   # approve matching files at level !!
//	quorum mark HEAD                # mark a commit as reviewed
//	quorum next                     # list commits you have not reviewed
//	quorum sync                     # merge and exchange notes with the remote
//	quorum mr                       # open merge requests and their versions
//
// See https://github.com/quorumgit/quorum for full documentation.
package main

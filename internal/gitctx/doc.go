// Package gitctx provides the repository context the rest of quorum
// works against: opening the repository, resolving review ranges,
// listing a range's commits and changed files with their content ids,
// and reading files at a revision.
//
// A range is a base/head pair denoting the commits reachable from head
// but not base. An empty range argument resolves head to HEAD and base
// to the merge-base with the configured default base branch.
package gitctx

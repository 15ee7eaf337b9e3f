// Package policy evaluates a review range against the rule set and the
// approval store, and resolves approve targets.
//
// Evaluation is pure: it reads a snapshot of the stores and derives,
// per changed path, which rules match and whether enough distinct
// qualifying reviewers have approved the path's content at sufficient
// scrutiny. Nothing here writes; repeated evaluation without
// intervening writes yields identical reports.
package policy

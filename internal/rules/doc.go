// Package rules loads review-policy rule files and matches changed
// paths against them.
//
// A rule file holds one rule per line:
//
//	<pattern> <scrutiny:!..> <required:int> <reviewer,reviewer,...>
//
// Blank lines are skipped and '#' starts a comment anywhere on a line.
// A rule is satisfied when `required` distinct members of its reviewer
// set approve at or above the rule's scrutiny level. Every rule whose
// pattern matches a path applies independently; rule order never
// changes evaluation.
package rules

// Package approvals is the content-addressed approval store.
//
// Approvals attach to the blob id of the reviewed file, not to a
// commit, so an approval survives rebase, amend, and reorder: any
// future commit carrying byte-identical content is already covered.
// Each note is a line set, one record per line:
//
//	<reviewer> <scrutiny:!..> <rfc3339-utc> [comment...]
//
// Records are append-only and deduplicated byte-for-byte, which makes
// replica merge a plain set union. Lines that do not parse are kept on
// disk (the format tolerates hand edits) but ignored by evaluation.
package approvals

// Package cli wires together the Cobra command tree for the quorum
// binary.
//
// It defines the root command and all subcommands (status, approve,
// mark, next, sync, mr, rules, config, version), binds flags, reads
// configuration, opens the repository, and returns deterministic exit
// codes so `quorum status` can gate merges in CI.
package cli
